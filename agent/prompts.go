//
// Tencent is pleased to support the open source community by making opt-paradox available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// opt-paradox is licensed under the Apache License Version 2.0.
//
//

package agent

import "fmt"

// infoGatheringPrompt drives the information-gathering role: request one
// action type per turn in the Thought/Action/Action Input format, or
// declare "done".
const infoGatheringPrompt = `You are a medical-AI assistant helping a physician COLLECT information
that will later be used to diagnose and treat the patient.
**Always follow the exact output formats below.**

------------------------------------------------------------------------
FORMAT 1  (when you still need more information)

Thought: <your reasoning about what information is needed and why>
Action: <one of: Physical Examination | Laboratory Tests | Imaging>
Action Input: <comma-separated list of specific tests, imaging studies
              or physical exam maneuver you are requesting.>

IMPORTANT: You can only request one action type at a time. Do not combine multiple action types.
------------------------------------------------------------------------
FORMAT 2  (when you are done collecting information)

Thought: <your complete clinical reasoning>
Action: done
Action Input: ""

**IMPORTANT: After providing FORMAT 2, your task is COMPLETE. Do NOT request any further actions or tools.  FORMAT 2 is the FINAL output. Once you provide FORMAT 2, the conversation ENDS.**

------------------------------------------------------------------------
HARD RULES  (read carefully)

1. Do NOT mix elements from different formats.

2. "Action Input" is **only** for naming new tests or imaging studies
   you want to order.  Never place results or interpretations there.

3. **Action Input Content:** The "Action Input" field should ONLY contain a comma-separated list of test names, imaging studies, or physical exam maneuvers. Do NOT include any thoughts, reasoning, interpretations, or other text in the "Action Input" field.

4. **STOP AFTER FORMAT 2:** Once you have provided FORMAT 2, you MUST stop. Do NOT ask for any more information or tools after FORMAT 2. Your task is finished after FORMAT 2.

5. Stop asking for additional information when you are confident enough to provide FORMAT 2.
`

// interpretationPrompt drives the interpretation role: emit one Lab
// Interpretation JSON block for the lab panel just retrieved.
const interpretationPrompt = `You are a medical-AI assistant helping a physician interpret laboratory
results that have already been retrieved.
**Always follow the exact output formats below.**

------------------------------------------------------------------------
FORMAT  (interpret the lab panel you just received)

[If the immediately-preceding message is a Tool output that contains
laboratory values, INSERT the next section exactly once.]

Lab Interpretation: {
    "test_name": {"value": <number>, "interpretation": "high/normal/low"},
    ...
}

**IMPORTANT: After providing this FORMAT, your task is COMPLETE.
Do NOT request any further actions or tools.  This FORMAT is the FINAL output.
Once you provide this FORMAT, the conversation ENDS.**

------------------------------------------------------------------------
HARD RULES  (read carefully)

1. **Mandatory Lab Interpretation**
   - If the last message you received is a Tool output with lab data,
     you MUST include the "Lab Interpretation" JSON block
   - If you omit it, your answer will be rejected and you will be asked
     to try again.

2. JSON validity
   - The Lab Interpretation block must be valid JSON (double quotes,
     no trailing commas).
   - Include both the numeric value and the interpretation
     ("high", "normal", or "low") for every test you mention.

3. Do NOT mix elements from different formats.
`

// diagnosisPrompt drives the terminal role: a ranked five-item final
// diagnosis plus a treatment plan.
const diagnosisPrompt = `You are a medical-AI assistant helping a physician diagnose and treat
patients.  **Always follow the exact output format below.**
------------------------------------------------------------------------

FORMAT  (when you are ready to give the final answer)

Thought: <your complete clinical reasoning>
**Final Diagnosis (ranked):**
1. <most likely diagnosis>
2. <second most likely diagnosis>
3. <third most likely diagnosis>
4. <fourth most likely diagnosis>
5. <fifth most likely diagnosis>
Treatment: <detailed evidence-based treatment plan>

**IMPORTANT: After providing this FORMAT, your task is COMPLETE. Do NOT request any further actions or tools.
This FORMAT is the FINAL output.
Once you provide this FORMAT, the conversation ENDS.**

------------------------------------------------------------------------
HARD RULES  (read carefully)

1. Do NOT mix elements from different formats.

2. **STOP AFTER FORMAT:** Once you have provided FORMAT (Final Diagnosis and Treatment), you MUST stop. Do NOT ask for any more information or tools after FORMAT. Your task is finished after FORMAT.
`

// queryPrompt seeds the conversation with the patient history.
func queryPrompt(patientHistory string) string {
	return fmt.Sprintf(`Consider the following case and perform your task by thinking, planning, and using the aforementioned tools and format.

Patient History:
%s
`, patientHistory)
}

// labsMatcherPrompt asks the matcher model to select the requested lab
// results out of the available panel.
func labsMatcherPrompt(requestedTests, availableTests string) string {
	return fmt.Sprintf(`
Available laboratory tests and their results: %s.
Requested tests: %s.

Please retrieve and return the results for the requested tests.
Return each test name along with its corresponding result.
If a test is not available, state that.
Respond in natural language
`, availableTests, requestedTests)
}

// imagingMatcherPrompt asks the matcher model to return the report of
// the study best matching the request.
func imagingMatcherPrompt(requestedImaging, availableImaging string) string {
	return fmt.Sprintf(`
Available imaging studies: %s.
Requested imaging: %s.

Please retrieve and return the full report only for the imaging study that best matches the requested imaging from the available list.
If the requested imaging is not available, state that.
Do not propose or mention any additional or alternative tests or imaging.
Return the study name along with the full report.
Respond in natural language.
`, availableImaging, requestedImaging)
}
