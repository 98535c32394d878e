package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a senior test automation engineer debugging failed Playwright end-to-end tests.

You will receive:
1. The name of the failed test and its status
2. The error context Playwright wrote for the failure (error message, call log, page snapshot)
3. A rule-based pre-classification that may be wrong

Start your answer with ONE line containing a JSON object:
{"category": "<category>", "confidence": <0.0-1.0>, "summary": "<one sentence>"}

category is one of:
- "selector_broken": the locator no longer matches the page (renamed id, changed text, removed element)
- "timing_flaky": the element or state appeared too late (animations, hydration, missing waits)
- "network_flaky": requests failed, timed out or were aborted
- "real_bug": the application behaves incorrectly and the assertion caught it
- "test_bug": the test itself is wrong (bad expectation, wrong data, misuse of the API)
- "unknown": none of the above fits

After the JSON line write Markdown with these sections:
## Root cause
## Suggested fix
Include a corrected code snippet when the fix is in the test.
## How to verify

Be concrete. Refer to selectors and lines from the error context. Do not repeat the whole error back.`

const userPromptTemplate = `Failed test: %s
Status: %s
Error file: %s
Pre-classification: %s%s
Artifacts: %s
%s
Error context:
%s`

func buildUserPrompt(req Request) string {
	status := req.Status
	if status == "" {
		status = "failed"
	}
	name := req.TestName
	if name == "" {
		name = "(unknown)"
	}
	category := string(req.Category)
	if category == "" {
		category = string(CategoryUnknown)
	}
	evidence := ""
	if req.Evidence != "" {
		evidence = " (" + req.Evidence + ")"
	}

	var artifacts []string
	if len(req.Screenshots) > 0 {
		artifacts = append(artifacts, fmt.Sprintf("%d screenshot(s)", len(req.Screenshots)))
	}
	if req.HasTrace {
		artifacts = append(artifacts, "trace.zip")
	}
	if len(artifacts) == 0 {
		artifacts = append(artifacts, "none")
	}

	hints := ""
	if len(req.Hints) > 0 {
		hints = "Interactive elements on the page:\n- " + strings.Join(req.Hints, "\n- ") + "\n"
	}

	return fmt.Sprintf(userPromptTemplate, name, status, req.ErrorFile, category, evidence,
		strings.Join(artifacts, ", "), hints, req.ErrorText)
}
