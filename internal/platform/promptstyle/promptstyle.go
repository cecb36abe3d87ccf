package promptstyle

import "strings"

const marker = "NEUROBRIDGE_GRADER_STYLE_V1"

var graderRules = []string{
	"You are a strict, consistent grader for Neurobridge learner submissions.",
	"Follow the system and user instructions precisely.",
	"Judge only the submission against the stated skill and difficulty.",
	"A submission with no concrete mistakes should pass.",
	"Do not add analysis or extra commentary.",
}

var modeRules = map[string]string{
	"json": "Return a single JSON object that conforms to the schema and contains no extra keys.",
	"text": "Be concise and structured when helpful.",
}

// ApplySystem prefixes system with the shared grader preamble for mode
// ("json" or "text"). Empty prompts and prompts already carrying the
// preamble are returned as is.
func ApplySystem(system, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}
	rule, ok := modeRules[strings.ToLower(strings.TrimSpace(mode))]
	if !ok {
		rule = modeRules["text"]
	}

	lines := append([]string{marker}, graderRules...)
	if first, _, _ := strings.Cut(base, "\n"); strings.TrimSpace(first) != "" {
		lines = append(lines, "Task summary: "+strings.TrimSpace(first))
	}
	lines = append(lines, rule, "---", base)
	return strings.Join(lines, "\n")
}
