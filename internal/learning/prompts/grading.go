package prompts

import (
	"strings"
	"text/template"
)

type definition struct {
	version    int
	schemaName string
	schema     func() map[string]any
	system     *template.Template
	user       *template.Template
	requires   []string
}

const evaluationShape = `JSON schema:
{
  "passed": true,
  "score": 0.0,
  "feedback": "",
  "detected_concepts": [],
  "mistakes": []
}`

const scoringRules = `
Return ONLY valid JSON. No markdown. No commentary.
score is a number from 0 to 1. List every concrete mistake in mistakes; leave it empty when there are none.`

var definitions = map[PromptName]definition{
	PromptCodingEvaluation: grading(1,
		"You are evaluating a coding task."+scoringRules,
		`
Skill: {{.Skill}}
Difficulty: {{.Difficulty}}
{{if .TaskPrompt}}
Problem:
{{.TaskPrompt}}
{{end}}{{if .Rubric}}
Rubric:
{{.Rubric}}
{{end}}
`+evaluationShape+`

User code ({{.Language}}):
{{.Answer}}`,
		"Skill", "Answer"),

	PromptExplanationEvaluation: grading(1,
		"Evaluate the explanation below."+scoringRules,
		`
Skill: {{.Skill}}
Difficulty: {{.Difficulty}}
{{if .TaskPrompt}}
Question:
{{.TaskPrompt}}
{{end}}{{if .Rubric}}
Rubric:
{{.Rubric}}
{{end}}
`+evaluationShape+`

User explanation:
{{.Answer}}`,
		"Skill", "Answer"),
}

func grading(version int, system, user string, requires ...string) definition {
	return definition{
		version:    version,
		schemaName: "evaluation",
		schema:     EvaluationSchema,
		system:     mustParse("system", system),
		user:       mustParse("user", user),
		requires:   requires,
	}
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=zero").Parse(strings.TrimSpace(text)))
}

// EvaluationSchema is the strict grader output contract shared by every
// evaluation prompt.
func EvaluationSchema() map[string]any {
	str := map[string]any{"type": "string"}
	strs := map[string]any{"type": "array", "items": str}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"passed":            map[string]any{"type": "boolean"},
			"score":             map[string]any{"type": "number"},
			"feedback":          str,
			"detected_concepts": strs,
			"mistakes":          strs,
		},
		"required":             []string{"passed", "score", "feedback", "detected_concepts", "mistakes"},
		"additionalProperties": false,
	}
}
