package prompts

type PromptName string

const (
	PromptCodingEvaluation      PromptName = "coding_evaluation"
	PromptExplanationEvaluation PromptName = "explanation_evaluation"
)
