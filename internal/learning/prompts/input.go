package prompts

// Input carries every field a grading prompt may render. Missing fields
// render as empty strings.
type Input struct {
	Skill        string
	Difficulty   string
	Language     string
	TaskPrompt   string
	Rubric       string
	Answer       string
	QuestionType string
}

func (in Input) field(name string) string {
	switch name {
	case "Skill":
		return in.Skill
	case "Difficulty":
		return in.Difficulty
	case "Language":
		return in.Language
	case "TaskPrompt":
		return in.TaskPrompt
	case "Rubric":
		return in.Rubric
	case "Answer":
		return in.Answer
	case "QuestionType":
		return in.QuestionType
	}
	return ""
}
