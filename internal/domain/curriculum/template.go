package curriculum

import (
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Rank orders difficulties easy < medium < hard. Unknown values rank -1.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return -1
	}
}

func (d Difficulty) Valid() bool { return d.Rank() >= 0 }

// Downgrade steps one level down; easy stays easy.
func (d Difficulty) Downgrade() Difficulty {
	switch d {
	case DifficultyHard:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionCoding      QuestionType = "coding"
	QuestionExplanation QuestionType = "explanation"
)

func (q QuestionType) Valid() bool {
	switch q {
	case QuestionMCQ, QuestionCoding, QuestionExplanation:
		return true
	}
	return false
}

type Role string

const (
	RoleDiagnostic    Role = "diagnostic"
	RoleReinforcement Role = "reinforcement"
	RoleProof         Role = "proof"
	RoleStretch       Role = "stretch"
)

type Variant string

const (
	VariantStandard    Variant = "standard"
	VariantRemediation Variant = "remediation"
)

// RemediationSuffix marks the remediation variant of a base template id.
const RemediationSuffix = "__remediation"

type TestCase struct {
	Input    string `yaml:"input" json:"input"`
	Expected string `yaml:"expected" json:"expected"`
}

// TaskTemplate is reusable task content. Identity is TaskTemplateID; the
// standard and remediation variants of the same content share BaseTemplateID.
type TaskTemplate struct {
	TaskTemplateID   string       `yaml:"task_template_id" json:"task_template_id"`
	SlotID           string       `yaml:"slot_id" json:"slot_id,omitempty"`
	BaseTemplateID   string       `yaml:"base_template_id" json:"base_template_id,omitempty"`
	Variant          Variant      `yaml:"variant" json:"variant,omitempty"`
	Skill            string       `yaml:"skill" json:"skill"`
	Difficulty       Difficulty   `yaml:"difficulty" json:"difficulty"`
	QuestionType     QuestionType `yaml:"question_type" json:"question_type"`
	Role             Role         `yaml:"role" json:"role,omitempty"`
	ProbeCost        float64      `yaml:"probe_cost" json:"probe_cost"`
	InvariantTargets []string     `yaml:"invariant_targets" json:"invariant_targets,omitempty"`

	Prompt string `yaml:"prompt" json:"prompt"`

	Options       []string `yaml:"options" json:"options,omitempty"`
	CorrectOption string   `yaml:"correct_option" json:"-"`

	Language    string     `yaml:"language" json:"language,omitempty"`
	StarterCode string     `yaml:"starter_code" json:"starter_code,omitempty"`
	TestCases   []TestCase `yaml:"test_cases" json:"test_cases,omitempty"`

	Rubric string `yaml:"rubric" json:"-"`
}

// IsRemediation also recognises versioned ids such as "x__remediation_v2".
func (t TaskTemplate) IsRemediation() bool {
	return t.Variant == VariantRemediation || strings.Contains(t.TaskTemplateID, RemediationSuffix)
}

// IsStandard reports whether the template has no variant tag or is tagged standard.
func (t TaskTemplate) IsStandard() bool {
	return (t.Variant == "" || t.Variant == VariantStandard) && !strings.Contains(t.TaskTemplateID, RemediationSuffix)
}

// BaseID returns BaseTemplateID, deriving it from the id when unset.
func (t TaskTemplate) BaseID() string {
	if b := strings.TrimSpace(t.BaseTemplateID); b != "" {
		return b
	}
	if i := strings.Index(t.TaskTemplateID, RemediationSuffix); i > 0 {
		return t.TaskTemplateID[:i]
	}
	return t.TaskTemplateID
}

// Targets counts distinct invariant targets present in skills.
func (t TaskTemplate) Targets(skills map[string]struct{}) int {
	n := 0
	seen := map[string]struct{}{}
	for _, s := range t.InvariantTargets {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := skills[s]; ok {
			n++
		}
	}
	return n
}
