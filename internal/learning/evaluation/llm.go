package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/prompts"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/openai"
)

// LLMGrader grades coding and explanation answers with a language model.
// With Structured set it asks for schema-constrained output; otherwise it
// parses free text after stripping fences.
type LLMGrader struct {
	client     openai.Client
	log        *logger.Logger
	Structured bool
}

func NewLLMGrader(log *logger.Logger, client openai.Client, structured bool) *LLMGrader {
	if log == nil {
		log = logger.Nop()
	}
	return &LLMGrader{client: client, log: log.With("service", "LLMGrader"), Structured: structured}
}

func promptFor(qt curriculum.QuestionType) (prompts.PromptName, error) {
	switch qt {
	case curriculum.QuestionCoding:
		return prompts.PromptCodingEvaluation, nil
	case curriculum.QuestionExplanation:
		return prompts.PromptExplanationEvaluation, nil
	}
	return "", fmt.Errorf("%w: %q is not graded by the model", ErrInvalidPayload, qt)
}

func (g *LLMGrader) Grade(ctx context.Context, qt curriculum.QuestionType, answer, language string, ec EvalContext) (mastery.EvaluationResult, error) {
	const op = "evaluation.LLMGrader.Grade"
	name, err := promptFor(qt)
	if err != nil {
		return mastery.EvaluationResult{}, err
	}
	p, err := prompts.Build(name, prompts.Input{
		Skill:        ec.Skill,
		Difficulty:   string(ec.Difficulty),
		Language:     language,
		TaskPrompt:   ec.Prompt,
		Rubric:       ec.Rubric,
		Answer:       answer,
		QuestionType: string(qt),
	})
	if err != nil {
		return mastery.EvaluationResult{}, err
	}

	var raw string
	if g.Structured {
		obj, err := g.client.GenerateJSON(ctx, p.System, p.User, p.SchemaName, p.Schema)
		if err != nil {
			return mastery.EvaluationResult{}, fmt.Errorf("%s: %w", op, err)
		}
		b, err := json.Marshal(obj)
		if err != nil {
			return mastery.EvaluationResult{}, roadmap.FormatError(op, fmt.Sprint(obj), err)
		}
		raw = string(b)
	} else {
		raw, err = g.client.GenerateText(ctx, p.System, p.User)
		if err != nil {
			return mastery.EvaluationResult{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	res, err := ParseResult(raw)
	if err != nil {
		g.log.Warn("grader returned malformed output",
			"task_template_id", ec.TaskTemplateID,
			"question_type", qt,
			"prompt_fingerprint", p.Fingerprint(),
			"error", err,
		)
		return mastery.EvaluationResult{}, roadmap.FormatError(op, raw, err)
	}
	return res, nil
}

// CleanOutput strips markdown fences and a leading "json" language tag.
func CleanOutput(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

type wireResult struct {
	Passed           *bool    `json:"passed"`
	Score            *float64 `json:"score"`
	Feedback         string   `json:"feedback"`
	DetectedConcepts []string `json:"detected_concepts"`
	Mistakes         []string `json:"mistakes"`
}

// ParseResult decodes grader output. passed and score are required; unknown
// fields are rejected.
func ParseResult(raw string) (mastery.EvaluationResult, error) {
	cleaned := CleanOutput(raw)
	if cleaned == "" {
		return mastery.EvaluationResult{}, errors.New("empty grader output")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()
	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return mastery.EvaluationResult{}, err
	}
	if dec.More() {
		return mastery.EvaluationResult{}, errors.New("trailing data after grader JSON")
	}
	if w.Passed == nil || w.Score == nil {
		return mastery.EvaluationResult{}, errors.New("grader output missing passed or score")
	}
	return mastery.EvaluationResult{
		Passed:           *w.Passed,
		Score:            *w.Score,
		Feedback:         w.Feedback,
		DetectedConcepts: w.DetectedConcepts,
		Mistakes:         w.Mistakes,
	}, nil
}
