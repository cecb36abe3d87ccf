package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-roadmap/internal/domain/curriculum"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/mastery"
)

var (
	// ErrInvalidPayload reports a submission payload missing the fields its question type needs.
	ErrInvalidPayload = errors.New("invalid submission payload")
	// ErrMissingAnswerKey reports an MCQ template without a correct option.
	// The key only ever comes from the catalog.
	ErrMissingAnswerKey = errors.New("template has no answer key")
)

// Payload is the learner's raw submission body.
type Payload map[string]any

func (p Payload) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), true
	}
	return s, true
}

// EvalContext is what the grader knows about the task being answered.
type EvalContext struct {
	TaskInstanceID string
	TaskTemplateID string
	Skill          string
	Difficulty     curriculum.Difficulty
	Prompt         string
	Rubric         string
	Language       string
	CorrectOption  string
}

// ContextFor builds the grading context from a template.
func ContextFor(taskInstanceID string, t curriculum.TaskTemplate) EvalContext {
	return EvalContext{
		TaskInstanceID: taskInstanceID,
		TaskTemplateID: t.TaskTemplateID,
		Skill:          t.Skill,
		Difficulty:     t.Difficulty,
		Prompt:         t.Prompt,
		Rubric:         t.Rubric,
		Language:       t.Language,
		CorrectOption:  t.CorrectOption,
	}
}

type Evaluator interface {
	Evaluate(ctx context.Context, qt curriculum.QuestionType, payload Payload, ec EvalContext) (mastery.EvaluationResult, error)
}

// Grader scores free-form answers (coding and explanation).
type Grader interface {
	Grade(ctx context.Context, qt curriculum.QuestionType, answer string, language string, ec EvalContext) (mastery.EvaluationResult, error)
}

// Router grades MCQs locally and delegates everything else to the Grader.
// Every result passes through Enforce before it is returned.
type Router struct {
	grader Grader
}

func NewRouter(g Grader) *Router {
	return &Router{grader: g}
}

func (r *Router) Evaluate(ctx context.Context, qt curriculum.QuestionType, payload Payload, ec EvalContext) (mastery.EvaluationResult, error) {
	if len(payload) == 0 {
		return mastery.EvaluationResult{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	switch qt {
	case curriculum.QuestionMCQ:
		answer, ok := payload.String("answer")
		if !ok {
			return mastery.EvaluationResult{}, fmt.Errorf("%w: mcq requires answer", ErrInvalidPayload)
		}
		correct := strings.TrimSpace(ec.CorrectOption)
		if correct == "" {
			return mastery.EvaluationResult{}, fmt.Errorf("%w: %s", ErrMissingAnswerKey, ec.TaskTemplateID)
		}
		return Enforce(EvaluateMCQ(answer, correct, ec.Skill)), nil
	case curriculum.QuestionCoding:
		code, ok := payload.String("code")
		if !ok || strings.TrimSpace(code) == "" {
			return mastery.EvaluationResult{}, fmt.Errorf("%w: coding requires code", ErrInvalidPayload)
		}
		lang, _ := payload.String("language")
		if strings.TrimSpace(lang) == "" {
			lang = ec.Language
		}
		return r.delegate(ctx, qt, code, lang, ec)
	case curriculum.QuestionExplanation:
		text, ok := payload.String("text")
		if !ok || strings.TrimSpace(text) == "" {
			return mastery.EvaluationResult{}, fmt.Errorf("%w: explanation requires text", ErrInvalidPayload)
		}
		return r.delegate(ctx, qt, text, "", ec)
	default:
		return mastery.EvaluationResult{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidPayload, qt)
	}
}

func (r *Router) delegate(ctx context.Context, qt curriculum.QuestionType, answer, lang string, ec EvalContext) (mastery.EvaluationResult, error) {
	if r.grader == nil {
		return mastery.EvaluationResult{}, fmt.Errorf("no grader configured for %s", qt)
	}
	res, err := r.grader.Grade(ctx, qt, answer, lang, ec)
	if err != nil {
		return mastery.EvaluationResult{}, err
	}
	return Enforce(res), nil
}
