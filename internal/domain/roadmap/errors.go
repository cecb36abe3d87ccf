package roadmap

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies engine failures.
type Kind string

const (
	KindInvalidTransition        Kind = "invalid_transition"
	KindConflictingActiveTask    Kind = "conflicting_active_task"
	KindTemplateMismatch         Kind = "template_mismatch"
	KindTemplateResolution       Kind = "template_resolution_error"
	KindUnknownRemediationAction Kind = "unknown_remediation_action"
	KindInvariantViolation       Kind = "roadmap_invariant_violation"
	KindEvaluationFormat         Kind = "evaluation_format_error"
	KindConcurrencyConflict      Kind = "concurrency_conflict"
	KindNotFound                 Kind = "not_found"
	KindRoadmapLocked            Kind = "roadmap_locked"
)

// ClientError reports kinds the caller can correct by changing the request.
func (k Kind) ClientError() bool {
	switch k {
	case KindInvalidTransition, KindConflictingActiveTask, KindNotFound, KindRoadmapLocked:
		return true
	}
	return false
}

func (k Kind) Retryable() bool { return k == KindConcurrencyConflict }

// Error is the engine error. Raw carries the offending external payload for
// evaluation format failures.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Raw     string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by kind so sentinel-style checks work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == ""
}

func newError(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewError builds an engine error outside this package (evaluator, orchestrator).
func NewError(kind Kind, op, message string, cause error) error {
	return &Error{Kind: kind, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message), Cause: cause}
}

// FormatError reports malformed evaluator output together with the raw payload.
func FormatError(op, raw string, cause error) error {
	return &Error{Kind: KindEvaluationFormat, Op: op, Message: "malformed evaluator output", Raw: raw, Cause: cause}
}

var (
	ErrInvalidTransition        = &Error{Kind: KindInvalidTransition}
	ErrConflictingActiveTask    = &Error{Kind: KindConflictingActiveTask}
	ErrTemplateMismatch         = &Error{Kind: KindTemplateMismatch}
	ErrTemplateResolution       = &Error{Kind: KindTemplateResolution}
	ErrUnknownRemediationAction = &Error{Kind: KindUnknownRemediationAction}
	ErrInvariantViolation       = &Error{Kind: KindInvariantViolation}
	ErrEvaluationFormat         = &Error{Kind: KindEvaluationFormat}
	ErrConcurrencyConflict      = &Error{Kind: KindConcurrencyConflict}
	ErrNotFound                 = &Error{Kind: KindNotFound}
	ErrRoadmapLocked            = &Error{Kind: KindRoadmapLocked}
)

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
