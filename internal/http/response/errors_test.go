package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/evaluation"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/apierr"
	"github.com/yungbote/neurobridge-roadmap/internal/services"
)

func TestClassify(t *testing.T) {
	wrapped := func(code domainagg.ErrorCode, kind roadmap.Kind) error {
		return domainagg.NewError(code, "op", "mapped", roadmap.NewError(kind, "op", "x", nil))
	}
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierr.New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
		{"invalid transition", wrapped(domainagg.CodePreconditionFailed, roadmap.KindInvalidTransition), http.StatusBadRequest, "invalid_transition"},
		{"conflicting task", wrapped(domainagg.CodeConflict, roadmap.KindConflictingActiveTask), http.StatusConflict, "conflicting_active_task"},
		{"version conflict", wrapped(domainagg.CodeRetryable, roadmap.KindConcurrencyConflict), http.StatusConflict, "concurrency_conflict"},
		{"not found", roadmap.NewError(roadmap.KindNotFound, "op", "x", nil), http.StatusNotFound, "not_found"},
		{"locked", wrapped(domainagg.CodeLocked, roadmap.KindRoadmapLocked), http.StatusLocked, "roadmap_locked"},
		{"format", roadmap.FormatError("op", "{", nil), http.StatusUnprocessableEntity, "evaluation_format_error"},
		{"invariant", wrapped(domainagg.CodeInvariantViolation, roadmap.KindInvariantViolation), http.StatusInternalServerError, "roadmap_invariant_violation"},
		{"template mismatch", roadmap.NewError(roadmap.KindTemplateMismatch, "op", "x", nil), http.StatusInternalServerError, "template_mismatch"},
		{"invalid request", fmt.Errorf("%w: missing slot_id", services.ErrInvalidRequest), http.StatusBadRequest, "invalid_request"},
		{"invalid payload", fmt.Errorf("%w: empty", evaluation.ErrInvalidPayload), http.StatusBadRequest, "invalid_payload"},
		{"missing answer key", fmt.Errorf("%w: t1", evaluation.ErrMissingAnswerKey), http.StatusInternalServerError, "missing_answer_key"},
		{"duplicate submission", domainagg.NewError(domainagg.CodeConflict, "op", "duplicate", errors.New("dup")), http.StatusConflict, "conflict"},
		{"aggregate validation", domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil), http.StatusBadRequest, "validation"},
		{"db busy", domainagg.NewError(domainagg.CodeRetryable, "op", "busy", nil), http.StatusConflict, "retryable"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := Classify(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("Classify: want=(%d,%s) got=(%d,%s)", tc.status, tc.code, status, code)
			}
		})
	}
}
