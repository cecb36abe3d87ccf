package aggregates

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_RoadmapKinds(t *testing.T) {
	cases := []struct {
		kind roadmap.Kind
		want domainagg.ErrorCode
	}{
		{roadmap.KindInvalidTransition, domainagg.CodePreconditionFailed},
		{roadmap.KindConflictingActiveTask, domainagg.CodeConflict},
		{roadmap.KindNotFound, domainagg.CodeNotFound},
		{roadmap.KindRoadmapLocked, domainagg.CodeLocked},
		{roadmap.KindConcurrencyConflict, domainagg.CodeRetryable},
		{roadmap.KindInvariantViolation, domainagg.CodeInvariantViolation},
		{roadmap.KindTemplateMismatch, domainagg.CodeInternal},
		{roadmap.KindUnknownRemediationAction, domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := MapError("op", roadmap.NewError(tc.kind, "roadmap.X", "boom", nil))
			if got := domainagg.CodeOf(err); got != tc.want {
				t.Fatalf("code: want=%s got=%s", tc.want, got)
			}
			if roadmap.KindOf(err) != tc.kind {
				t.Fatalf("roadmap kind lost through mapping: %v", err)
			}
		})
	}
}

func TestMapError_DuplicatedKey(t *testing.T) {
	err := MapError("op", gorm.ErrDuplicatedKey)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
	err = MapError("op", errors.New("UNIQUE constraint failed: submission.learner_id, submission.task_instance_id"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("sqlite unique failure should be a conflict, got %q", domainagg.CodeOf(err))
	}
}
