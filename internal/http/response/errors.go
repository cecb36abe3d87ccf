package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
	"github.com/yungbote/neurobridge-roadmap/internal/learning/evaluation"
	"github.com/yungbote/neurobridge-roadmap/internal/platform/apierr"
	"github.com/yungbote/neurobridge-roadmap/internal/services"
)

// Classify resolves the status and code reported for err. Engine kinds win
// over aggregate codes because the aggregate layer keeps them as the cause.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Status, ae.Code
	}

	switch kind := roadmap.KindOf(err); kind {
	case roadmap.KindInvalidTransition:
		return http.StatusBadRequest, string(kind)
	case roadmap.KindConflictingActiveTask, roadmap.KindConcurrencyConflict:
		return http.StatusConflict, string(kind)
	case roadmap.KindNotFound:
		return http.StatusNotFound, string(kind)
	case roadmap.KindRoadmapLocked:
		return http.StatusLocked, string(kind)
	case roadmap.KindEvaluationFormat:
		return http.StatusUnprocessableEntity, string(kind)
	case "":
	default:
		return http.StatusInternalServerError, string(kind)
	}

	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, evaluation.ErrInvalidPayload):
		return http.StatusBadRequest, "invalid_payload"
	case errors.Is(err, evaluation.ErrMissingAnswerKey):
		return http.StatusInternalServerError, "missing_answer_key"
	}

	switch code := domainagg.CodeOf(err); code {
	case domainagg.CodeValidation, domainagg.CodePreconditionFailed:
		return http.StatusBadRequest, string(code)
	case domainagg.CodeNotFound:
		return http.StatusNotFound, string(code)
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return http.StatusConflict, string(code)
	case domainagg.CodeLocked:
		return http.StatusLocked, string(code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

// RespondServiceError writes the error envelope for a service failure.
func RespondServiceError(c *gin.Context, err error) {
	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, status, code, err)
}
