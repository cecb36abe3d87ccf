package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-roadmap/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-roadmap/internal/domain/roadmap"
)

// Sentinels for failures raised inside aggregate bodies. MapError turns them
// into codes.
var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrConflict   = errors.New("aggregate conflict")
	ErrRetryable  = errors.New("aggregate retryable")
)

type taggedError struct {
	sentinel error
	msg      string
}

func (e taggedError) Error() string { return e.msg }
func (e taggedError) Unwrap() error { return e.sentinel }

func tag(sentinel error, msg string) error {
	if msg = strings.TrimSpace(msg); msg == "" {
		msg = sentinel.Error()
	}
	return taggedError{sentinel: sentinel, msg: msg}
}

func ValidationError(msg string) error { return tag(ErrValidation, msg) }
func InvariantError(msg string) error  { return tag(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tag(ErrConflict, msg) }
func RetryableError(msg string) error  { return tag(ErrRetryable, msg) }

// Checked in order; the first match wins.
var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrForeignKeyViolated, domainagg.CodePreconditionFailed},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

var sqlStateCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// Drivers that do not expose typed errors (sqlite) are matched on text.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"unique constraint failed", domainagg.CodeConflict},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"database is locked", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

var roadmapCodes = map[roadmap.Kind]domainagg.ErrorCode{
	roadmap.KindInvalidTransition:     domainagg.CodePreconditionFailed,
	roadmap.KindConflictingActiveTask: domainagg.CodeConflict,
	roadmap.KindNotFound:              domainagg.CodeNotFound,
	roadmap.KindRoadmapLocked:         domainagg.CodeLocked,
	roadmap.KindConcurrencyConflict:   domainagg.CodeRetryable,
	roadmap.KindInvariantViolation:    domainagg.CodeInvariantViolation,
}

// MapError classifies err under an aggregate code. Errors that already carry
// a code pass through; roadmap errors stay reachable as the cause.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	var re *roadmap.Error
	if errors.As(err, &re) {
		code, ok := roadmapCodes[re.Kind]
		if !ok {
			code = domainagg.CodeInternal
		}
		return domainagg.NewError(code, op, re.Error(), err)
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := sqlStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
