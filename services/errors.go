package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindNotFound             Kind = "NotFound"
	KindIllegalTransition    Kind = "IllegalTransition"
	KindInsufficientQuantity Kind = "InsufficientQuantity"
	KindInsufficientPayment  Kind = "InsufficientPayment"
	KindConflict             Kind = "Conflict"
	KindValidation           Kind = "Validation"
)

// Error is a business-rule failure. Anything that is not an *Error is an
// infrastructure failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func IllegalTransition(format string, args ...any) error {
	return newError(KindIllegalTransition, format, args...)
}

func InsufficientQuantity(format string, args ...any) error {
	return newError(KindInsufficientQuantity, format, args...)
}

func InsufficientPayment(format string, args ...any) error {
	return newError(KindInsufficientPayment, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

// KindOf returns the business kind of err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Postgres SQLSTATEs that mean "someone else got there first".
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// translate turns store-level races into Conflict and leaves everything else alone.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Conflict("concurrent update rejected: %s", pgErr.ConstraintName)
		case pgSerializationFailure, pgDeadlockDetected:
			return Conflict("concurrent update rejected, retry the operation")
		}
	}
	return err
}

// validationFailure converts validator output into a Validation error.
func validationFailure(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "phone":
			parts = append(parts, fmt.Sprintf("%s must be 10 or 11 digits", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return Validation("%s", strings.Join(parts, "; "))
}
