package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/rackslot/rackslot-backend/pkg/errors"
)

// PostgreSQL error codes the repositories care about.
const (
	CodeUniqueViolation     = "23505"
	CodeCheckViolation      = "23514"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
)

// IsUniqueViolation reports whether err is a unique violation, optionally on
// the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) || pqErr.Code != CodeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// MapPQError converts a PostgreSQL error to an AppError.
// Returns nil if the error is not a pq.Error or the code is not mapped.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch string(pqErr.Code) {
	case CodeCheckViolation:
		return mapCheckConstraint(pqErr)

	case CodeUniqueViolation:
		return errors.Conflict(formatConstraintMessage(pqErr))

	case CodeForeignKeyViolation:
		return errors.BadRequest("referenced record does not exist")

	case CodeNotNullViolation:
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "within_capacity"):
		return errors.Conflict("location capacity exceeded")

	case strings.Contains(constraint, "weight_non_negative"), strings.Contains(constraint, "weight_positive"):
		return errors.Validation(map[string]string{"weight": "must be positive"})

	case strings.Contains(constraint, "quantity_bounds"):
		return errors.Conflict("counter quantity out of bounds")

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{"status": "must be one of: pending, placed, removed"})

	case strings.Contains(constraint, "rack_type_valid"):
		return errors.Validation(map[string]string{"rack_type": "must be one of: floor, light, standard, heavy"})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "items_pkey"):
		return "an item with this system code already exists"
	case strings.Contains(constraint, "request_id"):
		return "a movement with this request id already exists"
	default:
		return "a record with these values already exists"
	}
}
