package alerting

import (
	"fmt"

	"github.com/glucoalert/alertcore/internal/datastore/v2/repository"
	"github.com/glucoalert/alertcore/internal/errors"
)

// Domain errors. All of them are meant to be shown to the user for
// correction; callers match them with errors.Is.
var (
	ErrDuplicateName    = errors.NewStd("alert type name already exists")
	ErrInUse            = errors.NewStd("alert type is used by alert entries")
	ErrNotFound         = errors.NewStd("not found")
	ErrUnknownKind      = errors.NewStd("unknown alert kind")
	ErrOutOfBounds      = errors.NewStd("value out of bounds")
	ErrIsDefaultEntry   = errors.NewStd("the start of day entry cannot be moved or deleted")
	ErrKindHasNoValue   = errors.NewStd("alert kind has no value")
	ErrOverlap          = errors.NewStd("an entry already starts at this time")
	ErrInvalidAlertType = errors.NewStd("invalid alert type")
	ErrSessionClosed    = errors.NewStd("editing session already closed")
)

// domainErrors maps each domain error to its category.
var domainErrors = map[error]errors.Category{
	ErrDuplicateName:    errors.CategoryConflict,
	ErrInUse:            errors.CategoryConflict,
	ErrOverlap:          errors.CategoryConflict,
	ErrNotFound:         errors.CategoryNotFound,
	ErrUnknownKind:      errors.CategoryNotFound,
	ErrOutOfBounds:      errors.CategoryValidation,
	ErrIsDefaultEntry:   errors.CategoryValidation,
	ErrKindHasNoValue:   errors.CategoryValidation,
	ErrInvalidAlertType: errors.CategoryValidation,
	ErrSessionClosed:    errors.CategoryState,
}

// IsDomainError reports whether err is one of the user-correctable errors.
func IsDomainError(err error) bool {
	for target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// translateStoreError converts repository errors into domain errors and
// wraps anything else as a database failure.
func translateStoreError(err error, operation string) error {
	switch {
	case err == nil:
		return nil
	case IsDomainError(err):
		return err
	case errors.Is(err, repository.ErrAlertTypeNotFound):
		return fmt.Errorf("alert type: %w", ErrNotFound)
	case errors.Is(err, repository.ErrAlertEntryNotFound):
		return fmt.Errorf("alert entry: %w", ErrNotFound)
	case errors.Is(err, repository.ErrAlertTypeNameTaken):
		return ErrDuplicateName
	case errors.Is(err, repository.ErrAlertTypeInUse):
		return ErrInUse
	case errors.Is(err, repository.ErrAlertEntryStartTaken):
		return ErrOverlap
	default:
		return errors.New(err).
			Component("alerting").
			Category(errors.CategoryDatabase).
			Context("operation", operation).
			Build()
	}
}
