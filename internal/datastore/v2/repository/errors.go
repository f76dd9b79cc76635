package repository

import "github.com/glucoalert/alertcore/internal/errors"

// Sentinel errors returned by the alert repositories.
var (
	ErrAlertTypeNotFound    = errors.NewStd("alert type not found")
	ErrAlertTypeNameTaken   = errors.NewStd("alert type name already in use")
	ErrAlertTypeInUse       = errors.NewStd("alert type is referenced by alert entries")
	ErrAlertEntryNotFound   = errors.NewStd("alert entry not found")
	ErrAlertEntryStartTaken = errors.NewStd("alert entry start already in use for kind")
)
