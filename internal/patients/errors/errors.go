package errors

import "errors"

var (
	ErrNotFound = errors.New("patient not found")

	ErrInvalidID = errors.New("invalid patient ID format")

	// ErrDuplicateCPF is returned when another patient already holds the CPF.
	ErrDuplicateCPF = errors.New("patient with this CPF already exists")
)
