package service

import (
	"errors"
	"fmt"

	"github.com/efarmer/subsidy/common/store"
)

var (
	// ErrFarmerNotFound is returned for an unknown EFN
	ErrFarmerNotFound = fmt.Errorf("farmer %w", store.ErrNotFound)

	// ErrInvalidInput marks request shape problems (missing fields, bad roles)
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError wraps a persistence failure. The decision it belongs to was
// not recorded.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// farmerLookupErr maps a store miss to ErrFarmerNotFound
func farmerLookupErr(efn string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrFarmerNotFound, efn)
	}
	return storageErr("load farmer", err)
}
