package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// StoreErrType ...
type StoreErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound StoreErrType = iota
	// Corrupt is returned when a saved table cannot be decoded.
	Corrupt
	// Closed ...
	Closed
)

// String ...
func (t StoreErrType) String() string {
	switch t {
	case KeyNotFound:
		return "Not Found"
	case Corrupt:
		return "Corrupt"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StoreErr reports a failure of a table store on a given key.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
	cause    error
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// WrapStoreErr is NewStoreErr with an underlying cause.
func WrapStoreErr(dataType string, errType StoreErrType, key string, cause error) StoreErr {
	e := NewStoreErr(dataType, errType, key)
	e.cause = cause
	return e
}

// Error ...
func (e StoreErr) Error() string {
	s := fmt.Sprintf("%s, %s, %s", e.dataType, e.key, e.errType)
	if e.cause != nil {
		s = fmt.Sprintf("%s: %v", s, e.cause)
	}
	return s
}

// Unwrap ...
func (e StoreErr) Unwrap() error {
	return e.cause
}

// IsStore checks that an error, or one it wraps, is of type StoreErr and that
// its code matches the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
