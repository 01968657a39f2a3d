package schema

import "errors"

// Construction-time errors. These abort schema building.
var (
	ErrArgumentNotFound         = errors.New("argument not found")
	ErrInvalidArgumentShape     = errors.New("invalid argument shape")
	ErrInvalidDirectiveLocation = errors.New("invalid directive location")
)

// Call-time errors. These are reported per field and leave the field unchanged.
var (
	ErrUnresolvedField     = errors.New("unresolved field")
	ErrValidationFailed    = errors.New("validation failed")
	ErrAuthorizationDenied = errors.New("authorization denied")
)
