package extensions

import "errors"

var (
	ErrNotAList     = errors.New("field does not return a list")
	ErrNoExpression = errors.New("field has no resolving expression")
	ErrNoSchema     = errors.New("field does not belong to a schema")
)
