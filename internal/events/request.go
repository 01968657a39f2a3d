package events

import "time"

// RequestStart is emitted before an operation is executed.
type RequestStart struct {
	OperationName string
	OperationType string
}

// RequestFinish is emitted after an operation is executed.
type RequestFinish struct {
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}
