package core

import (
	"errors"
	"fmt"
)

// Failure kinds a node may surface. Node errors match them through errors.Is.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrConnection     = errors.New("connection error")
	ErrTimeout        = errors.New("timeout error")
)

var (
	ErrUnknownNode         = errors.New("node not registered")
	ErrUnknownParameter    = errors.New("unknown node parameter")
	ErrParameterType       = errors.New("wrong node parameter type")
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// NodeOperationError A failure raised by a node while executing, surfaced to the user as is.
type NodeOperationError struct {
	Node string
	Err  error
}

func (e *NodeOperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

func (e *NodeOperationError) Unwrap() error {
	return e.Err
}
