package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// execution engine side of ExecuteFunctions.
type execution struct {
	ctx         context.Context
	description NodeDescription
	params      map[string]any
	credentials CredentialStore
	logger      *zap.SugaredLogger
}

func (e *execution) Context() context.Context {
	return e.ctx
}

func (e *execution) GetCredentials(name string) (Credentials, error) {
	required := false
	for _, c := range e.description.Credentials {
		if c.Name == name {
			required = true
		}
	}
	if !required {
		return nil, fmt.Errorf("node %s does not declare credentials %q", e.description.Name, name)
	}
	creds, ok := e.credentials[name]
	if !ok {
		return nil, fmt.Errorf("credentials %q: %w", name, ErrCredentialsNotFound)
	}
	return creds, nil
}

// GetNodeParameter triggers take no input, so itemIndex is always 0.
func (e *execution) GetNodeParameter(name string, itemIndex int) (any, error) {
	if itemIndex != 0 {
		return nil, fmt.Errorf("parameter %q: item %d out of range", name, itemIndex)
	}
	property, declared := e.description.Property(name)
	if !declared {
		return nil, fmt.Errorf("parameter %q: %w", name, ErrUnknownParameter)
	}
	if v, ok := e.params[name]; ok {
		return v, nil
	}
	return property.Default, nil
}

func (e *execution) GetNode() NodeDescription {
	return e.description
}

func (e *execution) Logger() *zap.SugaredLogger {
	return e.logger
}
