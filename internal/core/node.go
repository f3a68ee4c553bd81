package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Item One row of node output, the json payload of an execution record.
type Item map[string]any

// Credentials Resolved credential values of one credential type, keyed by property name.
type Credentials map[string]string

// CredentialStore Resolved credentials, keyed by credential type name.
type CredentialStore map[string]Credentials

// ExecuteFunctions What the engine hands to a node for one execution.
type ExecuteFunctions interface {
	// Context ends when the execution is cancelled or times out.
	Context() context.Context
	// GetCredentials returns ErrCredentialsNotFound when the type is not configured.
	GetCredentials(name string) (Credentials, error)
	// GetNodeParameter falls back to the property default when the parameter is not set.
	GetNodeParameter(name string, itemIndex int) (any, error)
	GetNode() NodeDescription
	Logger() *zap.SugaredLogger
}

// NodeType Top-level node interface
type NodeType interface {
	Description() NodeDescription     // static schema of the node
	Init(reg *ServiceRegistry) error  // fetch the services the node needs
	Execute(ef ExecuteFunctions) ([][]Item, error)
}

// NodeRegistry Node controller embedded in the Engine.
type NodeRegistry struct {
	nodes     map[string]NodeType // store valid node instances by name
	nodeNames []string            // record node registration order
}

// NewNodeRegistry Return a raw NodeRegistry
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: make(map[string]NodeType)}
}

// RegisterNode Register node to registry.
func (r *NodeRegistry) RegisterNode(node NodeType) error {
	name := node.Description().Name
	if name == "" {
		return fmt.Errorf("node %T has no name", node)
	}
	if _, exists := r.nodes[name]; exists {
		return fmt.Errorf("node already exists: %s", name)
	}
	r.nodes[name] = node
	r.nodeNames = append(r.nodeNames, name)
	Logger.Debugf("Node [%s] registered.", name)
	return nil
}

// GetNode Get a registered node by name.
func (r *NodeRegistry) GetNode(name string) (NodeType, bool) {
	node, ok := r.nodes[name]
	return node, ok
}

// GetNodes Get all nodes registered, in registration order.
func (r *NodeRegistry) GetNodes() []NodeType {
	nodes := make([]NodeType, 0, len(r.nodeNames))
	for _, name := range r.nodeNames {
		nodes = append(nodes, r.nodes[name])
	}
	return nodes
}

// StringParameter read a string node parameter.
func StringParameter(ef ExecuteFunctions, name string, itemIndex int) (string, error) {
	v, err := ef.GetNodeParameter(name, itemIndex)
	if err != nil {
		return "", err
	}
	switch value := v.(type) {
	case string:
		return value, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("parameter %q: expected string, got %T: %w", name, v, ErrParameterType)
	}
}

// NumberParameter read a numeric node parameter. Numbers decoded from JSON arrive as float64.
func NumberParameter(ef ExecuteFunctions, name string, itemIndex int) (float64, error) {
	v, err := ef.GetNodeParameter(name, itemIndex)
	if err != nil {
		return 0, err
	}
	switch value := v.(type) {
	case float64:
		return value, nil
	case float32:
		return float64(value), nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T: %w", name, v, ErrParameterType)
	}
}
