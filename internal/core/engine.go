// Package core
// Host side of the trigger: engine, registries, execution contract and configuration.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const VERSION = "1.0.0"

// Logger Global logger for engine and node behaviors.
var Logger = TriggerLogger{SugaredLogger: zap.NewNop().Sugar()}

// TriggerLogger Logger instance for the engine. struct reserved for more methods.
type TriggerLogger struct {
	*zap.SugaredLogger
}

// InitLogger replace the global Logger, development config when debug is on.
func InitLogger(debug bool) error {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return errors.Wrap(err, "failed building zap logger")
	}
	Logger = TriggerLogger{SugaredLogger: logger.Sugar()}
	return nil
}

// Engine The workflow host.
// An Engine include two sorts of components, Service and NodeType.
// Services hold shared infrastructure (gateway, web), nodes consume them during an execution.
type Engine struct {
	ServiceRegistry *ServiceRegistry // ServiceRegistry A Service provider maintained by Engine
	NodeRegistry    *NodeRegistry    // NodeRegistry A NodeType provider maintained by Engine
	Executions      *ExecutionTable  // Executions currently suspended executions
	Credentials     CredentialStore  // Credentials resolved credentials, by credential type name

	ExecutionTimeout time.Duration // ExecutionTimeout upper bound of one execution, zero for none
}

// ExecutionResult output of one finished execution.
type ExecutionResult struct {
	ID   CombinedKey `json:"id"`
	Data [][]Item    `json:"data"`
}

// NewEngine prepare an engine template to be filled.
func NewEngine() *Engine {
	return &Engine{
		ServiceRegistry: NewServiceRegistry(),
		NodeRegistry:    NewNodeRegistry(),
		Executions:      NewExecutionTable(),
		Credentials:     make(CredentialStore),
	}
}

// QuickRegisterNode a shortcut for initialize and register a node to engine.
func (e *Engine) QuickRegisterNode(f func(reg *ServiceRegistry) (NodeType, error)) error {
	node, err := f(e.ServiceRegistry)
	if err != nil {
		return err
	}
	return e.NodeRegistry.RegisterNode(node)
}

// Execute run the named node once and block until it resolves, fails, or ctx ends.
func (e *Engine) Execute(ctx context.Context, nodeName string, params map[string]any) (*ExecutionResult, error) {
	node, ok := e.NodeRegistry.GetNode(nodeName)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", nodeName, ErrUnknownNode)
	}
	if e.ExecutionTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, e.ExecutionTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exec := e.Executions.Start(nodeName, cancel)
	defer e.Executions.Delete(exec.ID)

	logger := Logger.With("node", nodeName, "execution", exec.ID)
	logger.Infof("Execution started.")
	data, err := node.Execute(&execution{
		ctx:         ctx,
		description: node.Description(),
		params:      params,
		credentials: e.Credentials,
		logger:      logger,
	})
	if err != nil {
		logger.Warnf("Execution failed: %v", err)
		return nil, err
	}
	logger.Infof("Execution finished after %s.", time.Since(exec.StartedAt).Round(time.Millisecond))
	return &ExecutionResult{ID: exec.ID, Data: data}, nil
}

// Nodes descriptions of every registered node, in registration order.
func (e *Engine) Nodes() []NodeDescription {
	nodes := e.NodeRegistry.GetNodes()
	descriptions := make([]NodeDescription, 0, len(nodes))
	for _, node := range nodes {
		descriptions = append(descriptions, node.Description())
	}
	return descriptions
}

// ListExecutions snapshot of the suspended executions.
func (e *Engine) ListExecutions() []Execution {
	return e.Executions.List()
}

// CancelExecution abort a suspended execution, false if it is not running.
func (e *Engine) CancelExecution(id CombinedKey) bool {
	return e.Executions.Cancel(id)
}

// GracefulShutDown cancel running executions and close all services before shutdown.
func (e *Engine) GracefulShutDown() {
	Logger.Infof("Received termination signal...")
	e.Executions.CancelAll()
	e.ServiceRegistry.StopAll()
	_ = Logger.Sync()
}
