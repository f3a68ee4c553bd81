package core

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CombinedKey a simple wrapper for key combination.
type CombinedKey string

// CombinedKeyFromRaw combine multiple strings into a single key.
func CombinedKeyFromRaw(args ...string) CombinedKey {
	tempKey := strings.Join(args, "-")
	return CombinedKey(tempKey)
}

// Execution A suspended execution, waiting for its node to resolve.
type Execution struct {
	ID        CombinedKey `json:"id"`
	Node      string      `json:"node"`
	StartedAt time.Time   `json:"startedAt"`

	cancel context.CancelFunc
}

// ExecutionTable Tracks running executions, with an RWMutex.
type ExecutionTable struct {
	*sync.RWMutex
	executions map[CombinedKey]*Execution
	seq        uint64
}

// NewExecutionTable return a new ExecutionTable.
func NewExecutionTable() *ExecutionTable {
	return &ExecutionTable{RWMutex: &sync.RWMutex{}, executions: make(map[CombinedKey]*Execution)}
}

// Start Store a new execution, thread-safe.
func (t *ExecutionTable) Start(node string, cancel context.CancelFunc) Execution {
	t.Lock()
	defer t.Unlock()
	t.seq++
	exec := &Execution{
		ID:        CombinedKeyFromRaw(node, strconv.FormatUint(t.seq, 10)),
		Node:      node,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	t.executions[exec.ID] = exec
	return *exec
}

// Get Get an execution, thread-safe.
func (t *ExecutionTable) Get(id CombinedKey) (Execution, bool) {
	t.RLock()
	defer t.RUnlock()
	exec, ok := t.executions[id]
	if !ok {
		return Execution{}, false
	}
	return *exec, true
}

// Delete Delete an execution, thread-safe.
func (t *ExecutionTable) Delete(id CombinedKey) {
	t.Lock()
	defer t.Unlock()
	delete(t.executions, id)
}

// Cancel cancel the execution context, the execution removes itself once its node returns.
func (t *ExecutionTable) Cancel(id CombinedKey) bool {
	t.RLock()
	exec, ok := t.executions[id]
	t.RUnlock()
	if !ok {
		return false
	}
	exec.cancel()
	return true
}

// CancelAll cancel every running execution.
func (t *ExecutionTable) CancelAll() {
	t.RLock()
	defer t.RUnlock()
	for _, exec := range t.executions {
		exec.cancel()
	}
}

// List snapshot of running executions, oldest first.
func (t *ExecutionTable) List() []Execution {
	t.RLock()
	defer t.RUnlock()
	list := make([]Execution, 0, len(t.executions))
	for _, exec := range t.executions {
		list = append(list, *exec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartedAt.Before(list[j].StartedAt)
	})
	return list
}
