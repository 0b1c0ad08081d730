// Package cleanup implements the compensating-action registry used by the
// build pipelines. Steps that mutate durable or sensitive state (keystore
// copies, credential injection into gradle properties, produced archives)
// register an undo action here; the orchestrator runs one execution pass at
// the end of every build, success or failure, so secret material never
// survives in the working tree.
package cleanup

import (
	"fmt"
	"io"
	"sync"
)

// Action is a compensating operation registered by a pipeline step.
type Action struct {
	Name string
	Run  func() error
}

// Registry holds compensating actions and executes them in reverse
// registration order. The zero value is not usable; create one with New and
// pass the handle into the orchestrator and pipelines explicitly.
type Registry struct {
	mu        sync.Mutex
	actions   []Action
	executing bool
	warnings  io.Writer // nil = silent
}

// New creates a Registry. Warnings from failed compensations are written to w.
func New(w io.Writer) *Registry {
	return &Registry{warnings: w}
}

// Register appends a compensating action. Pipelines only ever append; the
// orchestrator (or the top-level signal handler) owns Execute and Clear.
func (r *Registry) Register(name string, fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, Action{Name: name, Run: fn})
}

// Len returns the number of pending actions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Execute runs all registered actions in reverse registration order (most
// recent mutation undone first). A failing action is logged and the pass
// continues; the registry never propagates a compensation error. Calling
// Execute while a pass is in progress is a no-op, so a second interrupt
// signal or a compensation that itself triggers Execute cannot double-run
// the pass. The action list is cleared unconditionally after the pass.
func (r *Registry) Execute() {
	r.mu.Lock()
	if r.executing {
		r.mu.Unlock()
		return
	}
	r.executing = true
	actions := r.actions
	r.actions = nil
	r.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if err := a.Run(); err != nil {
			r.warnf("cleanup %q failed: %v", a.Name, err)
		}
	}

	r.mu.Lock()
	r.actions = nil // anything registered mid-pass is discarded too
	r.executing = false
	r.mu.Unlock()
}

// Clear discards all registered actions without running them. Reserved for
// explicit state resets outside the build flow; every build run ends with
// exactly one Execute call before Clear is ever relevant.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}

func (r *Registry) warnf(format string, args ...interface{}) {
	if r.warnings != nil {
		fmt.Fprintf(r.warnings, "warning: "+format+"\n", args...)
	}
}
