package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the current state of a persisted run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind names the operation a run recorded.
type RunKind string

const (
	RunKindSearch  RunKind = "search"
	RunKindResolve RunKind = "resolve"
)

// Valid reports whether k is a known run kind.
func (k RunKind) Valid() bool {
	return k == RunKindSearch || k == RunKindResolve
}

// Run is one recorded search or resolve invocation. Params and Stats hold
// the request and outcome counters as raw JSON so both kinds share a table.
type Run struct {
	ID        string          `json:"id"`
	Kind      RunKind         `json:"kind"`
	Status    RunStatus       `json:"status"`
	Params    json.RawMessage `json:"params,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Error     string          `json:"error,omitempty"`
	Count     int             `json:"count"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Done reports whether the run reached a terminal status.
func (r *Run) Done() bool {
	return r.Status == RunStatusComplete || r.Status == RunStatusFailed
}
