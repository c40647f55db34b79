//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package interaction

import (
	"errors"
	"fmt"
	"time"
)

// ExecutionInterrupted is a data-carrying control-flow marker, not error
// flow: an agent returns it from Run to pause the execution with a
// human-interaction request and checkpoint state. The runner hands it to
// the Handler instead of treating it as a failure.
type ExecutionInterrupted struct {
	// ThreadID correlates the paused execution with its resume.
	ThreadID string
	// Request is the human-interaction request to surface.
	Request *Request
	// Checkpoint captures the state needed to resume.
	Checkpoint *CheckpointData
	// Timestamp is when the interruption occurred.
	Timestamp time.Time
}

// Error implements the error interface.
func (e *ExecutionInterrupted) Error() string {
	node := ""
	if e.Checkpoint != nil {
		node = e.Checkpoint.NodeName
	}
	return fmt.Sprintf("execution interrupted on thread %s at node %s", e.ThreadID, node)
}

// Interrupt creates a new ExecutionInterrupted for the given thread.
func Interrupt(threadID string, req *Request, checkpoint *CheckpointData) *ExecutionInterrupted {
	if req != nil && req.ThreadID == "" {
		req.ThreadID = threadID
	}
	return &ExecutionInterrupted{
		ThreadID:   threadID,
		Request:    req,
		Checkpoint: checkpoint,
		Timestamp:  time.Now().UTC(),
	}
}

// IsInterrupt reports whether err carries an ExecutionInterrupted.
func IsInterrupt(err error) bool {
	var interrupted *ExecutionInterrupted
	return errors.As(err, &interrupted)
}

// AsInterrupt extracts an ExecutionInterrupted from an error chain.
func AsInterrupt(err error) (*ExecutionInterrupted, bool) {
	var interrupted *ExecutionInterrupted
	if errors.As(err, &interrupted) {
		return interrupted, true
	}
	return nil, false
}
