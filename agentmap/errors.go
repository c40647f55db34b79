//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package agentmap

import (
	"errors"
	"fmt"
	"os"

	"trpc.group/trpc-go/trpc-agentmap-go/bundle"
	"trpc.group/trpc-go/trpc-agentmap-go/workflow"
)

// Boundary error categories. Every adapter (CLI, HTTP, serverless) maps
// runtime failures through the same two sentinels.
var (
	// ErrGraphNotFound covers missing workflow files, bundles, graphs
	// and thread records.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrInvalidInputs covers malformed workflow specs and bad caller
	// input.
	ErrInvalidInputs = errors.New("invalid inputs")
)

// GraphNotFoundError wraps ErrGraphNotFound with the missing name.
func GraphNotFoundError(name string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrGraphNotFound, name, cause)
	}
	return fmt.Errorf("%w: %s", ErrGraphNotFound, name)
}

// InvalidInputsError wraps ErrInvalidInputs with detail.
func InvalidInputsError(detail string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInputs, detail, cause)
	}
	return fmt.Errorf("%w: %s", ErrInvalidInputs, detail)
}

// mapBoundaryError classifies an internal error at the façade boundary.
// Missing files and undeclared graph names become ErrGraphNotFound,
// malformed workflow files become ErrInvalidInputs; everything else
// passes through.
func mapBoundaryError(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrGraphNotFound) || errors.Is(err, ErrInvalidInputs) {
		return err
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, bundle.ErrGraphNotFound) {
		return GraphNotFoundError(name, err)
	}
	if errors.Is(err, workflow.ErrInvalidWorkflow) {
		return InvalidInputsError("malformed workflow", err)
	}
	return err
}
