//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func summaryOf(results ...NodeResult) *ExecutionSummary {
	return &ExecutionSummary{GraphName: "flow", Results: results}
}

func ok(node string) NodeResult   { return NodeResult{Node: node, Success: true} }
func fail(node string) NodeResult { return NodeResult{Node: node, Success: false, Error: "boom"} }

func TestEvaluateSuccessAllNodes(t *testing.T) {
	cfg := PolicyConfig{Type: PolicyAllNodes}
	assert.True(t, EvaluateSuccess(summaryOf(ok("a"), ok("b")), cfg))
	assert.False(t, EvaluateSuccess(summaryOf(ok("a"), fail("b")), cfg))
	// Empty type defaults to all_nodes; an empty run is a success.
	assert.True(t, EvaluateSuccess(summaryOf(), PolicyConfig{}))
}

func TestEvaluateSuccessFinalNode(t *testing.T) {
	cfg := PolicyConfig{Type: PolicyFinalNode}
	assert.True(t, EvaluateSuccess(summaryOf(fail("a"), ok("b")), cfg))
	assert.False(t, EvaluateSuccess(summaryOf(ok("a"), fail("b")), cfg))
	assert.False(t, EvaluateSuccess(summaryOf(), cfg))
}

func TestEvaluateSuccessCriticalNodes(t *testing.T) {
	cfg := PolicyConfig{Type: PolicyCriticalNodes, CriticalNodes: []string{"validate"}}
	assert.True(t, EvaluateSuccess(summaryOf(ok("validate"), fail("optional")), cfg))
	assert.False(t, EvaluateSuccess(summaryOf(fail("validate")), cfg))
	// A critical node that never ran fails the policy.
	assert.False(t, EvaluateSuccess(summaryOf(ok("other")), cfg))
	// A critical node that failed on any visit fails, even if retried.
	assert.False(t, EvaluateSuccess(summaryOf(fail("validate"), ok("validate")), cfg))
}

func TestEvaluateSuccessCustom(t *testing.T) {
	RegisterPolicyFunc("policies.test.always_true", func(summary *ExecutionSummary) bool {
		return true
	})
	cfg := PolicyConfig{Type: PolicyCustom, CustomFunc: "policies.test.always_true"}
	assert.True(t, EvaluateSuccess(summaryOf(fail("a")), cfg))

	// Unregistered custom policies evaluate to failure.
	missing := PolicyConfig{Type: PolicyCustom, CustomFunc: "policies.test.missing"}
	assert.False(t, EvaluateSuccess(summaryOf(ok("a")), missing))
}

func TestEvaluateSuccessPanicIsFailure(t *testing.T) {
	RegisterPolicyFunc("policies.test.panics", func(summary *ExecutionSummary) bool {
		panic("bad policy")
	})
	cfg := PolicyConfig{Type: PolicyCustom, CustomFunc: "policies.test.panics"}
	assert.False(t, EvaluateSuccess(summaryOf(ok("a")), cfg))
}

func TestEvaluateSuccessUnknownTypeFallsBack(t *testing.T) {
	cfg := PolicyConfig{Type: "mystery"}
	assert.True(t, EvaluateSuccess(summaryOf(ok("a")), cfg))
	assert.False(t, EvaluateSuccess(summaryOf(fail("a")), cfg))
}

func TestEvaluateSuccessNilSummary(t *testing.T) {
	assert.False(t, EvaluateSuccess(nil, PolicyConfig{}))
}

func TestPolicyConfigValidate(t *testing.T) {
	assert.Empty(t, PolicyConfig{}.Validate())
	assert.Empty(t, PolicyConfig{Type: PolicyFinalNode}.Validate())
	assert.Empty(t, PolicyConfig{Type: PolicyCriticalNodes, CriticalNodes: []string{"a"}}.Validate())
	assert.NotEmpty(t, PolicyConfig{Type: PolicyCriticalNodes}.Validate())
	assert.NotEmpty(t, PolicyConfig{Type: PolicyCustom}.Validate())
	assert.NotEmpty(t, PolicyConfig{Type: PolicyCustom, CustomFunc: "nodots"}.Validate())
	assert.Empty(t, PolicyConfig{Type: PolicyCustom, CustomFunc: "pkg.fn"}.Validate())
	assert.NotEmpty(t, PolicyConfig{Type: "mystery"}.Validate())
}
