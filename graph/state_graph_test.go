//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, state State) (State, error) {
	return state, nil
}

func TestStateGraphCompile(t *testing.T) {
	g, err := NewStateGraph().
		AddNode("a", noop).
		AddNode("b", noop, WithDescription("second")).
		AddEdge("a", "b").
		SetEntryPoint("a").
		SetFinishPoint("b").
		Compile()
	require.NoError(t, err)
	assert.Equal(t, "a", g.EntryPoint())
	assert.Equal(t, []string{"a", "b"}, g.NodeIDs())

	node, exists := g.GetNode("b")
	require.True(t, exists)
	assert.Equal(t, "second", node.Description)
}

func TestStateGraphBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *StateGraph
		want  string
	}{
		{
			name: "duplicate node",
			build: func() *StateGraph {
				return NewStateGraph().AddNode("a", noop).AddNode("a", noop).SetEntryPoint("a")
			},
			want: "already exists",
		},
		{
			name: "edge from unknown node",
			build: func() *StateGraph {
				return NewStateGraph().AddNode("a", noop).AddEdge("missing", "a").SetEntryPoint("a")
			},
			want: "missing",
		},
		{
			name: "no entry point",
			build: func() *StateGraph {
				return NewStateGraph().AddNode("a", noop)
			},
			want: "entry point",
		},
		{
			name: "empty graph",
			build: func() *StateGraph {
				return NewStateGraph()
			},
			want: "at least one node",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStateCloneIsShallowIndependent(t *testing.T) {
	original := State{"k": "v"}
	clone := original.Clone()
	clone["k"] = "changed"
	assert.Equal(t, "v", original["k"])
}

func TestNodeSpecEdgeHelpers(t *testing.T) {
	node := &NodeSpec{
		Name:      "n",
		AgentType: "",
		Edges: map[string][]string{
			EdgeSuccess: {"ok"},
			EdgeFailure: {"bad"},
		},
	}
	assert.Equal(t, DefaultAgentType, node.EffectiveAgentType())
	assert.Equal(t, 2, node.EdgeCount())
	assert.True(t, node.HasConditionalRouting())
	assert.Equal(t, "ok", node.EdgeTarget(EdgeSuccess))
	assert.Equal(t, "", node.EdgeTarget(EdgeDefault))
}
