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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendNode(id string) NodeFunc {
	return func(ctx context.Context, state State) (State, error) {
		visited, _ := state["visited"].([]string)
		state["visited"] = append(visited, id)
		return state, nil
	}
}

func TestExecutorLinear(t *testing.T) {
	g, err := NewStateGraph().
		AddNode("a", appendNode("a")).
		AddNode("b", appendNode("b")).
		AddEdge("a", "b").
		SetEntryPoint("a").
		SetFinishPoint("b").
		Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(g)
	require.NoError(t, err)
	final, err := exec.Execute(context.Background(), State{}, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, final["visited"])
}

func TestExecutorConditionalRouting(t *testing.T) {
	condition := func(ctx context.Context, state State) (string, error) {
		if success, ok := state.LastActionSuccess(); ok && !success {
			return "failure", nil
		}
		return "success", nil
	}
	build := func(flag bool) (State, error) {
		g, err := NewStateGraph().
			AddNode("start", func(ctx context.Context, state State) (State, error) {
				state[StateKeyLastActionSuccess] = flag
				return state, nil
			}).
			AddNode("ok", appendNode("ok")).
			AddNode("bad", appendNode("bad")).
			AddConditionalEdges("start", condition, map[string]string{
				"success": "ok",
				"failure": "bad",
			}).
			SetEntryPoint("start").
			Compile()
		if err != nil {
			return nil, err
		}
		exec, err := NewExecutor(g)
		if err != nil {
			return nil, err
		}
		return exec.Execute(context.Background(), State{}, "inv")
	}

	final, err := build(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, final["visited"])

	final, err = build(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad"}, final["visited"])
}

func TestExecutorConditionReturnsNodeID(t *testing.T) {
	// A condition without a path map may return a node ID directly.
	g, err := NewStateGraph().
		AddNode("route", appendNode("route")).
		AddNode("target", appendNode("target")).
		AddConditionalEdges("route", func(ctx context.Context, state State) (string, error) {
			return "target", nil
		}, nil).
		SetEntryPoint("route").
		Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(g)
	require.NoError(t, err)
	final, err := exec.Execute(context.Background(), State{}, "inv")
	require.NoError(t, err)
	assert.Equal(t, []string{"route", "target"}, final["visited"])
}

func TestExecutorUnknownLabelRoutesToEnd(t *testing.T) {
	g, err := NewStateGraph().
		AddNode("route", appendNode("route")).
		AddNode("unreached", appendNode("unreached")).
		AddConditionalEdges("route", func(ctx context.Context, state State) (string, error) {
			return "no-such-label", nil
		}, map[string]string{"other": "unreached"}).
		SetEntryPoint("route").
		Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(g)
	require.NoError(t, err)
	final, err := exec.Execute(context.Background(), State{}, "inv")
	require.NoError(t, err)
	assert.Equal(t, []string{"route"}, final["visited"])
}

func TestExecutorMaxSteps(t *testing.T) {
	g, err := NewStateGraph().
		AddNode("a", appendNode("a")).
		AddNode("b", appendNode("b")).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(g, WithMaxSteps(5))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), State{}, "inv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 5 steps")
}

func TestExecutorNodeErrorWrapsNodeID(t *testing.T) {
	sentinel := errors.New("boom")
	g, err := NewStateGraph().
		AddNode("bad", func(ctx context.Context, state State) (State, error) {
			return state, sentinel
		}).
		SetEntryPoint("bad").
		Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(g)
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), State{}, "inv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node bad")
	assert.True(t, errors.Is(err, sentinel))
}

func TestExecutorNodeCallback(t *testing.T) {
	type visit struct {
		id  string
		err error
	}
	var visits []visit
	g, err := NewStateGraph().
		AddNode("a", appendNode("a")).
		AddNode("b", func(ctx context.Context, state State) (State, error) {
			return state, errors.New("fail")
		}).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Compile()
	require.NoError(t, err)

	exec, err := NewExecutor(g, WithNodeCallback(
		func(nodeID string, state State, duration time.Duration, err error) {
			visits = append(visits, visit{id: nodeID, err: err})
		}))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), State{}, "inv")
	require.Error(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "a", visits[0].id)
	assert.NoError(t, visits[0].err)
	assert.Equal(t, "b", visits[1].id)
	assert.Error(t, visits[1].err)
}

func TestExecutorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewStateGraph().
		AddNode("a", appendNode("a")).
		SetEntryPoint("a").
		MustCompile()
	exec, err := NewExecutor(g)
	require.NoError(t, err)
	_, err = exec.Execute(ctx, State{}, "inv")
	assert.ErrorIs(t, err, context.Canceled)
}
