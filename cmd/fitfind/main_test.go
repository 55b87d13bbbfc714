package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/pipeline"
)

type scriptedContinuer struct {
	results []*pipeline.Result
	convs   []llm.Conversation
}

func (s *scriptedContinuer) Continue(ctx context.Context, conv llm.Conversation, feedback string, opts pipeline.Options) *pipeline.Result {
	s.convs = append(s.convs, conv)
	res := s.results[0]
	s.results = s.results[1:]
	return res
}

func scriptedAnswers(n int) func() (string, bool, error) {
	return func() (string, bool, error) {
		if n == 0 {
			return "", false, nil
		}
		n--
		return "more specific colours", true, nil
	}
}

func TestRedoLoopKeepsLastGoodResultAfterFailedRound(t *testing.T) {
	first := &pipeline.Result{Queries: []string{"red dress"}, Conversation: &llm.Conversation{Model: "first"}}
	failed := &pipeline.Result{Queries: []string{}, Failure: &pipeline.Failure{Kind: pipeline.FailureUpstream, Message: "model unavailable"}}
	second := &pipeline.Result{Queries: []string{"burgundy dress"}, Conversation: &llm.Conversation{Model: "second"}}
	c := &scriptedContinuer{results: []*pipeline.Result{failed, second}}

	var shown []*pipeline.Result
	got := redoLoop(context.Background(), c, first, pipeline.Options{}, scriptedAnswers(2), func(r *pipeline.Result) {
		shown = append(shown, r)
	})

	assert.Same(t, second, got)
	assert.Equal(t, []*pipeline.Result{first, failed, second}, shown)
	require.Len(t, c.convs, 2)
	assert.Equal(t, "first", c.convs[0].Model)
	// the failed round does not lose the conversation
	assert.Equal(t, "first", c.convs[1].Model)
}

func TestRedoLoopFailedRoundKeepsPreviousResult(t *testing.T) {
	first := &pipeline.Result{Queries: []string{"red dress"}, Conversation: &llm.Conversation{Model: "first"}}
	failed := &pipeline.Result{Queries: []string{}, Failure: &pipeline.Failure{Kind: pipeline.FailureUpstream, Message: "model unavailable"}}
	c := &scriptedContinuer{results: []*pipeline.Result{failed}}

	got := redoLoop(context.Background(), c, first, pipeline.Options{}, scriptedAnswers(1), func(*pipeline.Result) {})
	assert.Same(t, first, got)
	assert.Nil(t, got.Failure)
}

func TestRedoLoopWithoutConversation(t *testing.T) {
	res := &pipeline.Result{Queries: []string{}, Failure: &pipeline.Failure{Kind: pipeline.FailureNoItems}}
	c := &scriptedContinuer{}

	got := redoLoop(context.Background(), c, res, pipeline.Options{}, scriptedAnswers(3), func(*pipeline.Result) {})
	assert.Same(t, res, got)
	assert.Empty(t, c.convs)
}
