package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseTextConcatenatesTextBlocks(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "first "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "second"},
	}}
	assert.Equal(t, "first second", resp.Text())

	empty := &MessageResponse{}
	assert.Empty(t, empty.Text())
}

func TestEstimateTokens(t *testing.T) {
	assert.EqualValues(t, 0, EstimateTokens(""))
	assert.EqualValues(t, 1, EstimateTokens("ab"))
	assert.EqualValues(t, 1, EstimateTokens("abcd"))
	assert.EqualValues(t, 2, EstimateTokens("abcde"))
	assert.EqualValues(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailureNone, Classify(nil))
	assert.Equal(t, FailureMalformed, Classify(ErrMalformedResponse))
	assert.Equal(t, FailureTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, FailureTimeout, Classify(context.Canceled))
	assert.Equal(t, FailureProvider, Classify(assert.AnError))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(ErrMalformedResponse))
	assert.False(t, Retryable(context.DeadlineExceeded))
	assert.False(t, Retryable(assert.AnError))
}
