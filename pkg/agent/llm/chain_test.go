package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapClient(t *testing.T) {
	completeCalled := false

	client := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			completeCalled = true
			return CompletionResponse{Content: "wrapped"}, nil
		},
		func() string { return "wrapped-model" },
	)

	resp, err := client.Complete(context.Background(), NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.True(t, completeCalled)
	assert.Equal(t, "wrapped", resp.Content)
	assert.Equal(t, "wrapped-model", client.GetModelName())
}

func TestChainOrder(t *testing.T) {
	var order []string

	base := WrapClient(
		func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			order = append(order, "base")
			return CompletionResponse{Content: "ok"}, nil
		},
		func() string { return "base-model" },
	)

	tag := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			return WrapClient(
				func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
					order = append(order, name)
					return next.Complete(ctx, req)
				},
				next.GetModelName,
			)
		}
	}

	client := Chain(base, tag("first"), nil, tag("second"))
	_, err := client.Complete(context.Background(), NewCompletionRequest(nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "base"}, order)
	assert.Equal(t, "base-model", client.GetModelName())
}
