package timeout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/pkg/agent/llm"
)

func slowClient(delay time.Duration) llm.LLMClient {
	return llm.WrapClient(
		func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			select {
			case <-time.After(delay):
				return llm.CompletionResponse{Content: "done"}, nil
			case <-ctx.Done():
				return llm.CompletionResponse{}, ctx.Err()
			}
		},
		func() string { return "slow" },
	)
}

func TestMiddlewareTimesOut(t *testing.T) {
	client := llm.Chain(slowClient(time.Second), Middleware(20*time.Millisecond))

	start := time.Now()
	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMiddlewarePassesFastCalls(t *testing.T) {
	client := llm.Chain(slowClient(time.Millisecond), Middleware(time.Second))

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, "slow", client.GetModelName())
}

func TestMiddlewareZeroDurationUnbounded(t *testing.T) {
	client := llm.Chain(slowClient(10*time.Millisecond), Middleware(0))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
}
