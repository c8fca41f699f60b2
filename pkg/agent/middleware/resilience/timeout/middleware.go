// Package timeout bounds each completion call with its own deadline.
package timeout

import (
	"context"
	"time"

	"ideenfinder/pkg/agent/llm"
)

// Middleware gives every request a context that expires after duration.
// A non-positive duration leaves the request unbounded.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if duration <= 0 {
					return next.Complete(ctx, req)
				}
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req)
			},
			next.GetModelName,
		)
	}
}
