package circuit

import (
	"context"
	"errors"

	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/llmerrors"
)

// Middleware rejects calls while the breaker is open. Caller cancellation and
// request-level errors (auth, bad prompt) do not count against the provider.
func Middleware(provider string, breaker Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					return llm.CompletionResponse{}, &Error{Provider: provider, State: breaker.GetState()}
				}

				resp, err := next.Complete(ctx, req)
				if counts(err) {
					breaker.Record(err == nil)
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

func counts(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch llmerrors.TypeOf(err) {
	case llmerrors.ErrorTypeAuth, llmerrors.ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}
