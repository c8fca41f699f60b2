// Package validation rejects completions that carry no usable text.
package validation

import (
	"context"
	"strings"

	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/llmerrors"
)

// EmptyResponseMiddleware turns a whitespace-only completion into an
// ErrorTypeEmptyResponse error so the retry middleware can try again.
func EmptyResponseMiddleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
				}
				if strings.TrimSpace(resp.Content) == "" {
					return resp, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
						"model "+next.GetModelName()+" returned no text (stop reason: "+stopReason(resp)+")")
				}
				return resp, nil
			},
			next.GetModelName,
		)
	}
}

func stopReason(resp llm.CompletionResponse) string {
	if resp.StopReason == "" {
		return "unknown"
	}
	return resp.StopReason
}
