package openaiofficial

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideenfinder/pkg/agent/llm"
	"ideenfinder/pkg/agent/llmerrors"
)

func TestSupportsTemperature(t *testing.T) {
	assert.True(t, supportsTemperature("gpt-4o"))
	assert.False(t, supportsTemperature("o3-mini"))
	assert.False(t, supportsTemperature("gpt-5"))
}

func TestCompleteClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		want   llmerrors.ErrorType
	}{
		{http.StatusUnauthorized, llmerrors.ErrorTypeAuth},
		{http.StatusTooManyRequests, llmerrors.ErrorTypeRateLimit},
		{http.StatusServiceUnavailable, llmerrors.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/responses", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"x","code":"y"}}`)
			}))
			defer srv.Close()

			client := NewOfficialClientWithModel("k", "gpt-4o", option.WithBaseURL(srv.URL+"/"))
			_, err := client.Complete(context.Background(), llm.CompletionRequest{
				Messages:  []llm.CompletionMessage{llm.NewUserMessage("x")},
				MaxTokens: 10,
			})
			require.Error(t, err)
			assert.Equal(t, tt.want, llmerrors.TypeOf(err))
		})
	}
}

func TestCanceledContextPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOfficialClientWithModel("k", "gpt-4o", option.WithBaseURL("http://127.0.0.1:1/"))
	_, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.CompletionMessage{llm.NewUserMessage("x")},
		MaxTokens: 10,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "gpt-4o", client.GetModelName())
}
