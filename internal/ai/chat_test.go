package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildChatContent(t *testing.T) {
	content, err := buildChatContent("hello", nil)
	require.NoError(t, err)
	require.Equal(t, "hello", content)

	content, err = buildChatContent("hello", &Media{MIMEType: "image/png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	parts, ok := content.([]chatPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	require.Equal(t, "data:image/png;base64,AQID", parts[1].ImageURL.URL)

	_, err = buildChatContent("hello", &Media{MIMEType: "audio/mp3", Data: []byte{1}})
	require.ErrorIs(t, err, ErrMediaUnsupported)
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/chat/completions":
			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "gpt", req.Model)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" note "}}]}`))
		case "/embeddings":
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]string{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	text, err := p.Generate(context.Background(), "gpt", "prompt", nil)
	require.NoError(t, err)
	require.Equal(t, "note", text)
	vec, err := p.Embed(context.Background(), "emb", "text", "")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer srv.Close()

	p, err := newOpenAIProvider(map[string]string{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "gpt", "prompt", nil)
	require.ErrorContains(t, err, "quota exceeded")
}

func TestProvidersWithoutKey(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "openrouter"} {
		p, err := NewProvider(name, map[string]string{})
		require.NoError(t, err, name)
		_, err = p.Generate(context.Background(), "m", "p", nil)
		require.ErrorIs(t, err, ErrUnavailable, name)
	}
}
