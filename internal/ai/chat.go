package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chat-completions wire types shared by openai compatible providers.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func buildChatContent(prompt string, media *Media) (interface{}, error) {
	if media.empty() {
		return prompt, nil
	}
	if !strings.HasPrefix(media.MIMEType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrMediaUnsupported, media.MIMEType)
	}
	dataURL := "data:" + media.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(media.Data)
	return []chatPart{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
	}, nil
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, in interface{}, out interface{}, provider string) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s request failed: %s: %s", provider, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func chatCompletion(ctx context.Context, client *http.Client, baseURL string, headers map[string]string, model, prompt string, media *Media, provider string) (string, error) {
	content, err := buildChatContent(prompt, media)
	if err != nil {
		return "", err
	}
	reqBody := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: content}},
		Stream:   false,
	}
	var out chatResponse
	endpoint := strings.TrimRight(baseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, client, endpoint, headers, reqBody, &out, provider); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", provider)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
