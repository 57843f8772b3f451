// Package minimax implements the summarization adapter for the Minimax chat
// completions API, which is OpenAI-compatible except that accounts scoped to
// a group must carry a GroupId query parameter. Two endpoints exist, one for
// the CN platform and one for the global platform, with the same protocol.
package minimax

import (
	"context"
	"net/http"

	"github.com/taoxee/scribeflow/httpclient"
	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/llm/openaicompat"
	"github.com/taoxee/scribeflow/signing"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

const (
	cnBaseURL     = "https://api.minimax.chat/v1"
	globalBaseURL = "https://api.minimaxi.chat/v1"

	defaultModel = "MiniMax-Text-01"

	temperature = 0.3
	maxTokens   = 4096
)

// Provider implements llm.Provider for Minimax.
type Provider struct {
	vendorID string
	baseURL  string
}

// NewCN creates the adapter bound to the CN platform.
func NewCN() *Provider {
	return &Provider{vendorID: vendors.Minimax, baseURL: cnBaseURL}
}

// NewGlobal creates the adapter bound to the global platform.
func NewGlobal() *Provider {
	return &Provider{vendorID: vendors.MinimaxGlobal, baseURL: globalBaseURL}
}

// Name returns the vendor id.
func (p *Provider) Name() string { return p.vendorID }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// Summarize posts the rendered prompt, attaching the GroupId parameter when
// the credential carries one.
func (p *Provider) Summarize(ctx context.Context, req llm.Request) (*llm.Summary, error) {
	if err := vendors.ValidateFor(p.vendorID, vendors.CapabilityLLM, req.Credential); err != nil {
		return nil, err
	}
	auth, err := signing.Bearer(p.vendorID, req.Credential.Get("api_key"))
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(httpclient.Config{
		Vendor:  p.vendorID,
		BaseURL: p.baseURL,
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, err
	}

	var query map[string]string
	if groupID := req.Credential.Get("group_id"); groupID != "" {
		name, value, err := signing.QueryKey(p.vendorID, "GroupId", groupID)
		if err != nil {
			return nil, err
		}
		query = map[string]string{name: value}
	}

	body := chatRequest{
		Model:       defaultModel,
		Messages:    llm.BuildMessages(req),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	req.Log.Record(vendorlog.DirRequest, "POST /chat/completions model="+defaultModel, nil)
	resp, err := client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Query:  query,
		Body:   body,
		Sign: func(r *http.Request) error {
			r.Header.Set("Authorization", auth)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	req.Log.Record(vendorlog.DirResponse, "chat completion", resp.Body)

	return openaicompat.ParseChatResponse(p.vendorID, defaultModel, resp.Body)
}
