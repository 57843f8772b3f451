// Package openaicompat implements the summarization adapter for vendors
// exposing an OpenAI-compatible chat completions API. One dialect serves
// OpenAI, Groq, Zhipu, Aliyun, and Tencent lkeap; the vendors differ only in
// base URL, model binding, and which credential field carries the bearer
// token.
//
// Request shape: JSON POST {base}/chat/completions with messages, a fixed
// temperature, and a bearer Authorization header. Terminal response shape:
// choices[0].message.content plus optional usage counters.
package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/httpclient"
	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/signing"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

const (
	openaiBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"
	zhipuBaseURL  = "https://open.bigmodel.cn/api/paas/v4"
	lkeapBaseURL  = "https://api.lkeap.cloud.tencent.com/v1"
	aliyunBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

const (
	temperature = 0.3
	maxTokens   = 4096
)

// Provider implements llm.Provider against an OpenAI-compatible endpoint.
type Provider struct {
	vendorID string
	model    string
	baseURL  string
	// keyField names the credential field carrying the bearer token.
	keyField string
	// urlField names an optional credential field overriding the base URL.
	urlField string
}

// NewOpenAI creates the adapter bound to api.openai.com.
func NewOpenAI() *Provider {
	return &Provider{vendorID: vendors.OpenAI, model: "gpt-4o", baseURL: openaiBaseURL, keyField: "api_key"}
}

// NewGroq creates the adapter bound to api.groq.com.
func NewGroq() *Provider {
	return &Provider{vendorID: vendors.Groq, model: "llama-3.3-70b-versatile", baseURL: groqBaseURL, keyField: "api_key"}
}

// NewZhipu creates the adapter bound to open.bigmodel.cn.
func NewZhipu() *Provider {
	return &Provider{vendorID: vendors.Zhipu, model: "glm-4-flash", baseURL: zhipuBaseURL, keyField: "api_key"}
}

// NewTencent creates the adapter bound to the lkeap compatible endpoint.
// Tencent has no separate API key for it; the account secret_key is the
// bearer token.
func NewTencent() *Provider {
	return &Provider{vendorID: vendors.Tencent, model: "deepseek-v3", baseURL: lkeapBaseURL, keyField: "secret_key"}
}

// NewAliyun creates the adapter bound to the dashscope compatible endpoint.
// The credential may carry a url field overriding the endpoint.
func NewAliyun() *Provider {
	return &Provider{vendorID: vendors.Aliyun, model: "qwen-plus", baseURL: aliyunBaseURL, keyField: "api_key", urlField: "url"}
}

// Name returns the vendor id.
func (p *Provider) Name() string { return p.vendorID }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

// Summarize posts the rendered prompt to the chat completions endpoint.
func (p *Provider) Summarize(ctx context.Context, req llm.Request) (*llm.Summary, error) {
	if err := vendors.ValidateFor(p.vendorID, vendors.CapabilityLLM, req.Credential); err != nil {
		return nil, err
	}
	auth, err := signing.Bearer(p.vendorID, req.Credential.Get(p.keyField))
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(httpclient.Config{
		Vendor:  p.vendorID,
		BaseURL: p.resolveBaseURL(req.Credential),
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, err
	}

	body := chatRequest{
		Model:       p.model,
		Messages:    llm.BuildMessages(req),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	req.Log.Record(vendorlog.DirRequest, "POST /chat/completions model="+p.model, nil)
	resp, err := client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
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

	return ParseChatResponse(p.vendorID, p.model, resp.Body)
}

// resolveBaseURL applies the credential URL override. Callers sometimes paste
// the full completions endpoint, so the operation suffix is stripped.
func (p *Provider) resolveBaseURL(cred vendors.Credential) string {
	if p.urlField == "" {
		return p.baseURL
	}
	override := strings.TrimSpace(cred.Get(p.urlField))
	if override == "" {
		return p.baseURL
	}
	override = strings.TrimSuffix(override, "/")
	override = strings.TrimSuffix(override, "/chat/completions")
	return override
}

// ParseChatResponse maps a completions body to a normalized summary. The
// minimax adapter shares it; both vendors speak the same response shape.
func ParseChatResponse(vendorID, model string, body []byte) (*llm.Summary, error) {
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, errors.VendorProtocol(vendorID, body).WithCause(err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return nil, errors.VendorProtocol(vendorID, body).WithDetail("reason", "empty completion")
	}
	if cr.Model != "" {
		model = cr.Model
	}
	return &llm.Summary{
		VendorID: vendorID,
		Model:    model,
		Markdown: cr.Choices[0].Message.Content,
		Usage:    cr.Usage,
		Raw:      body,
	}, nil
}
