package llm

import (
	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Summary is the normalized summarization result.
type Summary struct {
	// VendorID identifies the vendor that produced the summary.
	VendorID string `json:"vendor_id"`
	// Model is the model that produced the response.
	Model string `json:"model"`
	// Markdown is the summary text. Non-empty on success.
	Markdown string `json:"markdown"`
	// Usage reports token consumption when the vendor provides it.
	Usage Usage `json:"usage"`
	// Raw is the vendor response body, kept for the audit log.
	Raw []byte `json:"-"`
}

// Request holds the inputs of one summarization call.
type Request struct {
	// Transcript is the normalized transcript to summarize.
	Transcript *asr.Transcript
	// Credential is the caller-supplied credential for this call only.
	Credential vendors.Credential
	// Prompt overrides the default instruction template when set.
	Prompt *PromptTemplate
	// Log receives the raw request/response capture for the audit trail.
	// May be nil.
	Log *vendorlog.Recorder
}
