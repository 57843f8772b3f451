// Package openai implements the synchronous-upload ASR adapter for
// OpenAI-compatible transcription APIs. It serves both OpenAI and Groq,
// which differ only in base URL and whisper model binding.
//
// Request shape: multipart POST {base}/audio/transcriptions with fields
// file, model, response_format=verbose_json and a bearer Authorization
// header. Terminal response shape: {"text", "language", "duration",
// "segments":[{"start","end","text"}]}. Mapping: each segment becomes one
// normalized segment; the API does no diarization, so the whole transcript
// is synthesized as a single speaker.
package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/httpclient"
	"github.com/taoxee/scribeflow/signing"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

const (
	openaiBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"

	openaiModel = "whisper-1"
	groqModel   = "whisper-large-v3"
)

// Provider implements asr.Provider against an OpenAI-compatible endpoint.
type Provider struct {
	vendorID string
	model    string
	client   *httpclient.Client
}

// NewOpenAI creates the adapter bound to api.openai.com.
func NewOpenAI() (*Provider, error) {
	return newProvider(vendors.OpenAI, openaiBaseURL, openaiModel)
}

// NewGroq creates the adapter bound to api.groq.com.
func NewGroq() (*Provider, error) {
	return newProvider(vendors.Groq, groqBaseURL, groqModel)
}

func newProvider(vendorID, baseURL, model string) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		Vendor:  vendorID,
		BaseURL: baseURL,
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{vendorID: vendorID, model: model, client: client}, nil
}

// Name returns the vendor id.
func (p *Provider) Name() string { return p.vendorID }

// verboseResponse is the verbose_json terminal response shape.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the media and parses the synchronous response.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	if err := vendors.ValidateFor(p.vendorID, vendors.CapabilityASR, req.Credential); err != nil {
		return nil, err
	}
	auth, err := signing.Bearer(p.vendorID, req.Credential.Get("api_key"))
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"model":           p.model,
		"response_format": "verbose_json",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}

	req.Log.Record(vendorlog.DirRequest, "POST /audio/transcriptions model="+p.model, nil)
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/audio/transcriptions",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "file",
				FileName:    req.Media.Name,
				ContentType: req.Media.Mime,
				Data:        req.Media.Data,
			}},
		},
		Sign: func(r *http.Request) error {
			r.Header.Set("Authorization", auth)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	req.Log.Record(vendorlog.DirResponse, "transcription result", resp.Body)

	var vr verboseResponse
	if err := json.Unmarshal(resp.Body, &vr); err != nil {
		return nil, errors.VendorProtocol(p.vendorID, resp.Body).WithCause(err)
	}
	if vr.Text == "" && len(vr.Segments) == 0 {
		return nil, errors.UnsupportedFormat(p.vendorID, "no speech recognized in media")
	}

	raw := make([]asr.RawSegment, 0, len(vr.Segments))
	for _, s := range vr.Segments {
		raw = append(raw, asr.RawSegment{Start: s.Start, End: s.End, Text: s.Text})
	}
	if len(raw) == 0 {
		raw = append(raw, asr.RawSegment{Start: 0, End: vr.Duration, Text: vr.Text})
	}

	segments := asr.Normalize(raw)
	duration := vr.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return &asr.Transcript{
		VendorID: p.vendorID,
		Language: vr.Language,
		Duration: duration,
		Segments: segments,
		Raw:      resp.Body,
	}, nil
}
