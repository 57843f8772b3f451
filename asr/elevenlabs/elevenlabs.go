// Package elevenlabs implements the synchronous-upload ASR adapter for the
// ElevenLabs speech-to-text API.
//
// Request shape: multipart POST {base}/v1/speech-to-text with fields file,
// model_id=scribe_v1, diarize, and an xi-api-key header. Terminal response
// shape: {text, language_code, words:[{text, start, end, speaker_id, type}]}
// where speaker_id is a vendor-assigned string ("speaker_0", ...). Mapping:
// word entries (type "word") are grouped into per-speaker runs and remapped
// to first-appearance "Speaker N" labels.
package elevenlabs

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
	baseURL      = "https://api.elevenlabs.io"
	defaultModel = "scribe_v1"
)

// Provider implements asr.Provider for ElevenLabs.
type Provider struct {
	client *httpclient.Client
}

// New creates the ElevenLabs adapter.
func New() (*Provider, error) {
	return newWithBaseURL(baseURL)
}

func newWithBaseURL(url string) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		Vendor:  vendors.ElevenLabs,
		BaseURL: url,
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

// Name returns the vendor id.
func (p *Provider) Name() string { return vendors.ElevenLabs }

// scribeResponse is the terminal response shape.
type scribeResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Words        []struct {
		Text      string  `json:"text"`
		Start     float64 `json:"start"`
		End       float64 `json:"end"`
		SpeakerID string  `json:"speaker_id"`
		Type      string  `json:"type"`
	} `json:"words"`
}

// Transcribe uploads the media and parses the synchronous response.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	if err := vendors.ValidateFor(vendors.ElevenLabs, vendors.CapabilityASR, req.Credential); err != nil {
		return nil, err
	}
	key, err := signing.HeaderKey(vendors.ElevenLabs, "api_key", req.Credential.Get("api_key"))
	if err != nil {
		return nil, err
	}

	fields := map[string]string{"model_id": defaultModel}
	if req.Diarize {
		fields["diarize"] = "true"
	}

	req.Log.Record(vendorlog.DirRequest, "POST /v1/speech-to-text model_id="+defaultModel, nil)
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/speech-to-text",
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
			r.Header.Set("xi-api-key", key)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	req.Log.Record(vendorlog.DirResponse, "speech-to-text result", resp.Body)

	var sr scribeResponse
	if err := json.Unmarshal(resp.Body, &sr); err != nil {
		return nil, errors.VendorProtocol(vendors.ElevenLabs, resp.Body).WithCause(err)
	}
	if sr.Text == "" && len(sr.Words) == 0 {
		return nil, errors.UnsupportedFormat(vendors.ElevenLabs, "no speech recognized in media")
	}

	var raw []asr.RawSegment
	var lastEnd float64
	for _, w := range sr.Words {
		if w.Type != "" && w.Type != "word" {
			continue
		}
		raw = append(raw, asr.RawSegment{
			Speaker: w.SpeakerID,
			Start:   w.Start,
			End:     w.End,
			Text:    w.Text,
		})
		if w.End > lastEnd {
			lastEnd = w.End
		}
	}
	if len(raw) == 0 {
		raw = append(raw, asr.RawSegment{Start: 0, End: 0, Text: sr.Text})
	}

	segments := asr.MergeAdjacent(asr.Normalize(raw))

	return &asr.Transcript{
		VendorID: vendors.ElevenLabs,
		Language: sr.LanguageCode,
		Duration: lastEnd,
		Segments: segments,
		Raw:      resp.Body,
	}, nil
}
