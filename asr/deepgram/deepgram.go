// Package deepgram implements the synchronous-upload ASR adapter for the
// Deepgram listen API.
//
// Request shape: POST {base}/v1/listen?model=nova-2&smart_format=true
// (&diarize=true&language=..) with the raw media bytes as the body and a
// "Token <key>" Authorization header. Terminal response shape:
// results.channels[0].alternatives[0] carrying the transcript plus a word
// stream [{word, start, end, speaker}] with integer speaker ids when
// diarization was requested. Mapping: words are grouped into per-speaker
// runs, then speaker ids are remapped to first-appearance "Speaker N".
package deepgram

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/httpclient"
	"github.com/taoxee/scribeflow/signing"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

const (
	baseURL      = "https://api.deepgram.com"
	defaultModel = "nova-2"
)

// Provider implements asr.Provider for Deepgram.
type Provider struct {
	client *httpclient.Client
}

// New creates the Deepgram adapter.
func New() (*Provider, error) {
	return newWithBaseURL(baseURL)
}

func newWithBaseURL(url string) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		Vendor:  vendors.Deepgram,
		BaseURL: url,
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

// Name returns the vendor id.
func (p *Provider) Name() string { return vendors.Deepgram }

// listenResponse is the terminal response shape.
type listenResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string `json:"transcript"`
				Words      []struct {
					Word    string  `json:"word"`
					Start   float64 `json:"start"`
					End     float64 `json:"end"`
					Speaker *int    `json:"speaker,omitempty"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe streams the media bytes to the listen endpoint.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	if err := vendors.ValidateFor(vendors.Deepgram, vendors.CapabilityASR, req.Credential); err != nil {
		return nil, err
	}
	key, err := signing.HeaderKey(vendors.Deepgram, "api_key", req.Credential.Get("api_key"))
	if err != nil {
		return nil, err
	}

	query := map[string]string{
		"model":        defaultModel,
		"smart_format": "true",
	}
	if req.Diarize {
		query["diarize"] = "true"
	}
	if req.Language != "" {
		query["language"] = req.Language
	}

	req.Log.Record(vendorlog.DirRequest, "POST /v1/listen model="+defaultModel, nil)
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/v1/listen",
		Query:   query,
		Headers: map[string]string{"Content-Type": req.Media.Mime},
		Body:    req.Media.Data,
		Sign: func(r *http.Request) error {
			r.Header.Set("Authorization", "Token "+key)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	req.Log.Record(vendorlog.DirResponse, "listen result", resp.Body)

	var lr listenResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return nil, errors.VendorProtocol(vendors.Deepgram, resp.Body).WithCause(err)
	}
	if len(lr.Results.Channels) == 0 || len(lr.Results.Channels[0].Alternatives) == 0 {
		return nil, errors.VendorProtocol(vendors.Deepgram, resp.Body)
	}

	channel := lr.Results.Channels[0]
	alt := channel.Alternatives[0]
	if alt.Transcript == "" {
		return nil, errors.UnsupportedFormat(vendors.Deepgram, "no speech recognized in media")
	}

	raw := make([]asr.RawSegment, 0, len(alt.Words))
	for _, w := range alt.Words {
		speaker := ""
		if w.Speaker != nil {
			speaker = strconv.Itoa(*w.Speaker)
		}
		raw = append(raw, asr.RawSegment{
			Speaker: speaker,
			Start:   w.Start,
			End:     w.End,
			Text:    w.Word,
		})
	}
	if len(raw) == 0 {
		raw = append(raw, asr.RawSegment{Start: 0, End: lr.Metadata.Duration, Text: alt.Transcript})
	}

	segments := asr.MergeAdjacent(asr.Normalize(raw))
	duration := lr.Metadata.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return &asr.Transcript{
		VendorID: vendors.Deepgram,
		Language: channel.DetectedLanguage,
		Duration: duration,
		Segments: segments,
		Raw:      resp.Body,
	}, nil
}
