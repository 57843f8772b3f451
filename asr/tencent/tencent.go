// Package tencent implements the submit-then-poll ASR adapter for Tencent
// Cloud speech recognition.
//
// Request shape: JSON POST to the recognition endpoint with X-TC-Action
// headers (CreateRecTask to submit, DescribeTaskStatus to poll) and a
// canonical-request authorization signed with the date-scoped HMAC-SHA256
// key chain. The media travels base64-encoded in the submit body with
// speaker diarization enabled. Terminal response shape: Response.Data with
// Status (0/1 processing, 2 success, 3 failed) and, on success, a
// ResultDetail list [{StartMs, EndMs, FinalSentence, SpeakerId}]. Mapping:
// each detail sentence becomes one raw segment; numeric SpeakerId values are
// remapped to first-appearance "Speaker N" labels.
package tencent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/httpclient"
	"github.com/taoxee/scribeflow/resilience"
	"github.com/taoxee/scribeflow/signing"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

const (
	host    = "asr.tencentcloudapi.com"
	service = "asr"
	version = "2019-06-14"

	actionSubmit = "CreateRecTask"
	actionPoll   = "DescribeTaskStatus"
)

// Provider implements asr.Provider for Tencent Cloud.
type Provider struct {
	client *httpclient.Client
	poll   resilience.PollConfig
	host   string
	now    func() time.Time
}

// New creates the Tencent adapter.
func New() (*Provider, error) {
	return newWithHost("https://"+host, host)
}

func newWithHost(baseURL, hostHeader string) (*Provider, error) {
	// Submit is retried by the poll-aware caller below, not by the client:
	// re-submitting a task on a transient poll failure would duplicate work.
	client, err := httpclient.New(httpclient.Config{
		Vendor:  vendors.Tencent,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: client,
		poll:   resilience.DefaultPollConfig(),
		host:   hostHeader,
		now:    time.Now,
	}, nil
}

// Name returns the vendor id.
func (p *Provider) Name() string { return vendors.Tencent }

type apiResponse struct {
	Response struct {
		Error *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error,omitempty"`
		Data struct {
			TaskID       int64   `json:"TaskId"`
			Status       int     `json:"Status"`
			StatusStr    string  `json:"StatusStr"`
			ErrorMsg     string  `json:"ErrorMsg"`
			AudioTime    float64 `json:"AudioDuration"`
			ResultDetail []struct {
				StartMs       int64  `json:"StartMs"`
				EndMs         int64  `json:"EndMs"`
				FinalSentence string `json:"FinalSentence"`
				SpeakerID     int    `json:"SpeakerId"`
			} `json:"ResultDetail"`
		} `json:"Data"`
	} `json:"Response"`
}

// Transcribe submits a recognition task and polls until it terminates.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	if err := vendors.ValidateFor(vendors.Tencent, vendors.CapabilityASR, req.Credential); err != nil {
		return nil, err
	}

	taskID, err := p.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	var final apiResponse
	pollErr := resilience.Poll(ctx, p.poll, errors.Timeout(vendors.Tencent, "poll"), func() (resilience.PollStatus, error) {
		ar, err := p.call(ctx, req, actionPoll, map[string]any{"TaskId": taskID})
		if err != nil {
			if errors.IsRetryable(err) {
				return resilience.PollPending, nil
			}
			return resilience.PollFailed, err
		}
		switch ar.Response.Data.Status {
		case 0, 1:
			return resilience.PollPending, nil
		case 2:
			final = *ar
			return resilience.PollDone, nil
		default:
			return resilience.PollFailed, errors.VendorProtocol(vendors.Tencent, []byte(ar.Response.Data.ErrorMsg)).
				WithDetail("status", ar.Response.Data.StatusStr)
		}
	})
	if pollErr != nil {
		return nil, pollErr
	}

	data := final.Response.Data
	if len(data.ResultDetail) == 0 {
		return nil, errors.UnsupportedFormat(vendors.Tencent, "no speech recognized in media")
	}

	raw := make([]asr.RawSegment, 0, len(data.ResultDetail))
	for _, d := range data.ResultDetail {
		raw = append(raw, asr.RawSegment{
			Speaker: strconv.Itoa(d.SpeakerID),
			Start:   float64(d.StartMs) / 1000,
			End:     float64(d.EndMs) / 1000,
			Text:    strings.TrimSpace(d.FinalSentence),
		})
	}

	segments := asr.Normalize(raw)
	duration := data.AudioTime
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	rawBody, _ := json.Marshal(final)
	return &asr.Transcript{
		VendorID: vendors.Tencent,
		Duration: duration,
		Segments: segments,
		Raw:      rawBody,
	}, nil
}

// submit creates the recognition task and returns its job handle.
func (p *Provider) submit(ctx context.Context, req asr.Request) (int64, error) {
	payload := map[string]any{
		"EngineModelType":    "16k_zh",
		"ChannelNum":         1,
		"ResTextFormat":      2,
		"SourceType":         1,
		"Data":               base64.StdEncoding.EncodeToString(req.Media.Data),
		"DataLen":            req.Media.Size,
		"SpeakerDiarization": boolToInt(req.Diarize),
	}
	ar, err := p.call(ctx, req, actionSubmit, payload)
	if err != nil {
		return 0, err
	}
	if ar.Response.Data.TaskID == 0 {
		body, _ := json.Marshal(ar)
		return 0, errors.VendorProtocol(vendors.Tencent, body)
	}
	return ar.Response.Data.TaskID, nil
}

// call signs and sends one action request, mapping in-band API errors to the
// taxonomy.
func (p *Provider) call(ctx context.Context, req asr.Request, action string, payload map[string]any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Internal(err)
	}

	now := p.now().UTC()
	signer := signing.DatedHMACSHA256{
		SecretID:  req.Credential.Get("secret_id"),
		SecretKey: req.Credential.Get("secret_key"),
		Service:   service,
		Host:      p.host,
		Method:    http.MethodPost,
		Path:      "/",
		Payload:   body,
		Timestamp: now.Unix(),
		Date:      now.Format("2006-01-02"),
	}
	auth, err := signer.Authorization()
	if err != nil {
		return nil, err
	}

	note := action
	if action == actionSubmit {
		note = fmt.Sprintf("%s bytes=%d", action, req.Media.Size)
	}
	req.Log.Record(vendorlog.DirRequest, note, nil)

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/",
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Host":           p.host,
			"X-TC-Action":    action,
			"X-TC-Version":   version,
			"X-TC-Timestamp": strconv.FormatInt(now.Unix(), 10),
		},
		Body: body,
		Sign: func(r *http.Request) error {
			r.Header.Set("Authorization", auth)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	req.Log.Record(vendorlog.DirResponse, action+" response", resp.Body)

	var ar apiResponse
	if err := json.Unmarshal(resp.Body, &ar); err != nil {
		return nil, errors.VendorProtocol(vendors.Tencent, resp.Body).WithCause(err)
	}
	if apiErr := ar.Response.Error; apiErr != nil {
		switch {
		case strings.HasPrefix(apiErr.Code, "AuthFailure"):
			return nil, errors.AuthFailed(vendors.Tencent, apiErr.Message)
		case strings.HasPrefix(apiErr.Code, "RequestLimitExceeded"):
			return nil, errors.QuotaExceeded(vendors.Tencent)
		case strings.HasPrefix(apiErr.Code, "UnsupportedOperation"):
			return nil, errors.UnsupportedFormat(vendors.Tencent, apiErr.Message)
		default:
			return nil, errors.VendorProtocol(vendors.Tencent, resp.Body).
				WithDetail("code", apiErr.Code)
		}
	}
	return &ar, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
