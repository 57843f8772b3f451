// Package xfyun implements the submit-then-poll ASR adapter for the iFlytek
// long-form transcription service.
//
// Request shape: POST /upload carries the raw media body with identifying
// query parameters (appId, ts, fileName, fileSize) and a signa computed by
// HMAC-SHA1 over the sorted parameter string; the response yields an orderId.
// POST /getResult with the same parameter signing polls the order. Terminal
// response shape: content.orderInfo.status (3 processing, 4 done, -1 failed)
// and content.orderResult, a nested JSON string whose lattice entries each
// hold one utterance with millisecond bounds and a role label. Mapping: one
// lattice entry becomes one raw segment; role labels are remapped to
// first-appearance "Speaker N" labels.
package xfyun

import (
	"context"
	"encoding/json"
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

const defaultBaseURL = "https://raasr.xfyun.cn/v2/api"

// codeOK is the in-band success code shared by both endpoints.
const codeOK = "000000"

// Provider implements asr.Provider for iFlytek.
type Provider struct {
	client *httpclient.Client
	poll   resilience.PollConfig
	now    func() time.Time
}

// New creates the iFlytek adapter.
func New() (*Provider, error) {
	return newWithBaseURL(defaultBaseURL)
}

func newWithBaseURL(baseURL string) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		Vendor:  vendors.Xfyun,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: client,
		poll:   resilience.DefaultPollConfig(),
		now:    time.Now,
	}, nil
}

// Name returns the vendor id.
func (p *Provider) Name() string { return vendors.Xfyun }

type apiResponse struct {
	Code     string `json:"code"`
	DescInfo string `json:"descInfo"`
	Content  struct {
		OrderID   string `json:"orderId"`
		OrderInfo struct {
			Status     int   `json:"status"`
			FailType   int   `json:"failType"`
			OriginalMs int64 `json:"originalDuration"`
		} `json:"orderInfo"`
		OrderResult string `json:"orderResult"`
	} `json:"content"`
}

// latticeEntry is one utterance in the decoded order result.
type latticeEntry struct {
	JSONBest string `json:"json_1best"`
}

type utterance struct {
	ST utteranceST `json:"st"`
}

type utteranceST struct {
	Bg string        `json:"bg"`
	Ed string        `json:"ed"`
	Rl string        `json:"rl"`
	Rt []utteranceRt `json:"rt"`
}

type utteranceRt struct {
	Ws []utteranceWs `json:"ws"`
}

type utteranceWs struct {
	Cw []utteranceCw `json:"cw"`
}

type utteranceCw struct {
	W string `json:"w"`
}

// Transcribe uploads the media and polls the order until it terminates.
func (p *Provider) Transcribe(ctx context.Context, req asr.Request) (*asr.Transcript, error) {
	if err := vendors.ValidateFor(vendors.Xfyun, vendors.CapabilityASR, req.Credential); err != nil {
		return nil, err
	}

	orderID, err := p.upload(ctx, req)
	if err != nil {
		return nil, err
	}

	var final apiResponse
	pollErr := resilience.Poll(ctx, p.poll, errors.Timeout(vendors.Xfyun, "poll"), func() (resilience.PollStatus, error) {
		ar, err := p.getResult(ctx, req, orderID)
		if err != nil {
			if errors.IsRetryable(err) {
				return resilience.PollPending, nil
			}
			return resilience.PollFailed, err
		}
		switch ar.Content.OrderInfo.Status {
		case 4:
			final = *ar
			return resilience.PollDone, nil
		case -1:
			return resilience.PollFailed, errors.VendorProtocol(vendors.Xfyun, []byte(ar.DescInfo)).
				WithDetail("fail_type", strconv.Itoa(ar.Content.OrderInfo.FailType))
		default:
			return resilience.PollPending, nil
		}
	})
	if pollErr != nil {
		return nil, pollErr
	}

	raw, err := parseOrderResult(final.Content.OrderResult)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.UnsupportedFormat(vendors.Xfyun, "no speech recognized in media")
	}

	segments := asr.Normalize(raw)
	duration := float64(final.Content.OrderInfo.OriginalMs) / 1000
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	rawBody, _ := json.Marshal(final)
	return &asr.Transcript{
		VendorID: vendors.Xfyun,
		Duration: duration,
		Segments: segments,
		Raw:      rawBody,
	}, nil
}

// upload submits the media body and returns the order handle.
func (p *Provider) upload(ctx context.Context, req asr.Request) (string, error) {
	params := map[string]string{
		"appId":       req.Credential.Get("appid"),
		"accessKeyId": req.Credential.Get("access_key"),
		"ts":          strconv.FormatInt(p.now().Unix(), 10),
		"fileName":    req.Media.Name,
		"fileSize":    strconv.FormatInt(req.Media.Size, 10),
		"duration":    "0",
	}
	if req.Diarize {
		params["roleType"] = "1"
	}
	if req.Language != "" {
		params["language"] = req.Language
	}

	req.Log.Record(vendorlog.DirRequest, "upload "+req.Media.Name, nil)
	ar, err := p.call(ctx, req, "/upload", params, req.Media.Data)
	if err != nil {
		return "", err
	}
	if ar.Content.OrderID == "" {
		body, _ := json.Marshal(ar)
		return "", errors.VendorProtocol(vendors.Xfyun, body)
	}
	return ar.Content.OrderID, nil
}

// getResult polls one order.
func (p *Provider) getResult(ctx context.Context, req asr.Request, orderID string) (*apiResponse, error) {
	params := map[string]string{
		"appId":       req.Credential.Get("appid"),
		"accessKeyId": req.Credential.Get("access_key"),
		"ts":          strconv.FormatInt(p.now().Unix(), 10),
		"orderId":     orderID,
		"resultType":  "transcript",
	}
	req.Log.Record(vendorlog.DirRequest, "getResult "+orderID, nil)
	return p.call(ctx, req, "/getResult", params, nil)
}

// call signs the sorted parameter string, sends the request, and maps in-band
// error codes to the taxonomy.
func (p *Provider) call(ctx context.Context, req asr.Request, path string, params map[string]string, body []byte) (*apiResponse, error) {
	signa, err := signing.SortedHMACSHA1(vendors.Xfyun,
		req.Credential.Get("access_secret"), http.MethodPost, path, params)
	if err != nil {
		return nil, err
	}

	query := make(map[string]string, len(params)+1)
	for k, v := range params {
		query[k] = v
	}
	query["signa"] = signa

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Query:  query,
		Headers: map[string]string{
			"Content-Type": "application/octet-stream",
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	req.Log.Record(vendorlog.DirResponse, path+" response", resp.Body)

	var ar apiResponse
	if err := json.Unmarshal(resp.Body, &ar); err != nil {
		return nil, errors.VendorProtocol(vendors.Xfyun, resp.Body).WithCause(err)
	}
	if ar.Code != codeOK {
		switch ar.Code {
		case "26600", "26601", "26602":
			return nil, errors.AuthFailed(vendors.Xfyun, ar.DescInfo)
		case "26610":
			return nil, errors.QuotaExceeded(vendors.Xfyun)
		default:
			return nil, errors.VendorProtocol(vendors.Xfyun, resp.Body).
				WithDetail("code", ar.Code)
		}
	}
	return &ar, nil
}

// parseOrderResult decodes the nested lattice payload into raw segments.
func parseOrderResult(orderResult string) ([]asr.RawSegment, error) {
	if orderResult == "" {
		return nil, nil
	}
	var outer struct {
		Lattice []latticeEntry `json:"lattice"`
	}
	if err := json.Unmarshal([]byte(orderResult), &outer); err != nil {
		return nil, errors.VendorProtocol(vendors.Xfyun, []byte(orderResult)).WithCause(err)
	}

	raw := make([]asr.RawSegment, 0, len(outer.Lattice))
	for _, entry := range outer.Lattice {
		var u utterance
		if err := json.Unmarshal([]byte(entry.JSONBest), &u); err != nil {
			return nil, errors.VendorProtocol(vendors.Xfyun, []byte(entry.JSONBest)).WithCause(err)
		}
		bg, _ := strconv.ParseInt(u.ST.Bg, 10, 64)
		ed, _ := strconv.ParseInt(u.ST.Ed, 10, 64)

		var sb strings.Builder
		for _, rt := range u.ST.Rt {
			for _, ws := range rt.Ws {
				for _, cw := range ws.Cw {
					sb.WriteString(cw.W)
				}
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		raw = append(raw, asr.RawSegment{
			Speaker: u.ST.Rl,
			Start:   float64(bg) / 1000,
			End:     float64(ed) / 1000,
			Text:    text,
		})
	}
	return raw, nil
}
