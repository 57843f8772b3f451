package tencent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/media"
	"github.com/taoxee/scribeflow/resilience"
	"github.com/taoxee/scribeflow/vendors"
)

func testAsset() media.Asset {
	data := []byte("fake-flac-bytes")
	return media.Asset{
		Name: "panel.flac",
		Ext:  "flac",
		Mime: "audio/flac",
		Size: int64(len(data)),
		Data: data,
	}
}

func testCredential() vendors.Credential {
	return vendors.Credential{
		"appid":      "1400000001",
		"secret_id":  "AKIDtest",
		"secret_key": "secret-test",
	}
}

func testProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := newWithHost(url, host)
	if err != nil {
		t.Fatalf("newWithHost: %v", err)
	}
	p.poll = resilience.PollConfig{
		Interval:    time.Millisecond,
		MaxInterval: time.Millisecond,
		Growth:      1.0,
		MaxWait:     time.Second,
	}
	return p
}

func TestTranscribeSubmitThenPoll(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "HMAC-SHA256 Credential=AKIDtest/") {
			t.Errorf("Authorization = %q", auth)
		}
		switch r.Header.Get("X-TC-Action") {
		case actionSubmit:
			body, _ := io.ReadAll(r.Body)
			var payload map[string]any
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("submit body: %v", err)
			}
			if payload["Data"] == "" {
				t.Error("submit body carries no media data")
			}
			if payload["SpeakerDiarization"] != float64(1) {
				t.Errorf("SpeakerDiarization = %v", payload["SpeakerDiarization"])
			}
			w.Write([]byte(`{"Response": {"Data": {"TaskId": 42}, "RequestId": "r1"}}`))
		case actionPoll:
			if polls.Add(1) == 1 {
				w.Write([]byte(`{"Response": {"Data": {"TaskId": 42, "Status": 1, "StatusStr": "doing"}}}`))
				return
			}
			w.Write([]byte(`{"Response": {"Data": {
				"TaskId": 42, "Status": 2, "StatusStr": "success",
				"AudioDuration": 120,
				"ResultDetail": [
					{"StartMs": 0, "EndMs": 30000, "FinalSentence": "opening remarks", "SpeakerId": 2},
					{"StartMs": 30000, "EndMs": 70000, "FinalSentence": "first question", "SpeakerId": 0},
					{"StartMs": 70000, "EndMs": 95000, "FinalSentence": "the answer", "SpeakerId": 1},
					{"StartMs": 95000, "EndMs": 120000, "FinalSentence": "closing", "SpeakerId": 2}
				]
			}}}`))
		default:
			t.Errorf("unexpected action %q", r.Header.Get("X-TC-Action"))
		}
	}))
	defer srv.Close()

	p := testProvider(t, srv.URL)
	tr, err := p.Transcribe(context.Background(), asr.Request{
		Media:      testAsset(),
		Credential: testCredential(),
		Diarize:    true,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if polls.Load() < 2 {
		t.Errorf("polled %d times, want at least 2", polls.Load())
	}
	if tr.Duration != 120 {
		t.Errorf("Duration = %v, want 120", tr.Duration)
	}
	if len(tr.Segments) != 4 {
		t.Fatalf("got %d segments, want 4", len(tr.Segments))
	}

	// Vendor ids 2, 0, 1 appear in that time order, so they remap to
	// Speaker 1, 2, 3 and the final sentence reuses Speaker 1.
	wantSpeakers := []string{"Speaker 1", "Speaker 2", "Speaker 3", "Speaker 1"}
	speakers := map[string]bool{}
	for i, s := range tr.Segments {
		if s.Speaker != wantSpeakers[i] {
			t.Errorf("segment %d speaker = %q, want %q", i, s.Speaker, wantSpeakers[i])
		}
		if i > 0 && s.Start < tr.Segments[i-1].Start {
			t.Errorf("segment %d starts before its predecessor", i)
		}
		speakers[s.Speaker] = true
	}
	if len(speakers) != 3 {
		t.Errorf("got %d distinct speakers, want 3", len(speakers))
	}
	if tr.Segments[0].Start != 0 || tr.Segments[0].End != 30 {
		t.Errorf("first segment bounds = [%v, %v]", tr.Segments[0].Start, tr.Segments[0].End)
	}
}

func TestTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response": {"Error": {"Code": "AuthFailure.SignatureFailure", "Message": "sign mismatch"}}}`))
	}))
	defer srv.Close()

	p := testProvider(t, srv.URL)
	_, err := p.Transcribe(context.Background(), asr.Request{
		Media:      testAsset(),
		Credential: testCredential(),
	})
	if !errors.Is(err, errors.ErrCodeAuthFailed) {
		t.Fatalf("err = %v, want AUTH_FAILED", err)
	}
}

func TestTranscribeTaskFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-TC-Action") == actionSubmit {
			w.Write([]byte(`{"Response": {"Data": {"TaskId": 7}}}`))
			return
		}
		w.Write([]byte(`{"Response": {"Data": {"TaskId": 7, "Status": 3, "StatusStr": "failed", "ErrorMsg": "decode error"}}}`))
	}))
	defer srv.Close()

	p := testProvider(t, srv.URL)
	_, err := p.Transcribe(context.Background(), asr.Request{
		Media:      testAsset(),
		Credential: testCredential(),
	})
	if !errors.Is(err, errors.ErrCodeVendorProtocol) {
		t.Fatalf("err = %v, want VENDOR_PROTOCOL", err)
	}
}

func TestTranscribePollDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-TC-Action") == actionSubmit {
			w.Write([]byte(`{"Response": {"Data": {"TaskId": 7}}}`))
			return
		}
		w.Write([]byte(`{"Response": {"Data": {"TaskId": 7, "Status": 1}}}`))
	}))
	defer srv.Close()

	p := testProvider(t, srv.URL)
	p.poll.MaxWait = 20 * time.Millisecond
	_, err := p.Transcribe(context.Background(), asr.Request{
		Media:      testAsset(),
		Credential: testCredential(),
	})
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Fatalf("err = %v, want TIMEOUT", err)
	}
}

func TestTranscribeMissingSecretFailsClosed(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := testProvider(t, srv.URL)
	_, err := p.Transcribe(context.Background(), asr.Request{
		Media:      testAsset(),
		Credential: vendors.Credential{"appid": "1400000001"},
	})
	if !errors.Is(err, errors.ErrCodeAuthFailed) {
		t.Fatalf("err = %v, want AUTH_FAILED", err)
	}
	if called {
		t.Error("request was sent despite missing credential")
	}
}
