package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/resilience"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{Vendor: "testvendor", BaseURL: baseURL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/status",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestDo_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		code   errors.ErrorCode
	}{
		{http.StatusUnauthorized, errors.ErrCodeAuthFailed},
		{http.StatusForbidden, errors.ErrCodeAuthFailed},
		{http.StatusTooManyRequests, errors.ErrCodeQuotaExceeded},
		{http.StatusUnsupportedMediaType, errors.ErrCodeUnsupportedFormat},
		{http.StatusUnprocessableEntity, errors.ErrCodeUnsupportedFormat},
		{http.StatusInternalServerError, errors.ErrCodeNetworkTransient},
		{http.StatusBadGateway, errors.ErrCodeNetworkTransient},
		{http.StatusNotFound, errors.ErrCodeVendorProtocol},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("vendor detail"))
		}))

		_, err := newTestClient(t, srv.URL).Do(context.Background(), Request{
			Method: http.MethodGet,
			Path:   "/",
		})
		srv.Close()

		if errors.CodeOf(err) != tt.code {
			t.Errorf("status %d: expected %s, got %v", tt.status, tt.code, err)
		}
	}
}

func TestDo_SignHookRunsAfterBuild(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/audio",
		Query:  map[string]string{"model": "nova-2"},
		Sign: func(req *http.Request) error {
			if req.URL.Query().Get("model") != "nova-2" {
				t.Error("sign hook must see final query parameters")
			}
			req.Header.Set("Authorization", "Bearer signed")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer signed" {
		t.Errorf("expected signed header, got %q", gotAuth)
	}
}

func TestDo_SigningFailureAbortsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/audio",
		Sign: func(req *http.Request) error {
			return errors.MissingCredential("testvendor", "api_key")
		},
	})
	if errors.CodeOf(err) != errors.ErrCodeAuthFailed {
		t.Fatalf("expected AUTH_FAILED, got %v", err)
	}
	if called {
		t.Error("request must not be sent when signing fails")
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	retry := resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	c, err := New(Config{Vendor: "testvendor", BaseURL: srv.URL, Timeout: 5 * time.Second, Retry: &retry})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("unexpected body: %s", resp.Body)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_MultipartBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("expected model field, got %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "audio-bytes" {
			t.Errorf("unexpected file content: %s", data)
		}
		if hdr.Filename != "rec.mp3" {
			t.Errorf("unexpected filename: %s", hdr.Filename)
		}
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/audio/transcriptions",
		Body: &MultipartBody{
			Fields: map[string]string{"model": "whisper-1"},
			Files: []FileField{{
				FieldName:   "file",
				FileName:    "rec.mp3",
				ContentType: "audio/mpeg",
				Data:        []byte("audio-bytes"),
			}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDo_JSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"model":"gpt-4o"`) {
			t.Errorf("unexpected body: %s", body)
		}
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/chat/completions",
		Body:   map[string]string{"model": "gpt-4o"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDo_ConnectionRefused(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if errors.CodeOf(err) != errors.ErrCodeNetworkTransient {
		t.Errorf("expected NETWORK_TRANSIENT, got %v", err)
	}
}
