package taskstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/logger"
	"github.com/taoxee/scribeflow/media"
	"github.com/taoxee/scribeflow/vendorlog"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func testRecord(id string) *Record {
	data := []byte("media-bytes")
	return &Record{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Media: media.Asset{
			Name:        "meeting.mp3",
			Ext:         "mp3",
			Mime:        "audio/mpeg",
			Size:        int64(len(data)),
			Fingerprint: "fp-abc",
			Data:        data,
		},
		ASRVendor: "openai",
		LLMVendor: "groq",
		Status:    StatusQueued,
	}
}

func testTranscript() *asr.Transcript {
	return &asr.Transcript{
		VendorID: "openai",
		Duration: 4,
		Segments: []asr.Segment{
			{Speaker: "Speaker 1", Start: 0, End: 2, Text: "hello"},
			{Speaker: "Speaker 2", Start: 2, End: 4, Text: "hi"},
		},
	}
}

func TestCreateWritesLayout(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-aaaaaaaa")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dir := filepath.Join(s.Root(), rec.ID)
	for _, name := range []string{"task.json", "source.mp3", "logs"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusQueued || got.Media.Fingerprint != "fp-abc" {
		t.Errorf("got %+v", got)
	}
	if len(got.Media.Data) != 0 {
		t.Error("media bytes leaked into task.json")
	}
}

func TestCreateDuplicateRejected(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-bbbbbbbb")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(rec); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("second Create = %v, want INVALID_INPUT", err)
	}
}

func TestUpdateRendersStageOutputs(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-cccccccc")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec.Status = StatusASRComplete
	rec.Transcript = testTranscript()
	if err := s.Update(rec); err != nil {
		t.Fatalf("Update transcript: %v", err)
	}

	rec.Status = StatusComplete
	rec.Summary = &llm.Summary{VendorID: "groq", Model: "llama-3.3-70b-versatile", Markdown: "## Summary\n\n- greetings"}
	if err := s.Update(rec); err != nil {
		t.Fatalf("Update summary: %v", err)
	}

	dir := filepath.Join(s.Root(), rec.ID)
	transcript, err := os.ReadFile(filepath.Join(dir, "transcript.txt"))
	if err != nil {
		t.Fatalf("read transcript.txt: %v", err)
	}
	if !strings.Contains(string(transcript), "Speaker 2") {
		t.Errorf("transcript.txt = %q", transcript)
	}
	summary, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	if err != nil {
		t.Fatalf("read summary.md: %v", err)
	}
	if !strings.HasPrefix(string(summary), "## Summary") {
		t.Errorf("summary.md = %q", summary)
	}
}

func TestUpdateAfterTerminalRejected(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-dddddddd")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec.Status = StatusFailed
	rec.Error = &ErrorInfo{Code: "NETWORK_TRANSIENT", Message: "connect refused", Stage: "asr"}
	if err := s.Update(rec); err != nil {
		t.Fatalf("Update to failed: %v", err)
	}

	rec.Status = StatusComplete
	if err := s.Update(rec); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("Update after terminal = %v, want INVALID_INPUT", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("Get = %v, want NOT_FOUND", err)
	}
}

func TestLookupExactCompositeMatch(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-eeeeeeee")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec.Status = StatusComplete
	rec.Transcript = testTranscript()
	rec.Summary = &llm.Summary{VendorID: "groq", Markdown: "done"}
	if err := s.Update(rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, ok := s.Lookup("fp-abc", "openai", "groq"); !ok {
		t.Error("exact composite match missed")
	}
	if _, ok := s.Lookup("fp-other", "openai", "groq"); ok {
		t.Error("hit on wrong fingerprint")
	}
	if _, ok := s.Lookup("fp-abc", "deepgram", "groq"); ok {
		t.Error("hit on wrong ASR vendor")
	}
	if _, ok := s.Lookup("fp-abc", "openai", "zhipu"); ok {
		t.Error("hit on wrong LLM vendor")
	}
}

func TestLookupIgnoresIncompleteTasks(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-ffffffff")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec.Status = StatusASRRunning
	if err := s.Update(rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok := s.Lookup("fp-abc", "openai", "groq"); ok {
		t.Error("in-flight task served as cache hit")
	}
}

func TestLookupSkipsCorruptRecords(t *testing.T) {
	s := testStore(t)

	corrupt := testRecord("20260101-130000-11111111")
	if err := s.Create(corrupt); err != nil {
		t.Fatalf("Create corrupt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), corrupt.ID, "task.json"), []byte("{truncated"), 0o640); err != nil {
		t.Fatalf("corrupt record: %v", err)
	}

	good := testRecord("20260101-120000-22222222")
	if err := s.Create(good); err != nil {
		t.Fatalf("Create good: %v", err)
	}
	good.Status = StatusComplete
	good.Transcript = testTranscript()
	good.Summary = &llm.Summary{VendorID: "groq", Markdown: "done"}
	if err := s.Update(good); err != nil {
		t.Fatalf("Update good: %v", err)
	}

	got, ok := s.Lookup("fp-abc", "openai", "groq")
	if !ok {
		t.Fatal("corrupt sibling suppressed the valid hit")
	}
	if got.ID != good.ID {
		t.Errorf("hit %s, want %s", got.ID, good.ID)
	}
}

func TestWriteLogAppends(t *testing.T) {
	s := testStore(t)
	rec := testRecord("20260101-120000-33333333")
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rl := vendorlog.NewRecorder()
	rl.Record(vendorlog.DirRequest, "POST /audio/transcriptions", nil)
	rl.Record(vendorlog.DirResponse, "result", []byte(`{"text":"hi"}`))
	if err := s.WriteLog(rec.ID, "asr", rl); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), rec.ID, "logs", "asr.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "POST /audio/transcriptions") {
		t.Errorf("log = %q", data)
	}
	if err := s.WriteLog(rec.ID, "asr", vendorlog.NewRecorder()); err != nil {
		t.Fatalf("empty WriteLog: %v", err)
	}
}

func TestConcurrentWritesAndLookups(t *testing.T) {
	s := testStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := testRecord(fmt.Sprintf("20260101-1200%02d-aaaaaaaa", n))
			rec.Media.Fingerprint = fmt.Sprintf("fp-%02d", n)
			if err := s.Create(rec); err != nil {
				t.Errorf("Create %d: %v", n, err)
				return
			}
			rec.Status = StatusComplete
			rec.Transcript = testTranscript()
			rec.Summary = &llm.Summary{VendorID: "groq", Markdown: "done"}
			if err := s.Update(rec); err != nil {
				t.Errorf("Update %d: %v", n, err)
			}
		}(i)
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Lookup(fmt.Sprintf("fp-%02d", n), "openai", "groq")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if _, ok := s.Lookup(fmt.Sprintf("fp-%02d", i), "openai", "groq"); !ok {
			t.Errorf("completed task fp-%02d not found after concurrent writes", i)
		}
	}
}

func TestNewIDShape(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	id := NewID(now)
	if !strings.HasPrefix(id, "20260304-050607-") {
		t.Errorf("id = %q", id)
	}
	if len(id) != len("20260304-050607-")+8 {
		t.Errorf("id length = %d", len(id))
	}
	if id == NewID(now) {
		t.Error("two ids with the same timestamp collided")
	}
}
