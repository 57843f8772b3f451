package llm

import (
	"strings"
	"testing"

	"github.com/taoxee/scribeflow/asr"
)

func testTranscript() *asr.Transcript {
	return &asr.Transcript{
		VendorID: "openai",
		Segments: []asr.Segment{
			{Speaker: "Speaker 1", Start: 0, End: 2, Text: "welcome everyone"},
			{Speaker: "Speaker 2", Start: 2.5, End: 4, Text: "thanks for having me"},
		},
	}
}

func TestBuildMessagesDefaultTemplate(t *testing.T) {
	msgs := BuildMessages(Request{Transcript: testTranscript()})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != DefaultPromptTemplate().System {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != "user" {
		t.Errorf("user role = %q", msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "Speaker 1") || !strings.Contains(msgs[1].Content, "welcome everyone") {
		t.Errorf("user message lost speaker labels: %q", msgs[1].Content)
	}
	if !strings.HasPrefix(msgs[1].Content, DefaultPromptTemplate().UserPrefix) {
		t.Error("user message missing instruction prefix")
	}
}

func TestBuildMessagesCustomTemplate(t *testing.T) {
	tpl := PromptTemplate{System: "summarize tersely", UserPrefix: "transcript:\n"}
	msgs := BuildMessages(Request{Transcript: testTranscript(), Prompt: &tpl})
	if msgs[0].Content != "summarize tersely" {
		t.Errorf("system = %q", msgs[0].Content)
	}
	if !strings.HasPrefix(msgs[1].Content, "transcript:\n") {
		t.Errorf("user prefix not applied: %q", msgs[1].Content)
	}
}
