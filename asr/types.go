package asr

import (
	"fmt"
	"strings"
	"time"

	"github.com/taoxee/scribeflow/media"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

// Segment is one speaker-attributed, time-aligned portion of a transcript.
// Start and End are seconds from the beginning of the media.
type Segment struct {
	// Speaker is the normalized label ("Speaker 1", "Speaker 2", ...).
	Speaker string `json:"speaker"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
}

// Transcript is the normalized output of every ASR adapter. On success it
// carries at least one segment, ordered by start time.
type Transcript struct {
	// VendorID identifies the adapter that produced the transcript.
	VendorID string `json:"vendor_id"`
	// Language is the detected or requested language code.
	Language string `json:"language,omitempty"`
	// Duration is the audio duration in seconds, when the vendor reports it;
	// otherwise the end of the last segment.
	Duration float64 `json:"duration,omitempty"`
	// Segments is the time-ordered segment sequence.
	Segments []Segment `json:"segments"`
	// Raw is the final vendor response body, kept for the audit log.
	Raw []byte `json:"-"`
}

// Text renders the speaker-labeled transcript as plain text, one segment per
// line, the form fed to the summarization prompt.
func (t *Transcript) Text() string {
	var sb strings.Builder
	for _, s := range t.Segments {
		fmt.Fprintf(&sb, "%s [%s - %s]: %s\n", s.Speaker, formatClock(s.Start), formatClock(s.End), strings.TrimSpace(s.Text))
	}
	return sb.String()
}

// PlainText renders the transcript without speaker labels or timestamps.
func (t *Transcript) PlainText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}

// Speakers returns the distinct normalized speaker labels in first-appearance order.
func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range t.Segments {
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			out = append(out, s.Speaker)
		}
	}
	return out
}

func formatClock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%02d:%05.2f", int(d.Minutes()), d.Seconds()-float64(int(d.Minutes()))*60)
}

// Request holds the inputs of one transcription call.
type Request struct {
	// Media is the uploaded asset.
	Media media.Asset
	// Credential is the caller-supplied vendor credential for this request.
	Credential vendors.Credential
	// Diarize requests speaker attribution from vendors that support it.
	Diarize bool
	// Language is an optional language hint.
	Language string
	// Log receives the raw request/response capture for the audit trail.
	// May be nil.
	Log *vendorlog.Recorder
}
