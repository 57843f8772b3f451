package asr

import (
	"fmt"
	"sort"
)

// RawSegment is a vendor-shaped segment before normalization: the speaker is
// whatever the vendor sent (a string, an integer rendered as a string, or
// empty when the vendor does no diarization).
type RawSegment struct {
	Speaker string
	Start   float64
	End     float64
	Text    string
}

// Normalize turns vendor-shaped segments into the normalized contract:
// segments sorted by start time, start <= end enforced, and vendor speaker
// labels remapped to "Speaker 1", "Speaker 2", ... in order of each label's
// first time-ordered appearance. Vendor-assigned ordering is ignored so
// numbering is consistent regardless of vendor. Segments without a speaker
// label collapse into a single synthesized speaker.
func Normalize(raw []RawSegment) []Segment {
	sorted := make([]RawSegment, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	labels := make(map[string]string)
	next := 1

	out := make([]Segment, 0, len(sorted))
	for _, r := range sorted {
		key := r.Speaker
		label, ok := labels[key]
		if !ok {
			label = fmt.Sprintf("Speaker %d", next)
			labels[key] = label
			next++
		}

		end := r.End
		if end < r.Start {
			end = r.Start
		}
		out = append(out, Segment{
			Speaker: label,
			Start:   r.Start,
			End:     end,
			Text:    r.Text,
		})
	}
	return out
}

// MergeAdjacent collapses consecutive segments of the same speaker into one,
// keeping the earliest start and latest end. Word-level vendors produce one
// raw segment per word; merging keeps transcripts readable.
func MergeAdjacent(segments []Segment) []Segment {
	if len(segments) == 0 {
		return segments
	}
	out := []Segment{segments[0]}
	for _, s := range segments[1:] {
		last := &out[len(out)-1]
		if s.Speaker == last.Speaker {
			if s.End > last.End {
				last.End = s.End
			}
			if last.Text != "" && s.Text != "" {
				last.Text += " " + s.Text
			} else {
				last.Text += s.Text
			}
			continue
		}
		out = append(out, s)
	}
	return out
}
