package taskstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/media"
)

// Status is the lifecycle state of a task. Transitions are owned by the
// orchestrator; the store only persists whatever state it is handed.
type Status string

const (
	StatusQueued              Status = "queued"
	StatusFingerprintComputed Status = "fingerprint_computed"
	StatusCacheChecked        Status = "cache_checked"
	StatusCacheHit            Status = "cache_hit"
	StatusASRRunning          Status = "asr_running"
	StatusASRComplete         Status = "asr_complete"
	StatusLLMRunning          Status = "llm_running"
	StatusLLMComplete         Status = "llm_complete"
	StatusComplete            Status = "complete"
	StatusFailed              Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// ErrorInfo is the persisted failure detail of a failed task.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Vendor  string `json:"vendor,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// Record is the durable state of one task. Media.Data is never serialized;
// the source bytes live next to the record as their own file.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Media     media.Asset `json:"media"`
	ASRVendor string      `json:"asr_vendor"`
	LLMVendor string      `json:"llm_vendor"`

	Status Status     `json:"status"`
	Error  *ErrorInfo `json:"error,omitempty"`

	Transcript *asr.Transcript `json:"transcript,omitempty"`
	Summary    *llm.Summary    `json:"summary,omitempty"`
}

// NewID mints a task id: the UTC creation instant plus a short random
// suffix, so ids sort chronologically while staying collision-safe.
func NewID(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}
