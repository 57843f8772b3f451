// Package pipeline orchestrates one task end to end: fingerprint, cache
// check, transcription, summarization. Stages run strictly in sequence, the
// record is persisted at every stage boundary, and progress is published on
// the task's event stream. Retries live inside the vendor adapters; the
// orchestrator itself never re-runs a failed stage.
package pipeline

import (
	"context"
	"time"

	"github.com/taoxee/scribeflow/asr"
	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/events"
	"github.com/taoxee/scribeflow/llm"
	"github.com/taoxee/scribeflow/logger"
	"github.com/taoxee/scribeflow/media"
	"github.com/taoxee/scribeflow/metrics"
	"github.com/taoxee/scribeflow/provider"
	"github.com/taoxee/scribeflow/taskstore"
	"github.com/taoxee/scribeflow/vendorlog"
	"github.com/taoxee/scribeflow/vendors"
)

// Submission is one upload plus its vendor selection. Credentials live only
// for the duration of the run and are never persisted.
type Submission struct {
	Media         media.Asset
	ASRVendor     string
	LLMVendor     string
	ASRCredential vendors.Credential
	LLMCredential vendors.Credential
	Diarize       bool
	Language      string
}

// QueuedPayload is the payload of the queued event.
type QueuedPayload struct {
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
	ASRVendor   string `json:"asr_vendor"`
	LLMVendor   string `json:"llm_vendor"`
}

// CacheHitPayload replays a previous run's results.
type CacheHitPayload struct {
	SourceTaskID string          `json:"source_task_id"`
	Transcript   *asr.Transcript `json:"transcript"`
	Summary      *llm.Summary    `json:"summary"`
}

// TranscriptPayload is the payload of the asr_done event.
type TranscriptPayload struct {
	Transcript *asr.Transcript `json:"transcript"`
}

// SummaryPayload is the payload of the llm_done event.
type SummaryPayload struct {
	Summary *llm.Summary `json:"summary"`
}

// FailurePayload is the payload of the failed event.
type FailurePayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage"`
	Vendor  string `json:"vendor"`
}

// Options wires the orchestrator's collaborators.
type Options struct {
	ASR     *provider.Registry[asr.Provider]
	LLM     *provider.Registry[llm.Provider]
	Store   *taskstore.Store
	Hub     *events.Hub
	Metrics *metrics.Metrics
	Log     *logger.Logger
	// Prompt overrides the default summarization template. Loaded once from
	// configuration.
	Prompt *llm.PromptTemplate
}

// Orchestrator runs submissions through the task state machine.
type Orchestrator struct {
	asr     *provider.Registry[asr.Provider]
	llm     *provider.Registry[llm.Provider]
	store   *taskstore.Store
	hub     *events.Hub
	metrics *metrics.Metrics
	log     *logger.Logger
	prompt  *llm.PromptTemplate
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.ASR == nil || opts.LLM == nil || opts.Store == nil || opts.Hub == nil {
		return nil, errors.InvalidInput("pipeline requires registries, a store, and an event hub")
	}
	if opts.Metrics == nil {
		m, err := metrics.Default()
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}
	if opts.Log == nil {
		opts.Log = logger.GetGlobalLogger()
	}
	return &Orchestrator{
		asr:     opts.ASR,
		llm:     opts.LLM,
		store:   opts.Store,
		hub:     opts.Hub,
		metrics: opts.Metrics,
		log:     opts.Log.WithComponent("pipeline"),
		prompt:  opts.Prompt,
	}, nil
}

// Submit validates the submission, persists the queued record, and starts
// the run detached from the caller's context. The returned record is the
// queued snapshot.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (*taskstore.Record, error) {
	asrProv, err := o.asr.Get(sub.ASRVendor)
	if err != nil {
		return nil, errors.InvalidInput("unknown ASR vendor: " + sub.ASRVendor)
	}
	llmProv, err := o.llm.Get(sub.LLMVendor)
	if err != nil {
		return nil, errors.InvalidInput("unknown LLM vendor: " + sub.LLMVendor)
	}
	if err := vendors.ValidateFor(sub.ASRVendor, vendors.CapabilityASR, sub.ASRCredential); err != nil {
		return nil, err
	}
	if err := vendors.ValidateFor(sub.LLMVendor, vendors.CapabilityLLM, sub.LLMCredential); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &taskstore.Record{
		ID:        taskstore.NewID(now),
		CreatedAt: now,
		Media:     sub.Media,
		ASRVendor: sub.ASRVendor,
		LLMVendor: sub.LLMVendor,
		Status:    taskstore.StatusQueued,
	}
	if err := o.store.Create(rec); err != nil {
		return nil, err
	}

	stream := o.hub.Create(rec.ID)
	if err := stream.Emit(events.StageQueued, QueuedPayload{
		FileName:    sub.Media.Name,
		Size:        sub.Media.Size,
		Fingerprint: sub.Media.Fingerprint,
		ASRVendor:   sub.ASRVendor,
		LLMVendor:   sub.LLMVendor,
	}); err != nil {
		return nil, err
	}
	o.metrics.TaskStarted(ctx, sub.ASRVendor, sub.LLMVendor)

	go o.run(context.WithoutCancel(ctx), rec, sub, stream, asrProv, llmProv)
	return rec, nil
}

// run drives one task to a terminal state.
func (o *Orchestrator) run(ctx context.Context, rec *taskstore.Record, sub Submission,
	stream *events.Stream, asrProv asr.Provider, llmProv llm.Provider) {

	log := o.log.WithTask(rec.ID)

	rec.Status = taskstore.StatusFingerprintComputed
	if err := o.store.Update(rec); err != nil {
		log.Error("persist fingerprint state", logger.Fields(logger.FieldError, err.Error()))
	}

	cached, hit := o.store.Lookup(rec.Media.Fingerprint, rec.ASRVendor, rec.LLMVendor)
	rec.Status = taskstore.StatusCacheChecked
	if err := o.store.Update(rec); err != nil {
		log.Error("persist cache-checked state", logger.Fields(logger.FieldError, err.Error()))
	}

	if hit {
		o.replay(ctx, rec, cached, stream, log)
		return
	}

	tr, ok := o.runASR(ctx, rec, sub, stream, asrProv, log)
	if !ok {
		return
	}
	sum, ok := o.runLLM(ctx, rec, sub, stream, llmProv, tr, log)
	if !ok {
		return
	}

	rec.Status = taskstore.StatusComplete
	if err := o.store.Update(rec); err != nil {
		log.Error("persist complete state", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageComplete, nil, log)
	o.metrics.TaskCompleted(ctx)
	log.Info("task complete", logger.Fields(
		logger.FieldVendor, rec.ASRVendor+"+"+rec.LLMVendor,
		"summary_bytes", len(sum.Markdown),
	))
}

// replay serves a cache hit: the stored transcript and summary are copied
// into the new record and published without touching any vendor.
func (o *Orchestrator) replay(ctx context.Context, rec, cached *taskstore.Record,
	stream *events.Stream, log *logger.Logger) {

	rec.Transcript = cached.Transcript
	rec.Summary = cached.Summary
	rec.Status = taskstore.StatusCacheHit
	if err := o.store.Update(rec); err != nil {
		log.Error("persist cache-hit state", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageCacheHit, CacheHitPayload{
		SourceTaskID: cached.ID,
		Transcript:   cached.Transcript,
		Summary:      cached.Summary,
	}, log)

	rec.Status = taskstore.StatusComplete
	if err := o.store.Update(rec); err != nil {
		log.Error("persist complete state", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageComplete, nil, log)
	o.metrics.CacheHit(ctx)
	o.metrics.TaskCompleted(ctx)
	log.Info("task served from cache", logger.Fields("source_task", cached.ID))
}

func (o *Orchestrator) runASR(ctx context.Context, rec *taskstore.Record, sub Submission,
	stream *events.Stream, prov asr.Provider, log *logger.Logger) (*asr.Transcript, bool) {

	rec.Status = taskstore.StatusASRRunning
	if err := o.store.Update(rec); err != nil {
		log.Error("persist asr-running state", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageASRStarted, nil, log)

	vlog := vendorlog.NewRecorder()
	started := time.Now()
	tr, err := prov.Transcribe(ctx, asr.Request{
		Media:      sub.Media,
		Credential: sub.ASRCredential,
		Diarize:    sub.Diarize,
		Language:   sub.Language,
		Log:        vlog,
	})
	o.metrics.StageDuration(ctx, "asr", rec.ASRVendor, time.Since(started))
	if werr := o.store.WriteLog(rec.ID, "asr", vlog); werr != nil {
		log.Warn("write asr log", logger.Fields(logger.FieldError, werr.Error()))
	}
	if err != nil {
		o.fail(ctx, rec, stream, "asr", rec.ASRVendor, err, log)
		return nil, false
	}

	rec.Transcript = tr
	rec.Status = taskstore.StatusASRComplete
	if err := o.store.Update(rec); err != nil {
		log.Error("persist transcript", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageASRDone, TranscriptPayload{Transcript: tr}, log)
	return tr, true
}

func (o *Orchestrator) runLLM(ctx context.Context, rec *taskstore.Record, sub Submission,
	stream *events.Stream, prov llm.Provider, tr *asr.Transcript, log *logger.Logger) (*llm.Summary, bool) {

	rec.Status = taskstore.StatusLLMRunning
	if err := o.store.Update(rec); err != nil {
		log.Error("persist llm-running state", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageLLMStarted, nil, log)

	vlog := vendorlog.NewRecorder()
	started := time.Now()
	sum, err := prov.Summarize(ctx, llm.Request{
		Transcript: tr,
		Credential: sub.LLMCredential,
		Prompt:     o.prompt,
		Log:        vlog,
	})
	o.metrics.StageDuration(ctx, "llm", rec.LLMVendor, time.Since(started))
	if werr := o.store.WriteLog(rec.ID, "llm", vlog); werr != nil {
		log.Warn("write llm log", logger.Fields(logger.FieldError, werr.Error()))
	}
	if err != nil {
		// The transcript is already persisted; the failure loses only the
		// summary stage.
		o.fail(ctx, rec, stream, "llm", rec.LLMVendor, err, log)
		return nil, false
	}

	rec.Summary = sum
	rec.Status = taskstore.StatusLLMComplete
	if err := o.store.Update(rec); err != nil {
		log.Error("persist summary", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageLLMDone, SummaryPayload{Summary: sum}, log)
	return sum, true
}

// fail moves the task to its terminal failed state.
func (o *Orchestrator) fail(ctx context.Context, rec *taskstore.Record, stream *events.Stream,
	stage, vendor string, cause error, log *logger.Logger) {

	app := errors.AsAppError(cause)
	rec.Status = taskstore.StatusFailed
	rec.Error = &taskstore.ErrorInfo{
		Code:    string(app.Code),
		Message: app.Message,
		Vendor:  vendor,
		Stage:   stage,
	}
	if err := o.store.Update(rec); err != nil {
		log.Error("persist failed state", logger.Fields(logger.FieldError, err.Error()))
	}
	o.emit(stream, events.StageFailed, FailurePayload{
		Code:    string(app.Code),
		Message: app.Message,
		Stage:   stage,
		Vendor:  vendor,
	}, log)
	o.metrics.TaskFailed(ctx, string(app.Code), stage)
	log.Error("task failed", logger.Fields(
		logger.FieldStage, stage,
		logger.FieldVendor, vendor,
		logger.FieldError, cause.Error(),
	))
}

func (o *Orchestrator) emit(stream *events.Stream, stage events.Stage, payload any, log *logger.Logger) {
	if err := stream.Emit(stage, payload); err != nil {
		log.Error("event emit rejected", logger.Fields(
			logger.FieldStage, string(stage),
			logger.FieldError, err.Error(),
		))
	}
}
