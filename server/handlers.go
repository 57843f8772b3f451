package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/events"
	"github.com/taoxee/scribeflow/media"
	"github.com/taoxee/scribeflow/pipeline"
	"github.com/taoxee/scribeflow/taskstore"
	"github.com/taoxee/scribeflow/vendors"
	"github.com/taoxee/scribeflow/version"
)

// Handlers bundles the API route handlers and their collaborators.
type Handlers struct {
	orch  *pipeline.Orchestrator
	store *taskstore.Store
	hub   *events.Hub
	// maxUploadBytes caps a single multipart upload.
	maxUploadBytes int64
	// staticDir serves a built web UI when non-empty.
	staticDir string
}

// NewHandlers creates the API handlers.
func NewHandlers(orch *pipeline.Orchestrator, store *taskstore.Store, hub *events.Hub, maxUploadMB int64, staticDir string) *Handlers {
	if maxUploadMB <= 0 {
		maxUploadMB = 512
	}
	return &Handlers{
		orch:           orch,
		store:          store,
		hub:            hub,
		maxUploadBytes: maxUploadMB << 20,
		staticDir:      staticDir,
	}
}

// Register mounts all routes on the engine.
func (h *Handlers) Register(engine *gin.Engine) {
	engine.GET("/healthz", h.health)

	api := engine.Group("/api")
	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:id", h.getTask)
	api.GET("/tasks/:id/events", h.streamEvents)
	api.GET("/tasks/:id/transcript", h.getTranscript)
	api.GET("/tasks/:id/summary", h.getSummary)
	api.GET("/vendors", h.listVendors)

	if h.staticDir != "" {
		engine.Static("/app", h.staticDir)
	}
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
}

// taskView is the task record as returned by the API.
type taskView struct {
	ID     string `json:"task_id"`
	Status string `json:"status"`
}

// createTask accepts a multipart upload with vendor ids and credential JSON,
// validates it, and starts the pipeline run detached from the request.
func (h *Handlers) createTask(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, errors.InvalidInput("missing media file upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, errors.InvalidInput("failed to read media upload: "+err.Error()))
		return
	}

	asset, err := media.NewAsset(header.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	asrCred, err := parseCredential(c.PostForm("asr_credentials"))
	if err != nil {
		respondError(c, err)
		return
	}
	llmCred, err := parseCredential(c.PostForm("llm_credentials"))
	if err != nil {
		respondError(c, err)
		return
	}

	diarize := true
	if raw := c.PostForm("diarize"); raw != "" {
		diarize, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(c, errors.InvalidInput("diarize must be a boolean"))
			return
		}
	}

	sub := pipeline.Submission{
		Media:         *asset,
		ASRVendor:     c.PostForm("asr_vendor"),
		LLMVendor:     c.PostForm("llm_vendor"),
		ASRCredential: asrCred,
		LLMCredential: llmCred,
		Diarize:       diarize,
		Language:      c.PostForm("language"),
	}

	rec, err := h.orch.Submit(c.Request.Context(), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	respondAccepted(c, taskView{ID: rec.ID, Status: string(rec.Status)})
}

// parseCredential decodes a credential JSON object from a form field. An
// empty field yields an empty credential so vendors without required fields
// still validate.
func parseCredential(raw string) (vendors.Credential, error) {
	if raw == "" {
		return vendors.Credential{}, nil
	}
	var cred vendors.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, errors.InvalidInput("credentials must be a JSON object of string fields")
	}
	return cred, nil
}

func (h *Handlers) getTask(c *gin.Context) {
	rec, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rec)
}

func (h *Handlers) getTranscript(c *gin.Context) {
	rec, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if rec.Transcript == nil {
		respondError(c, errors.NotFound("transcript", rec.ID))
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(rec.Transcript.Text()))
}

func (h *Handlers) getSummary(c *gin.Context) {
	rec, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if rec.Summary == nil {
		respondError(c, errors.NotFound("summary", rec.ID))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(rec.Summary.Markdown))
}

func (h *Handlers) listVendors(c *gin.Context) {
	respondOK(c, vendors.Catalog())
}
