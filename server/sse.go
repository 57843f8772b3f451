package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// streamEvents streams task progress as Server-Sent Events. A live stream
// replays its history and then follows the run; for a finished task whose
// stream is gone (for instance after a restart) a single snapshot of the
// stored record is sent instead.
func (h *Handlers) streamEvents(c *gin.Context) {
	id := c.Param("id")

	stream, ok := h.hub.Get(id)
	if !ok {
		rec, err := h.store.Get(id)
		if err != nil {
			respondError(c, err)
			return
		}
		writeSSEHeaders(c)
		writeSSE(c, "snapshot", rec)
		return
	}

	writeSSEHeaders(c)
	ch := stream.Subscribe(c.Request.Context())
	for ev := range ch {
		writeSSE(c, string(ev.Stage), ev)
	}
}

func writeSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

func writeSSE(c *gin.Context, event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, body)
	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
}
