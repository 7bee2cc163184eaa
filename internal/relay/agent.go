package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iksnae/cortex-session/internal"
)

// runAgent forwards the request upstream and streams the decoded records
// back as server-sent events
func (s *Server) runAgent(c *gin.Context) {
	var req internal.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if req.Messages == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "messages is required"})
		return
	}

	ctx := c.Request.Context()
	internal.LogInfo("agent request with %d message(s)", len(req.Messages))

	body, err := s.opts.Transport.Open(ctx, &req)
	var te *internal.TransportError
	if errors.As(err, &te) {
		internal.LogWarn("upstream answered %d", te.StatusCode)
		c.JSON(te.StatusCode, gin.H{"detail": fmt.Sprintf("Cortex API error: %s", te.Body)})
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err != nil {
		internal.LogError("upstream request failed: %v", err)
		s.emitError(c, err)
		return
	}
	defer body.Close()

	err = internal.DecodeStream(ctx, body, func(rec internal.Record) error {
		s.emit(c, rec)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		internal.LogDebug("client went away")
	default:
		internal.LogError("upstream stream failed: %v", err)
		s.emitError(c, err)
	}
}

// emit writes one record, filtered when configured, and flushes it
func (s *Server) emit(c *gin.Context, rec internal.Record) {
	data := rec.Data
	if s.opts.RemoveSQL {
		data = internal.StripSQL(data)
	}
	if data == nil {
		data = []byte("null")
	}
	c.SSEvent(rec.Event, data)
	c.Writer.Flush()
}

func (s *Server) emitError(c *gin.Context, err error) {
	s.emit(c, internal.Record{Event: internal.KindError, Data: map[string]any{"error": err.Error()}})
}
