package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialectica/pkg/events"
)

// sessionIDPattern rejects path-traversal-style query values, grounded on
// the session-id validation cklxx-elephant.ai's SSE handler applies before
// opening a stream.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// sessionEventsHandler implements GET /api/v1/sessions/:id/events: an SSE
// bridge onto the session's own topic on the process-wide event bus. It
// streams every event published on that topic until the client
// disconnects or the session terminates: the Runner's shutdown event is
// the last one relayed.
func (s *Server) sessionEventsHandler(c *gin.Context) {
	id := c.Param("id")
	if id == "" || !sessionIDPattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "session id contains invalid characters"})
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, ok := w.(http.Flusher)
	fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	if ok {
		flusher.Flush()
	}

	sub := s.bus.Subscribe(events.SessionTopic(id))
	defer sub.Close()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, open := <-sub.C():
			if !open {
				return
			}
			payload, err := json.Marshal(evt.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, payload)
			if ok {
				flusher.Flush()
			}
			if evt.Kind == events.KindShutdown {
				return
			}
		}
	}
}
