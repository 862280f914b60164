package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// systemWarningsHandler implements GET /api/v1/system/warnings, listing
// every currently active non-fatal warning across all sessions.
func (s *Server) systemWarningsHandler(c *gin.Context) {
	if s.warningService == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, s.warningService.GetWarnings())
}
