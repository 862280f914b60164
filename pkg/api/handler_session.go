package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialectica/pkg/config"
	"github.com/codeready-toolchain/dialectica/pkg/registry"
)

// startSessionHandler implements POST /api/v1/sessions.
// The request body is bound directly onto config.Input since every field
// is already optional and carries its own json tag.
func (s *Server) startSessionHandler(c *gin.Context) {
	var in config.Input
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	id, err := s.registry.Start(c.Request.Context(), in)
	if err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{SessionID: id, Status: string(registry.StatusRunning)})
}

func (s *Server) pauseSessionHandler(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.Pause(c.Request.Context(), id); err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: id, Status: string(registry.StatusPaused)})
}

func (s *Server) resumeSessionHandler(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.Resume(c.Request.Context(), id); err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: id, Status: string(registry.StatusRunning)})
}

func (s *Server) stopSessionHandler(c *gin.Context) {
	id := c.Param("id")
	var req stopRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if err := s.registry.Stop(c.Request.Context(), id, req.Reason); err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: id, Status: string(registry.StatusStopped)})
}

func (s *Server) getSessionHandler(c *gin.Context) {
	id := c.Param("id")
	info, err := s.registry.GetInfo(id)
	if err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		SessionID:    id,
		Status:       string(info.Status),
		BlackboardID: info.BlackboardID,
		CycleCount:   info.CycleCount,
	})
}

func (s *Server) listSessionsHandler(c *gin.Context) {
	items := s.registry.List()
	out := make([]SessionListItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, SessionListItemResponse{SessionID: item.SessionID, Status: string(item.Status)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) activeSessionHandler(c *gin.Context) {
	id, err := s.registry.GetActiveSession()
	if err != nil {
		writeRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{SessionID: id})
}
