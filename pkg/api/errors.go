package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialectica/pkg/registry"
)

// writeRegistryError maps a registry sentinel error onto an HTTP status
// code: one switch mapping domain sentinels to status codes, falling back
// to 400 for anything else (for example a config validation error from
// Start).
func writeRegistryError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrAlreadyPaused),
		errors.Is(err, registry.ErrAlreadyCompleted),
		errors.Is(err, registry.ErrAlreadyStopped),
		errors.Is(err, registry.ErrNotRunning),
		errors.Is(err, registry.ErrNotPaused),
		errors.Is(err, registry.ErrCannotPauseStopped),
		errors.Is(err, registry.ErrCannotPauseCompleted),
		errors.Is(err, registry.ErrCannotResumeStopped),
		errors.Is(err, registry.ErrCannotResumeCompleted):
		status = http.StatusConflict
	default:
		status = http.StatusBadRequest
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
