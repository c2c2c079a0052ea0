package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/engine"
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/rbac"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/syncerr"
)

// ObjectiveHandler exposes the engine's reactive state over HTTP.
type ObjectiveHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewObjectiveHandler(eng *engine.Engine, logger *zap.Logger) *ObjectiveHandler {
	return &ObjectiveHandler{engine: eng, logger: logger}
}

// stateResponse mirrors the reactive tuple consumers observe.
type stateResponse struct {
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	Objective  *model.Objective  `json:"objective"`
	KeyResults []model.KeyResult `json:"key_results"`
	SyncStatus string            `json:"sync_status"`
	SaveStatus string            `json:"save_status"`
}

// GetObjective returns the current state tuple.
func (h *ObjectiveHandler) GetObjective(c *gin.Context) {
	st := h.engine.State()

	resp := stateResponse{
		Loading:    st.Loading,
		Objective:  st.Objective,
		KeyResults: st.KeyResults,
		SyncStatus: string(st.SyncStatus),
		SaveStatus: string(st.SaveStatus),
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateObjective applies a partial update through the engine's
// optimistic write path.
func (h *ObjectiveHandler) UpdateObjective(c *gin.Context) {
	session := SessionFromContext(c)
	if !session.Can(rbac.PermissionUpdateObjective) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient role"})
		return
	}

	var patch model.ObjectivePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.engine.UpdateObjective(c.Request.Context(), &patch); err != nil {
		h.logger.Warn("Update failed", zap.Error(err))

		status := http.StatusBadGateway
		switch {
		case errors.Is(err, engine.ErrNotBooted):
			status = http.StatusServiceUnavailable
		case syncerr.KindOf(err) == syncerr.KindValidation:
			status = http.StatusUnprocessableEntity
		}
		// The optimistic edit is still live locally; the caller can
		// keep showing it alongside the error.
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
