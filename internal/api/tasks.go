package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/maestro/pkg/models"
)

// handleSubmitTask POST /task
func (s *Server) handleSubmitTask(c *gin.Context) {
	var body struct {
		Type        string          `json:"type"`
		Description string          `json:"description"`
		Autonomy    models.Autonomy `json:"autonomy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.svc.Submit(body.Type, body.Description, body.Autonomy)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": task.ID, "status": task.Status})
}

// handleGetTask GET /task/:id
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.svc.Get(c.Param("id"))
	if err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleRetryTask POST /task/:id/retry
func (s *Server) handleRetryTask(c *gin.Context) {
	task, err := s.svc.Retry(c.Param("id"))
	if err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": task.ID, "status": task.Status})
}

// handleCancelTask DELETE /task/:id
func (s *Server) handleCancelTask(c *gin.Context) {
	if _, err := s.svc.Cancel(c.Param("id")); err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// handleListTasks GET /tasks?limit=&status=
func (s *Server) handleListTasks(c *gin.Context) {
	status := models.TaskStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		errorJSON(c, http.StatusBadRequest, "invalid status filter")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errorJSON(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	tasks, total, err := s.svc.List(status, limit)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": total})
}

// handlePropose POST /propose
func (s *Server) handlePropose(c *gin.Context) {
	var body struct {
		Type        string   `json:"type"`
		Description string   `json:"description"`
		Models      []string `json:"models"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.svc.Propose(c.Request.Context(), body.Type, body.Description, body.Models)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, res)
}
