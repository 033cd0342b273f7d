package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/maestro/pkg/models"
)

// handleApprovalPending GET /approval/pending
func (s *Server) handleApprovalPending(c *gin.Context) {
	pending, err := s.svc.Gate().Pending()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	if pending == nil {
		pending = []*models.ApprovalRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

// handleApprovalStatus GET /approval/status?id=
func (s *Server) handleApprovalStatus(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		errorJSON(c, http.StatusBadRequest, "id is required")
		return
	}

	req, err := s.svc.Gate().Get(id)
	if err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

// handleApprovalDecide POST /approval/decide
func (s *Server) handleApprovalDecide(c *gin.Context) {
	var body struct {
		ID        string                `json:"id"`
		Decision  models.ApprovalStatus `json:"decision"`
		Reason    string                `json:"reason"`
		DecidedBy string                `json:"decidedBy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ID == "" {
		errorJSON(c, http.StatusBadRequest, "id is required")
		return
	}
	if body.Decision != models.ApprovalApproved && body.Decision != models.ApprovalRejected {
		errorJSON(c, http.StatusBadRequest, "decision must be approved or rejected")
		return
	}
	if body.DecidedBy == "" {
		body.DecidedBy = "api"
	}

	req, err := s.svc.Gate().Decide(body.ID, body.Decision, body.Reason, body.DecidedBy)
	if err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": req.Status == models.ApprovalApproved, "status": req.Status})
}

// handleApprovalAudit GET /approval/audit?limit=
func (s *Server) handleApprovalAudit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errorJSON(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	audit, err := s.svc.Gate().Audit(limit)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	if audit == nil {
		audit = []*models.ApprovalRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"audit": audit})
}
