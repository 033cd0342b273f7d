package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/maestro/pkg/models"
)

// configView is the externally visible configuration. Secrets never leave
// the process; the approval block reflects the gate's live state.
type configView struct {
	Server struct {
		Port string `json:"port"`
	} `json:"server"`
	Engine struct {
		SuccessThreshold  float64 `json:"successThreshold"`
		ParallelProposals bool    `json:"parallelProposals"`
		VerifyAllTasks    bool    `json:"verifyAllTasks"`
		TaskTimeoutMs     int64   `json:"taskTimeoutMs"`
		DefaultPlanner    string  `json:"defaultPlanner"`
		DefaultExecutor   string  `json:"defaultExecutor"`
		DefaultVerifier   string  `json:"defaultVerifier"`
		JudgeModel        string  `json:"judgeModel"`
	} `json:"engine"`
	Approval struct {
		Enabled   bool        `json:"enabled"`
		MinRisk   models.Risk `json:"minRisk"`
		TimeoutMs int64       `json:"timeoutMs"`
	} `json:"approval"`
}

func (s *Server) currentConfig() configView {
	var v configView
	v.Server.Port = s.cfg.Server.Port

	eng := s.svc.Config()
	v.Engine.SuccessThreshold = eng.SuccessThreshold
	v.Engine.ParallelProposals = eng.ParallelProposals
	v.Engine.VerifyAllTasks = eng.VerifyAllTasks
	v.Engine.TaskTimeoutMs = eng.TaskTimeout.Milliseconds()
	v.Engine.DefaultPlanner = eng.DefaultPlanner
	v.Engine.DefaultExecutor = eng.DefaultExecutor
	v.Engine.DefaultVerifier = eng.DefaultVerifier
	v.Engine.JudgeModel = eng.JudgeModel

	gate := s.svc.Gate().Config()
	v.Approval.Enabled = gate.Enabled
	v.Approval.MinRisk = gate.MinRisk
	v.Approval.TimeoutMs = gate.Timeout.Milliseconds()
	return v
}

// handleGetConfig GET /config
func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"config": s.currentConfig()})
}

// handleUpdateConfig POST /config
//
// Only the approval gate is adjustable at runtime; engine settings are
// fixed at startup.
func (s *Server) handleUpdateConfig(c *gin.Context) {
	var body struct {
		Approval struct {
			Enabled *bool        `json:"enabled"`
			MinRisk *models.Risk `json:"minRisk"`
		} `json:"approval"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	gate := s.svc.Gate()
	if body.Approval.Enabled != nil {
		gate.SetEnabled(*body.Approval.Enabled)
	}
	if body.Approval.MinRisk != nil {
		if !body.Approval.MinRisk.Valid() {
			errorJSON(c, http.StatusBadRequest, "invalid minRisk")
			return
		}
		gate.SetMinRisk(*body.Approval.MinRisk)
	}

	c.JSON(http.StatusOK, gin.H{"config": s.currentConfig()})
}
