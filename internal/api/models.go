package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/maestro/internal/telemetry"
	"github.com/example/maestro/pkg/models"
)

// modelView is a registry profile enriched with its telemetry aggregate.
type modelView struct {
	*models.ModelProfile
	Telemetry *telemetry.ModelStats `json:"telemetry,omitempty"`
}

// handleListModels GET /models
func (s *Server) handleListModels(c *gin.Context) {
	profiles, err := s.reg.List()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := s.tel.Stats("")
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	byModel := make(map[string]*telemetry.ModelStats, len(stats))
	for _, st := range stats {
		byModel[st.Model] = st
	}

	views := make([]modelView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, modelView{ModelProfile: p, Telemetry: byModel[p.ID]})
	}
	c.JSON(http.StatusOK, gin.H{"models": views})
}

// handleSetRole POST /models/:id/role
func (s *Server) handleSetRole(c *gin.Context) {
	var body struct {
		Role    *models.Role `json:"role"`
		Enabled *bool        `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Role == nil && body.Enabled == nil {
		errorJSON(c, http.StatusBadRequest, "role or enabled is required")
		return
	}
	if body.Role != nil && !body.Role.Valid() {
		errorJSON(c, http.StatusBadRequest, "invalid role")
		return
	}

	m, err := s.reg.SetRole(c.Param("id"), body.Role, body.Enabled)
	if err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": m})
}

// handleSuggestRole POST /models/:id/suggest
func (s *Server) handleSuggestRole(c *gin.Context) {
	var body struct {
		Role        models.Role `json:"role"`
		Reason      string      `json:"reason"`
		SuggestedBy string      `json:"suggestedBy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !body.Role.Valid() {
		errorJSON(c, http.StatusBadRequest, "invalid role")
		return
	}

	suggestion, err := s.reg.RecordSuggestion(c.Param("id"), body.Role, body.Reason, body.SuggestedBy)
	if err != nil {
		notFoundOr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"suggestion": suggestion})
}

// handleListSuggestions GET /models/:id/suggestions
func (s *Server) handleListSuggestions(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.reg.Get(id); err != nil {
		notFoundOr(c, err)
		return
	}
	suggestions, err := s.reg.Suggestions(id)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	if suggestions == nil {
		suggestions = []*models.RoleSuggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// handleTelemetry GET /telemetry?model=
func (s *Server) handleTelemetry(c *gin.Context) {
	stats, err := s.tel.Stats(c.Query("model"))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		stats = []*telemetry.ModelStats{}
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// handleRoute POST /route
func (s *Server) handleRoute(c *gin.Context) {
	var body struct {
		Type       string   `json:"type"`
		Candidates []string `json:"candidates"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Type == "" {
		errorJSON(c, http.StatusBadRequest, "type is required")
		return
	}

	candidates, err := s.routeCandidates(body.Candidates)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(candidates) == 0 {
		errorJSON(c, http.StatusNotFound, "no candidate models")
		return
	}

	best := s.tel.BestModel(body.Type, candidates)
	c.JSON(http.StatusOK, gin.H{"recommended": best.ID, "model": best})
}

// routeCandidates resolves the candidate list: named IDs when given,
// otherwise every enabled model.
func (s *Server) routeCandidates(ids []string) ([]*models.ModelProfile, error) {
	if len(ids) == 0 {
		all, err := s.reg.List()
		if err != nil {
			return nil, err
		}
		var out []*models.ModelProfile
		for _, m := range all {
			if m.Enabled {
				out = append(out, m)
			}
		}
		return out, nil
	}

	out := make([]*models.ModelProfile, 0, len(ids))
	for _, id := range ids {
		m, err := s.reg.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
