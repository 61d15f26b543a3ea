package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lernpfad/backend/internal/orthography"
	"github.com/lernpfad/backend/internal/store"
)

// respondJSON writes the payload, rewritten to Swiss spelling when the
// caller's ?spelling=ch flag asks for it.
func (s *Server) respondJSON(c *gin.Context, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	if c.Query("spelling") == store.SpellingSwiss {
		raw = orthography.SwissJSON(raw)
	}
	c.Data(status, "application/json; charset=utf-8", raw)
}

type taskIDsRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

func (s *Server) getSession(c *gin.Context) {
	res, err := s.sessions.ActiveSession(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	s.respondJSON(c, http.StatusOK, res)
}

func (s *Server) generateSession(c *gin.Context) {
	sess, err := s.sessions.Generate(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	s.respondJSON(c, http.StatusCreated, sess)
}

func (s *Server) completeSessionTasks(c *gin.Context) {
	var req taskIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "validation_error"})
		return
	}
	if err := s.sessions.MarkTasksDone(c.Request.Context(), userID(c), req.TaskIDs); err != nil {
		respondError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getPlan(c *gin.Context) {
	res, err := s.plans.ActivePlan(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	s.respondJSON(c, http.StatusOK, res)
}

type generatePlanRequest struct {
	Days int `json:"days"`
}

func (s *Server) generatePlan(c *gin.Context) {
	var req generatePlanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "validation_error"})
			return
		}
	}
	view, err := s.plans.Generate(c.Request.Context(), userID(c), req.Days)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	s.respondJSON(c, http.StatusCreated, view)
}

func (s *Server) completePlanTasks(c *gin.Context) {
	var req taskIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "validation_error"})
		return
	}
	res, err := s.plans.CompleteTasks(c.Request.Context(), userID(c), req.TaskIDs)
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	s.respondJSON(c, http.StatusOK, res)
}

func (s *Server) abandonPlan(c *gin.Context) {
	if err := s.plans.Abandon(c.Request.Context(), userID(c)); err != nil {
		respondError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getCurriculum(c *gin.Context) {
	var maxZyklus *int
	if raw := c.Query("max_zyklus"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 3 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_zyklus must be 1, 2 or 3", "code": "validation_error"})
			return
		}
		maxZyklus = &n
	}

	nodes, err := s.curriculum.Tree(c.Request.Context(), userID(c), maxZyklus, c.Query("fachbereich"))
	if err != nil {
		respondError(c, s.log, err)
		return
	}
	s.respondJSON(c, http.StatusOK, gin.H{"nodes": nodes})
}

type spellingRequest struct {
	Variant string `json:"variant"`
}

func (s *Server) setSpelling(c *gin.Context) {
	var req spellingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "validation_error"})
		return
	}
	if req.Variant != store.SpellingGerman && req.Variant != store.SpellingSwiss {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant must be de or ch", "code": "validation_error"})
		return
	}
	if err := s.settings.SetSpellingVariant(c.Request.Context(), userID(c), req.Variant); err != nil {
		respondError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
