package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/id"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// submitBody is the JSON body for POST /v1/requests.
type submitBody struct {
	Handler  string            `json:"handler" binding:"required"`
	UserID   string            `json:"user_id" binding:"required"`
	Tier     string            `json:"tier"`
	Payload  json.RawMessage   `json:"payload"`
	Timeout  string            `json:"timeout"`
	Category string            `json:"category"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) submitRequest(c *gin.Context) {
	var body submitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var opts []request.Option
	if body.Tier != "" {
		tier, err := sla.Parse(body.Tier)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts = append(opts, request.WithTier(tier))
	}
	if body.Timeout != "" {
		d, err := time.ParseDuration(body.Timeout)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout: " + err.Error()})
			return
		}
		opts = append(opts, request.WithTimeout(d))
	}
	if body.Category != "" {
		opts = append(opts, request.WithCategory(body.Category))
	}
	if body.Metadata != nil {
		opts = append(opts, request.WithMetadata(body.Metadata))
	}

	r, err := s.sched.SubmitRaw(c.Request.Context(), body.Handler, body.UserID, body.Payload, opts...)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, r)
}

func (s *Server) getRequest(c *gin.Context) {
	rid, ok := s.parseID(c)
	if !ok {
		return
	}

	r, err := s.sched.Status(rid)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) getResult(c *gin.Context) {
	rid, ok := s.parseID(c)
	if !ok {
		return
	}

	var wait time.Duration
	if c.Query("wait") == "true" {
		wait = 30 * time.Second
		if t := c.Query("timeout"); t != "" {
			d, err := time.ParseDuration(t)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout: " + err.Error()})
				return
			}
			wait = d
		}
	}

	r, err := s.sched.Result(c.Request.Context(), rid, wait)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) cancelRequest(c *gin.Context) {
	rid, ok := s.parseID(c)
	if !ok {
		return
	}

	if err := s.sched.Cancel(c.Request.Context(), rid); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clearCompleted(c *gin.Context) {
	var olderThan time.Duration
	if t := c.Query("older_than"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid older_than: " + err.Error()})
			return
		}
		olderThan = d
	}

	removed := s.sched.ClearCompleted(olderThan)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.sched.Stats())
}

func (s *Server) listTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": s.sched.Tiers()})
}

func (s *Server) listHandlers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"handlers": s.sched.HandlerNames()})
}

// setTierBody is the JSON body for PUT /v1/users/:id/tier.
type setTierBody struct {
	Tier string `json:"tier" binding:"required"`
}

func (s *Server) setUserTier(c *gin.Context) {
	var body setTierBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier, err := sla.Parse(body.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.sched.SetUserTier(c.Param("id"), tier); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) userUsage(c *gin.Context) {
	usage, ok := s.sched.UserUsage(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

// parseID parses the :id path parameter as a request ID, rendering 400 on
// malformed input.
func (s *Server) parseID(c *gin.Context) (id.RequestID, bool) {
	rid, err := id.ParseRequestID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return id.Nil, false
	}
	return rid, true
}

// renderError maps scheduler errors to HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case tierq.IsAdmissionError(err):
		status = http.StatusTooManyRequests
	case errors.Is(err, tierq.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tierq.ErrUnknownHandler), errors.Is(err, tierq.ErrInvalidTier):
		status = http.StatusBadRequest
	case errors.Is(err, tierq.ErrWaitTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, tierq.ErrNotCancellable):
		status = http.StatusConflict
	case errors.Is(err, tierq.ErrSchedulerStopped):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
