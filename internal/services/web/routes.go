package web

import (
	"context"
	"net/http"

	"discord-trigger/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type executeRequest struct {
	Parameters map[string]any `json:"parameters"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Service) routes() {
	r := s.GinEngine
	r.GET("/healthz", s.healthz)
	r.GET("/nodes", s.listNodes)
	r.GET("/credentials", s.listCredentials)
	r.POST("/nodes/:name/executions", s.execute)
	r.GET("/executions", s.listExecutions)
	r.DELETE("/executions/:id", s.cancelExecution)
}

func (s *Service) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Service) listNodes(c *gin.Context) {
	c.JSON(http.StatusOK, s.Executor.Nodes())
}

func (s *Service) listCredentials(c *gin.Context) {
	types := s.CredentialTypes
	if types == nil {
		types = []core.CredentialDescription{}
	}
	c.JSON(http.StatusOK, types)
}

func (s *Service) execute(c *gin.Context) {
	var req executeRequest
	// empty body means default parameters
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "ConfigurationError"})
			return
		}
	}
	if req.Parameters == nil {
		req.Parameters = map[string]any{}
	}
	result, err := s.Executor.Execute(c.Request.Context(), c.Param("name"), req.Parameters)
	if err != nil {
		status, kind := StatusFor(err)
		core.Logger.Warnf("execution of %s failed: %v", c.Param("name"), err)
		c.JSON(status, errorResponse{Error: err.Error(), Kind: kind})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Service) listExecutions(c *gin.Context) {
	executions := s.Executor.ListExecutions()
	if executions == nil {
		executions = []core.Execution{}
	}
	c.JSON(http.StatusOK, executions)
}

func (s *Service) cancelExecution(c *gin.Context) {
	id := core.CombinedKeyFromRaw(c.Param("id"))
	if !s.Executor.CancelExecution(id) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no running execution " + string(id)})
		return
	}
	c.Status(http.StatusNoContent)
}

// StatusFor map an execution error to the HTTP status and the error kind reported to clients.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUnknownNode):
		return http.StatusNotFound, "UnknownNode"
	case errors.Is(err, core.ErrConfiguration):
		return http.StatusBadRequest, "ConfigurationError"
	case errors.Is(err, core.ErrAuthentication):
		return http.StatusUnauthorized, "AuthenticationError"
	case errors.Is(err, core.ErrConnection):
		return http.StatusBadGateway, "ConnectionError"
	case errors.Is(err, core.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TimeoutError"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "Cancelled"
	default:
		return http.StatusInternalServerError, ""
	}
}
