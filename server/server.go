// Package server exposes the agent service over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adsdash/agent-app/agents"
	"adsdash/agent-app/core"
	"adsdash/agent-app/services/agent_service"
)

const (
	codeInvalidParams = "invalid_params"
	codeNotFound      = "not_found"
	codeValidation    = "validation_failed"
	codeTool          = "tool_failed"
	codeTransport     = "transport_failed"
	codeCanceled      = "canceled"
	codeInternal      = "internal_error"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type runRequest struct {
	SessionID string          `json:"session_id"`
	Params    json.RawMessage `json:"params"`
	NoCache   bool            `json:"no_cache"`
	Image     *imagePayload   `json:"image"`
}

type imagePayload struct {
	MIMEType string `json:"mime_type" binding:"required"`
	// Data is base64 encoded.
	Data string `json:"data" binding:"required"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type renderRequest struct {
	Result  agents.ImagePromptResult `json:"result"`
	Variant *int                     `json:"variant"`
}

type handlers struct {
	svc    *agent_service.Service
	logger *zap.Logger
}

// New builds the router. Every origin is allowed, as the dashboard front end
// is served from elsewhere.
func New(svc *agent_service.Service, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{svc: svc, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = append(config.AllowHeaders, "x-session-id")
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/agents", h.listAgents)
	r.GET("/agents/:name", h.describeAgent)
	r.POST("/agents/:name/run", h.runAgent)
	r.POST("/images/render", h.renderImage)

	r.POST("/chat", h.chat)
	r.GET("/chat/:session", h.chatHistory)
	r.DELETE("/chat/:session", h.resetChat)

	r.GET("/history", h.history)
	r.GET("/history/:id", h.run)
	r.GET("/usage", h.usage)

	r.GET("/cache/stats", h.cacheStats)
	r.POST("/cache/cleanup", h.cacheCleanup)
	r.DELETE("/cache", h.clearCache)
	return r
}

func (h *handlers) accessLog(c *gin.Context) {
	c.Next()
	h.logger.Debug("http_request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()))
}

func (h *handlers) listAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.svc.ListAgents()})
}

func (h *handlers) describeAgent(c *gin.Context) {
	meta, err := h.svc.Describe(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *handlers) runAgent(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, codeInvalidParams, err.Error())
			return
		}
	}
	in := core.AgentInput{Name: c.Param("name"), SessionID: req.SessionID, Params: req.Params, NoCache: req.NoCache}
	if in.SessionID == "" {
		in.SessionID = c.GetHeader("x-session-id")
	}
	var img *core.Image
	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			writeError(c, http.StatusBadRequest, codeInvalidParams, "image data is not valid base64")
			return
		}
		img = &core.Image{MIMEType: req.Image.MIMEType, Data: data}
	}

	out, err := h.svc.CallAgent(c.Request.Context(), in, img)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) renderImage(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}
	if err := core.ValidateStruct(&req.Result); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}
	variant := -1
	if req.Variant != nil {
		variant = *req.Variant
	}
	data, mime, err := h.svc.RenderImage(c.Request.Context(), &req.Result, variant)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, mime, data)
}

func (h *handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidParams, err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = c.GetHeader("x-session-id")
	}
	out, err := h.svc.Chat(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) chatHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.svc.ChatHistory(c.Param("session"))})
}

func (h *handlers) resetChat(c *gin.Context) {
	h.svc.ResetChat(c.Param("session"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) history(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		writeError(c, http.StatusBadRequest, codeInvalidParams, "limit must be a positive integer")
		return
	}
	runs, err := h.svc.History(c.Request.Context(), c.Query("agent"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *handlers) run(c *gin.Context) {
	run, ok, err := h.svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, codeNotFound, "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *handlers) usage(c *gin.Context) {
	usage, err := h.svc.Usage(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

func (h *handlers) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CacheStats())
}

func (h *handlers) cacheCleanup(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.svc.CleanupCache()})
}

func (h *handlers) clearCache(c *gin.Context) {
	h.svc.ClearCache()
	c.Status(http.StatusNoContent)
}

func (h *handlers) fail(c *gin.Context, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("agent_request_failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	writeError(c, status, code, err.Error())
}

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, agents.ErrInvalidParams):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, agents.ErrUnknownAgent):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, codeCanceled
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, core.ErrTool):
		return http.StatusFailedDependency, codeTool
	case errors.Is(err, core.ErrTransport):
		return http.StatusBadGateway, codeTransport
	case errors.Is(err, agent_service.ErrNoStore):
		return http.StatusNotImplemented, codeInternal
	}
	return http.StatusInternalServerError, codeInternal
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}
