package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tributary-ai-services/Cloakroom/pkg/crypt"
	"github.com/Tributary-ai-services/Cloakroom/pkg/detect"
	"github.com/Tributary-ai-services/Cloakroom/pkg/filter"
	"github.com/Tributary-ai-services/Cloakroom/pkg/session"
)

// Handler serves the privacy filter HTTP API.
type Handler struct {
	filter  filter.Filter
	service string
	version string
	logger  *slog.Logger
}

// HandlerOption is a functional option for configuring a Handler.
type HandlerOption func(*Handler)

// WithServiceInfo sets the identity reported by the health endpoint.
func WithServiceInfo(service, version string) HandlerOption {
	return func(h *Handler) {
		h.service = service
		h.version = version
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates an API handler over the given filter.
func NewHandler(f filter.Filter, opts ...HandlerOption) *Handler {
	h := &Handler{
		filter:  f,
		service: "cloakroom",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the API routes to the router.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/healthz", h.health)

	v1 := router.Group("/v1")
	v1.POST("/mask", h.mask)
	v1.POST("/demask", h.demask)
	v1.POST("/resolve", h.resolve)
	v1.POST("/sessions/:id/extend", h.extendSession)
	v1.DELETE("/sessions/:id", h.deleteSession)
	v1.POST("/llm-flow", h.llmFlow)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: h.service,
		Version: h.version,
	})
}

func (h *Handler) mask(c *gin.Context) {
	var req MaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	types := make([]detect.EntityType, 0, len(req.EntityTypes))
	for _, t := range req.EntityTypes {
		types = append(types, detect.EntityType(t))
	}

	result, err := h.filter.Mask(c.Request.Context(), filter.MaskRequest{
		Text:        req.Text,
		SessionID:   req.SessionID,
		EntityTypes: types,
	})
	if err != nil {
		h.writeError(c, "mask", err)
		return
	}

	c.JSON(http.StatusOK, MaskResponse{
		MaskedText:    result.MaskedText,
		Tokens:        result.Tokens,
		EntitiesFound: summarize(result.EntitiesFound),
		SessionID:     result.SessionID,
	})
}

func (h *Handler) demask(c *gin.Context) {
	var req DemaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.filter.Demask(c.Request.Context(), filter.DemaskRequest{
		MaskedText: req.MaskedText,
		Tokens:     req.Tokens,
		SessionID:  req.SessionID,
	})
	if err != nil {
		h.writeError(c, "demask", err)
		return
	}

	c.JSON(http.StatusOK, DemaskResponse{
		Text:             result.Text,
		EntitiesRestored: result.EntitiesRestored,
	})
}

func (h *Handler) resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resolved, err := h.filter.Resolve(c.Request.Context(), req.SessionID, req.Tokens)
	if err != nil {
		h.writeError(c, "resolve", err)
		return
	}

	c.JSON(http.StatusOK, ResolveResponse{Resolved: resolved})
}

func (h *Handler) extendSession(c *gin.Context) {
	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	extended, err := h.filter.ExtendSession(c.Request.Context(), c.Param("id"), req.Tokens)
	if err != nil {
		h.writeError(c, "extend", err)
		return
	}

	c.JSON(http.StatusOK, ExtendResponse{Extended: extended})
}

func (h *Handler) deleteSession(c *gin.Context) {
	deleted, err := h.filter.DeleteSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "delete", err)
		return
	}

	c.JSON(http.StatusOK, DeleteResponse{Deleted: deleted})
}

// llmFlow drives the privacy-protected LLM round trip in two
// client-initiated phases. Without a session id the request masks
// user_input and returns the session; with a session id and an
// llm_response it demasks the model output against that session.
func (h *Handler) llmFlow(c *gin.Context) {
	var req LLMFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	switch {
	case req.SessionID == "" && req.UserInput != "":
		result, err := h.filter.Mask(c.Request.Context(), filter.MaskRequest{
			Text: req.UserInput,
		})
		if err != nil {
			h.writeError(c, "llm-flow", err)
			return
		}
		c.JSON(http.StatusOK, LLMFlowResponse{
			MaskedInput: result.MaskedText,
			SessionID:   result.SessionID,
		})

	case req.SessionID != "" && req.LLMResponse != "":
		result, err := h.filter.Demask(c.Request.Context(), filter.DemaskRequest{
			MaskedText: req.LLMResponse,
			SessionID:  req.SessionID,
		})
		if err != nil {
			h.writeError(c, "llm-flow", err)
			return
		}
		c.JSON(http.StatusOK, LLMFlowResponse{
			SessionID:        req.SessionID,
			DemaskedResponse: result.Text,
		})

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "provide user_input, or llm_response with session_id",
		})
	}
}

// writeError maps filter errors to HTTP statuses. Response bodies stay
// generic; the detail goes to the log, which itself never sees
// submitted text or token values.
func (h *Handler) writeError(c *gin.Context, op string, err error) {
	h.logger.Error("request failed", "op", op, "error", err)

	switch {
	case errors.Is(err, filter.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, session.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session store unavailable"})
	case errors.Is(err, crypt.ErrDecryptionFailed):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "session could not be read"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func summarize(entities []detect.Entity) []EntitySummary {
	summaries := make([]EntitySummary, 0, len(entities))
	for _, e := range entities {
		summaries = append(summaries, EntitySummary{
			Type:  string(e.Type),
			Start: e.Start,
			End:   e.End,
			Score: e.Score,
		})
	}
	return summaries
}
