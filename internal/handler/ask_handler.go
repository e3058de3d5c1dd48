package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/pkg/errcode"
	"github.com/docask/docask/internal/pkg/response"
	"github.com/docask/docask/internal/service"
)

type AskHandler struct {
	ask *service.AskService
}

func NewAskHandler(ask *service.AskService) *AskHandler {
	return &AskHandler{ask: ask}
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.ask.Ask(c.Request.Context(), getUserID(c), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Explain reports the routing decision for a question without running
// retrieval or generation.
func (h *AskHandler) Explain(c *gin.Context) {
	question := c.Query("q")
	if question == "" {
		response.Error(c, errcode.ErrInvalid, "q is required")
		return
	}
	route := h.ask.Explain(question)
	response.Success(c, gin.H{
		"query_type": route.QueryType,
		"strategy":   route.Strategy,
		"top_k":      route.TopK,
		"threshold":  route.SimilarityThreshold,
	})
}

func (h *AskHandler) ClearHistory(c *gin.Context) {
	h.ask.ClearHistory(getUserID(c))
	response.Success(c, gin.H{"ok": true})
}
