package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/pkg/errcode"
	"github.com/docask/docask/internal/pkg/response"
	"github.com/docask/docask/internal/service"
)

type DocumentHandler struct {
	library *service.LibraryService
}

func NewDocumentHandler(library *service.LibraryService) *DocumentHandler {
	return &DocumentHandler{library: library}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	docID, err := h.library.Ingest(c.Request.Context(), getUserID(c), req.Title, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": docID})
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.library.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"total": len(docs), "documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.library.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.library.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
