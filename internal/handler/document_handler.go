package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chromaproxy/internal/pkg/response"
	"github.com/xxxsen/chromaproxy/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type addDocumentRequest struct {
	Document string `json:"document"`
}

type addDocumentResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (h *DocumentHandler) Add(c *gin.Context) {
	var req addDocumentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		invalid(c, "invalid request")
		return
	}
	if req.Document == "" {
		invalid(c, "document required")
		return
	}
	id, err := h.documents.Add(c.Request.Context(), c.Param("name"), req.Document)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, addDocumentResponse{Message: response.SuccessMessage, ID: id})
}

func (h *DocumentHandler) List(c *gin.Context) {
	list, err := h.documents.List(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, list)
}

type deleteDocumentRequest struct {
	DocumentID string `json:"documentId"`
}

// Delete takes the id from the path when present, else from the body.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		var req deleteDocumentRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			invalid(c, "invalid request")
			return
		}
		id = req.DocumentID
	}
	if strings.TrimSpace(id) == "" {
		invalid(c, "documentId required")
		return
	}
	if err := h.documents.Delete(c.Request.Context(), c.Param("name"), id); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}
