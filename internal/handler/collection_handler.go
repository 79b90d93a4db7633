package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chromaproxy/internal/pkg/response"
	"github.com/xxxsen/chromaproxy/internal/service"
)

type CollectionHandler struct {
	collections *service.CollectionService
}

func NewCollectionHandler(collections *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var req createCollectionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		invalid(c, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		invalid(c, "name required")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		invalid(c, "description required")
		return
	}
	err := h.collections.Create(c.Request.Context(), service.CollectionCreateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}

func (h *CollectionHandler) List(c *gin.Context) {
	list, err := h.collections.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, list)
}

func (h *CollectionHandler) Get(c *gin.Context) {
	info, err := h.collections.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

type deleteCollectionRequest struct {
	Name string `json:"name"`
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	var req deleteCollectionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		invalid(c, "invalid request")
		return
	}
	if req.Name == "" {
		req.Name = c.Query("name")
	}
	if strings.TrimSpace(req.Name) == "" {
		invalid(c, "name required")
		return
	}
	if err := h.collections.Delete(c.Request.Context(), req.Name); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c)
}
