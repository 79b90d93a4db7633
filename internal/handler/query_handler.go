package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chromaproxy/internal/pkg/response"
	"github.com/xxxsen/chromaproxy/internal/service"
)

type QueryHandler struct {
	documents *service.DocumentService
}

func NewQueryHandler(documents *service.DocumentService) *QueryHandler {
	return &QueryHandler{documents: documents}
}

type queryRequest struct {
	Query    string `json:"query"`
	NResults *int   `json:"n_results"`
}

// Query accepts the text as ?q= or body "query", and the result count as
// ?n= or body "n_results". Body values win.
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		invalid(c, "invalid request")
		return
	}
	if req.Query == "" {
		req.Query = c.Query("q")
	}
	if strings.TrimSpace(req.Query) == "" {
		invalid(c, "query required")
		return
	}
	n, err := resultCount(c, req.NResults)
	if err != nil {
		invalid(c, err.Error())
		return
	}
	res, err := h.documents.Query(c.Request.Context(), c.Param("name"), service.QueryInput{
		Text:     req.Query,
		NResults: n,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// resultCount returns 0 when the caller did not ask for a count, so the
// service applies its default. An explicit count must be positive.
func resultCount(c *gin.Context, fromBody *int) (int, error) {
	if fromBody == nil {
		raw := c.Query("n")
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, errors.New("n must be an integer")
		}
		fromBody = &v
	}
	if *fromBody <= 0 {
		return 0, errors.New("n_results must be positive")
	}
	return *fromBody, nil
}
