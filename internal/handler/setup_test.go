package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/chromaproxy/internal/handler"
	"github.com/xxxsen/chromaproxy/internal/middleware"
	"github.com/xxxsen/chromaproxy/internal/service"
	"github.com/xxxsen/chromaproxy/internal/vectordb"
)

type routerOptions struct {
	autoCreate bool
	jwtSecret  []byte
	rateLimit  gin.HandlerFunc
	client     vectordb.Client
}

func setupRouter(t *testing.T, opts routerOptions) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := opts.client
	if client == nil {
		client = vectordb.NewMemoryClient()
	}
	svcOpts := service.Options{
		AutoCreate:     opts.autoCreate,
		DefaultResults: 2,
		MaxResults:     10,
	}
	system, err := handler.NewSystemHandler(client, time.Second)
	require.NoError(t, err)
	documents := service.NewDocumentService(client, svcOpts)

	deps := handler.RouterDeps{
		Collections: handler.NewCollectionHandler(service.NewCollectionService(client, svcOpts)),
		Documents:   handler.NewDocumentHandler(documents),
		Query:       handler.NewQueryHandler(documents),
		System:      system,
		JWTSecret:   opts.jwtSecret,
		RateLimit:   opts.rateLimit,
	}

	engine, err := webapi.NewEngine(
		"/",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Recovery(),
		),
	)
	require.NoError(t, err)
	return engine
}

type apiResponse struct {
	Code int
	Body []byte
}

func (r apiResponse) decode(t *testing.T, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, dst), string(r.Body))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers ...string) apiResponse {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return apiResponse{Code: resp.Code, Body: resp.Body.Bytes()}
}

type messageBody struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type documentList struct {
	IDs       []string `json:"ids"`
	Documents []string `json:"documents"`
}
