package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	chhttp "github.com/amikos-tech/chroma-go/pkg/commons/http"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/xxxsen/chromaproxy/internal/config"
	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
)

func init() {
	Register("chroma", createChromaClient)
}

// requestExecutor is the raw request path of the chroma http client, used
// where the typed result decoders misread chroma's replies.
type requestExecutor interface {
	ExecuteRequest(ctx context.Context, method string, path string, request interface{}) ([]byte, error)
}

// chromaClient serialises the calls that touch the http client's collection
// cache and preflight state, which are plain maps.
type chromaClient struct {
	mu          sync.Mutex
	client      chroma.Client
	ef          embeddings.EmbeddingFunction
	closeEF     func() error
	preflighted bool
}

func createChromaClient(cfg config.VectorDBConfig) (Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("chroma url is required")
	}
	opts := []chroma.ClientOption{chroma.WithBaseURL(cfg.URL)}
	if len(cfg.Headers) > 0 {
		opts = append(opts, chroma.WithDefaultHeaders(cfg.Headers))
	}
	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("init chroma client: %w", err)
	}
	ef, closeEF, err := newEmbeddingFunction(cfg.Embedding)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("init embedding function: %w", err)
	}
	return &chromaClient{client: client, ef: ef, closeEF: closeEF}, nil
}

func (c *chromaClient) wrap(col chroma.Collection) *chromaCollection {
	return &chromaCollection{parent: c, col: col}
}

func (c *chromaClient) CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error) {
	opts := []chroma.CreateCollectionOption{chroma.WithEmbeddingFunctionCreate(c.ef)}
	if len(metadata) > 0 {
		opts = append(opts, chroma.WithCollectionMetadataCreate(chroma.NewMetadata(toAttributes(metadata)...)))
	}
	c.mu.Lock()
	col, err := c.client.CreateCollection(ctx, name, opts...)
	c.mu.Unlock()
	if err != nil {
		return nil, normalizeChromaErr(ctx, "create collection "+name, err)
	}
	return c.wrap(col), nil
}

func (c *chromaClient) ListCollectionNames(ctx context.Context) ([]string, error) {
	cols, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, normalizeChromaErr(ctx, "list collections", err)
	}
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name())
	}
	return names, nil
}

func (c *chromaClient) GetCollection(ctx context.Context, name string) (Collection, error) {
	c.mu.Lock()
	col, err := c.client.GetCollection(ctx, name, chroma.WithEmbeddingFunctionGet(c.ef))
	c.mu.Unlock()
	if err != nil {
		return nil, normalizeChromaErr(ctx, "get collection "+name, err)
	}
	if col == nil {
		return nil, fmt.Errorf("get collection %s: %w", name, appErr.ErrNotFound)
	}
	return c.wrap(col), nil
}

func (c *chromaClient) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	c.mu.Lock()
	col, err := c.client.GetOrCreateCollection(ctx, name, chroma.WithEmbeddingFunctionCreate(c.ef))
	c.mu.Unlock()
	if err != nil {
		return nil, normalizeChromaErr(ctx, "get or create collection "+name, err)
	}
	return c.wrap(col), nil
}

func (c *chromaClient) DeleteCollection(ctx context.Context, col Collection) error {
	c.mu.Lock()
	err := c.client.DeleteCollection(ctx, col.Name())
	c.mu.Unlock()
	if err != nil {
		return normalizeChromaErr(ctx, "delete collection "+col.Name(), err)
	}
	return nil
}

func (c *chromaClient) Heartbeat(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return normalizeChromaErr(ctx, "heartbeat", err)
	}
	return nil
}

// ensurePreflight fetches the server limits once. Collection writes read them
// without locking, so the first fetch must finish before any write starts.
func (c *chromaClient) ensurePreflight(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preflighted {
		return nil
	}
	if err := c.client.PreFlight(ctx); err != nil {
		return normalizeChromaErr(ctx, "preflight", err)
	}
	c.preflighted = true
	return nil
}

func (c *chromaClient) Close() error {
	c.mu.Lock()
	err := c.client.Close()
	c.mu.Unlock()
	if c.closeEF != nil {
		if cerr := c.closeEF(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type chromaCollection struct {
	parent *chromaClient
	col    chroma.Collection
}

func (c *chromaCollection) Name() string {
	return c.col.Name()
}

func (c *chromaCollection) ID() string {
	return c.col.ID()
}

func (c *chromaCollection) Metadata() map[string]string {
	out := map[string]string{}
	md := c.col.Metadata()
	if md == nil {
		return out
	}
	if v, ok := md.GetString(MetadataDescription); ok {
		out[MetadataDescription] = v
	}
	return out
}

func (c *chromaCollection) Add(ctx context.Context, ids []string, contents []string, metadatas []map[string]string) error {
	if err := c.parent.ensurePreflight(ctx); err != nil {
		return err
	}
	opts := []chroma.CollectionAddOption{
		chroma.WithIDs(toDocumentIDs(ids)...),
		chroma.WithTexts(contents...),
	}
	if len(metadatas) > 0 {
		metas := make([]chroma.DocumentMetadata, 0, len(metadatas))
		for _, m := range metadatas {
			metas = append(metas, chroma.NewDocumentMetadata(toAttributes(m)...))
		}
		opts = append(opts, chroma.WithMetadatas(metas...))
	}
	if err := c.col.Add(ctx, opts...); err != nil {
		return normalizeChromaErr(ctx, "add documents to "+c.col.Name(), err)
	}
	return nil
}

func (c *chromaCollection) Get(ctx context.Context, opts GetOptions) (*GetResult, error) {
	var getOpts []chroma.CollectionGetOption
	if opts.IncludeDocuments {
		getOpts = append(getOpts, chroma.WithIncludeGet(chroma.IncludeDocuments))
	}
	res, err := c.col.Get(ctx, getOpts...)
	if isDecodeErr(err) && opts.IncludeDocuments {
		return c.rawGet(ctx)
	}
	if err != nil {
		return nil, normalizeChromaErr(ctx, "get documents from "+c.col.Name(), err)
	}
	out := &GetResult{IDs: fromDocumentIDs(res.GetIDs())}
	if opts.IncludeDocuments {
		out.Documents = fromDocuments(res.GetDocuments())
	}
	return out, nil
}

func (c *chromaCollection) Delete(ctx context.Context, ids []string) error {
	if err := c.parent.ensurePreflight(ctx); err != nil {
		return err
	}
	if err := c.col.Delete(ctx, chroma.WithIDsDelete(toDocumentIDs(ids)...)); err != nil {
		return normalizeChromaErr(ctx, "delete documents from "+c.col.Name(), err)
	}
	return nil
}

// Query embeds the texts itself and decodes the groups directly. The typed
// query decoder merges document groups across query texts.
func (c *chromaCollection) Query(ctx context.Context, texts []string, nResults int) (*QueryResult, error) {
	embedded, err := c.parent.ef.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed query texts: %w", err)
	}
	vectors := make([][]float32, 0, len(embedded))
	for _, e := range embedded {
		vectors = append(vectors, e.ContentAsFloat32())
	}
	body := map[string]interface{}{
		"query_embeddings": vectors,
		"n_results":        nResults,
		"include":          []string{string(chroma.IncludeDocuments)},
	}
	var res rawQueryResult
	if err := c.execute(ctx, "query", body, &res); err != nil {
		return nil, normalizeChromaErr(ctx, "query "+c.col.Name(), err)
	}
	return &QueryResult{IDGroups: res.IDs, DocumentGroups: res.Documents}, nil
}

func (c *chromaCollection) Count(ctx context.Context) (int, error) {
	n, err := c.col.Count(ctx)
	if err != nil {
		return 0, normalizeChromaErr(ctx, "count "+c.col.Name(), err)
	}
	return n, nil
}

// The typed get decoder rejects a null document, which chroma returns for
// records stored without content. rawGet repeats the call and decodes
// documents as nullable strings.

type rawGetResult struct {
	IDs       []string  `json:"ids"`
	Documents []*string `json:"documents"`
}

type rawQueryResult struct {
	IDs       [][]string  `json:"ids"`
	Documents [][]*string `json:"documents"`
}

func (c *chromaCollection) rawGet(ctx context.Context) (*GetResult, error) {
	body := map[string]interface{}{
		"include": []string{string(chroma.IncludeDocuments)},
	}
	var res rawGetResult
	if err := c.execute(ctx, "get", body, &res); err != nil {
		return nil, normalizeChromaErr(ctx, "get documents from "+c.col.Name(), err)
	}
	return &GetResult{IDs: res.IDs, Documents: res.Documents}, nil
}

func (c *chromaCollection) execute(ctx context.Context, op string, body interface{}, dst interface{}) error {
	exec, ok := c.parent.client.(requestExecutor)
	if !ok {
		return fmt.Errorf("chroma client %T cannot execute raw requests", c.parent.client)
	}
	path, err := url.JoinPath("tenants", c.col.Tenant().Name(), "databases", c.col.Database().Name(), "collections", c.col.ID(), op)
	if err != nil {
		return err
	}
	raw, err := exec.ExecuteRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s result: %w", op, err)
	}
	return nil
}

func isDecodeErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unmarshalling")
}

func toAttributes(m map[string]string) []*chroma.MetaAttribute {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]*chroma.MetaAttribute, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, chroma.NewStringAttribute(k, m[k]))
	}
	return attrs
}

func toDocumentIDs(ids []string) []chroma.DocumentID {
	out := make([]chroma.DocumentID, 0, len(ids))
	for _, id := range ids {
		out = append(out, chroma.DocumentID(id))
	}
	return out
}

func fromDocumentIDs(ids chroma.DocumentIDs) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func fromDocuments(docs chroma.Documents) []*string {
	out := make([]*string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			out = append(out, nil)
			continue
		}
		content := doc.ContentString()
		out = append(out, &content)
	}
	return out
}

// normalizeChromaErr maps a chroma failure onto the proxy's error kinds.
// A status-less ChromaError means the request never got a response. Other
// network errors, such as an unreachable embedding provider, are not the
// database's and stay unclassified.
func normalizeChromaErr(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%s: %w: %v", op, cerr, err)
	}
	var chErr *chhttp.ChromaError
	if errors.As(err, &chErr) {
		switch {
		case chErr.ErrorCode == 0:
			return fmt.Errorf("%s: %w: %v", op, appErr.ErrUnavailable, err)
		case chErr.ErrorCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, appErr.ErrNotFound, err)
		case chErr.ErrorCode == http.StatusConflict:
			return fmt.Errorf("%s: %w: %v", op, appErr.ErrConflict, err)
		case chErr.ErrorCode == http.StatusServiceUnavailable, chErr.ErrorCode == http.StatusBadGateway:
			return fmt.Errorf("%s: %w: %v", op, appErr.ErrUnavailable, err)
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%s: %w: %v", op, appErr.ErrConflict, err)
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "not found"):
		return fmt.Errorf("%s: %w: %v", op, appErr.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
