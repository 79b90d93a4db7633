package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/xxxsen/chromaproxy/internal/config"
	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
)

func init() {
	Register("memory", func(config.VectorDBConfig) (Client, error) {
		return NewMemoryClient(), nil
	})
}

// MemoryClient keeps collections in process memory and ranks query results
// by token overlap. It stands in for chroma during development and tests.
type MemoryClient struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	order       []string
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{collections: map[string]*memoryCollection{}}
}

func (m *MemoryClient) CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return nil, fmt.Errorf("collection %s: %w", name, appErr.ErrConflict)
	}
	return m.createLocked(name, metadata), nil
}

func (m *MemoryClient) createLocked(name string, metadata map[string]string) *memoryCollection {
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	col := &memoryCollection{
		id:       uuid.NewString(),
		name:     name,
		metadata: md,
		index:    map[string]int{},
	}
	m.collections[name] = col
	m.order = append(m.order, name)
	return col
}

func (m *MemoryClient) ListCollectionNames(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names, nil
}

func (m *MemoryClient) GetCollection(ctx context.Context, name string) (Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, appErr.ErrNotFound)
	}
	return col, nil
}

func (m *MemoryClient) GetOrCreateCollection(ctx context.Context, name string) (Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.collections[name]; ok {
		return col, nil
	}
	return m.createLocked(name, nil), nil
}

func (m *MemoryClient) DeleteCollection(ctx context.Context, col Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := col.Name()
	existing, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %s: %w", name, appErr.ErrNotFound)
	}
	existing.drop()
	delete(m.collections, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryClient) Heartbeat(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryClient) Close() error {
	return nil
}

type memoryDoc struct {
	id       string
	content  *string
	metadata map[string]string
}

type memoryCollection struct {
	id       string
	name     string
	metadata map[string]string

	mu      sync.RWMutex
	docs    []memoryDoc
	index   map[string]int
	dropped bool
}

func (c *memoryCollection) Name() string {
	return c.name
}

func (c *memoryCollection) ID() string {
	return c.id
}

func (c *memoryCollection) Metadata() map[string]string {
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

func (c *memoryCollection) drop() {
	c.mu.Lock()
	c.dropped = true
	c.mu.Unlock()
}

func (c *memoryCollection) checkLocked() error {
	if c.dropped {
		return fmt.Errorf("collection %s: %w", c.name, appErr.ErrNotFound)
	}
	return nil
}

func (c *memoryCollection) Add(ctx context.Context, ids []string, contents []string, metadatas []map[string]string) error {
	if len(ids) != len(contents) {
		return fmt.Errorf("ids and documents length mismatch: %w", appErr.ErrInvalid)
	}
	if len(metadatas) > 0 && len(metadatas) != len(ids) {
		return fmt.Errorf("ids and metadatas length mismatch: %w", appErr.ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := c.index[id]; ok {
			return fmt.Errorf("document %s: %w", id, appErr.ErrConflict)
		}
	}
	for i, id := range ids {
		content := contents[i]
		doc := memoryDoc{id: id, content: &content}
		if len(metadatas) > 0 {
			doc.metadata = metadatas[i]
		}
		c.index[id] = len(c.docs)
		c.docs = append(c.docs, doc)
	}
	return nil
}

func (c *memoryCollection) Get(ctx context.Context, opts GetOptions) (*GetResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	res := &GetResult{IDs: make([]string, 0, len(c.docs))}
	if opts.IncludeDocuments {
		res.Documents = make([]*string, 0, len(c.docs))
	}
	for _, doc := range c.docs {
		res.IDs = append(res.IDs, doc.id)
		if opts.IncludeDocuments {
			res.Documents = append(res.Documents, doc.content)
		}
	}
	return res, nil
}

func (c *memoryCollection) Delete(ctx context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := c.docs[:0]
	for _, doc := range c.docs {
		if _, ok := drop[doc.id]; ok {
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	c.index = make(map[string]int, len(kept))
	for i, doc := range kept {
		c.index[doc.id] = i
	}
	return nil
}

func (c *memoryCollection) Query(ctx context.Context, texts []string, nResults int) (*QueryResult, error) {
	if nResults <= 0 {
		return nil, fmt.Errorf("n_results must be positive: %w", appErr.ErrInvalid)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	res := &QueryResult{}
	for _, text := range texts {
		ids, docs := c.rankLocked(text, nResults)
		res.IDGroups = append(res.IDGroups, ids)
		res.DocumentGroups = append(res.DocumentGroups, docs)
	}
	return res, nil
}

func (c *memoryCollection) rankLocked(text string, n int) ([]string, []*string) {
	query := tokenSet(text)
	type scored struct {
		pos      int
		distance float64
	}
	ranked := make([]scored, 0, len(c.docs))
	for i, doc := range c.docs {
		content := ""
		if doc.content != nil {
			content = *doc.content
		}
		ranked = append(ranked, scored{pos: i, distance: 1 - jaccard(query, tokenSet(content))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].distance < ranked[j].distance
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	ids := make([]string, 0, len(ranked))
	docs := make([]*string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, c.docs[r.pos].id)
		docs = append(docs, c.docs[r.pos].content)
	}
	return ids, docs
}

func (c *memoryCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkLocked(); err != nil {
		return 0, err
	}
	return len(c.docs), nil
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
