package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
	"github.com/xxxsen/chromaproxy/internal/vectordb"
)

func newServices(t *testing.T, opts Options) (*CollectionService, *DocumentService) {
	t.Helper()
	client := vectordb.NewMemoryClient()
	return NewCollectionService(client, opts), NewDocumentService(client, opts)
}

func TestCollectionService_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	collections, _ := newServices(t, Options{AutoCreate: true})

	require.NoError(t, collections.Create(ctx, CollectionCreateInput{Name: "notes", Description: "test"}))
	list, err := collections.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"notes"}, list.Collections)

	info, err := collections.Get(ctx, "notes")
	require.NoError(t, err)
	require.Equal(t, "notes", info.Name)
	require.Equal(t, "test", info.Description)
	require.Equal(t, 0, info.Count)

	err = collections.Create(ctx, CollectionCreateInput{Name: "notes", Description: "again"})
	require.ErrorIs(t, err, appErr.ErrConflict)

	require.NoError(t, collections.Delete(ctx, "notes"))
	list, err = collections.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list.Collections)
	require.NotNil(t, list.Collections)
}

func TestCollectionService_CreateRequiresName(t *testing.T) {
	collections, _ := newServices(t, Options{AutoCreate: true})
	err := collections.Create(context.Background(), CollectionCreateInput{Name: "  "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestCollectionService_DeleteMissing(t *testing.T) {
	ctx := context.Background()

	collections, _ := newServices(t, Options{AutoCreate: true})
	require.NoError(t, collections.Delete(ctx, "ghost"))

	collections, _ = newServices(t, Options{AutoCreate: false})
	require.ErrorIs(t, collections.Delete(ctx, "ghost"), appErr.ErrNotFound)
}

func TestDocumentService_AddListDelete(t *testing.T) {
	ctx := context.Background()
	_, documents := newServices(t, Options{AutoCreate: true})

	id1, err := documents.Add(ctx, "notes", "hello")
	require.NoError(t, err)
	id2, err := documents.Add(ctx, "notes", "hello")
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	list, err := documents.List(ctx, "notes")
	require.NoError(t, err)
	require.Equal(t, []string{id1, id2}, list.IDs)
	require.Equal(t, []string{"hello", "hello"}, list.Documents)

	require.NoError(t, documents.Delete(ctx, "notes", id1))
	require.NoError(t, documents.Delete(ctx, "notes", "never-existed"))
	list, err = documents.List(ctx, "notes")
	require.NoError(t, err)
	require.Equal(t, []string{id2}, list.IDs)

	_, err = documents.Add(ctx, "notes", "")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.ErrorIs(t, documents.Delete(ctx, "notes", ""), appErr.ErrInvalid)
}

func TestDocumentService_MissingCollectionPolicy(t *testing.T) {
	ctx := context.Background()

	_, documents := newServices(t, Options{AutoCreate: true})
	list, err := documents.List(ctx, "fresh")
	require.NoError(t, err)
	require.Empty(t, list.IDs)
	require.NotNil(t, list.Documents)

	_, documents = newServices(t, Options{AutoCreate: false})
	_, err = documents.List(ctx, "fresh")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = documents.Add(ctx, "fresh", "x")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = documents.Query(ctx, "fresh", QueryInput{Text: "x"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentService_Query(t *testing.T) {
	ctx := context.Background()
	_, documents := newServices(t, Options{AutoCreate: true, DefaultResults: 2, MaxResults: 5})

	empty, err := documents.Query(ctx, "kb", QueryInput{Text: "anything"})
	require.NoError(t, err)
	require.Empty(t, empty.IDs)
	require.Empty(t, empty.Documents)

	for _, content := range []string{"red apples", "green apples", "blue sky", "red car"} {
		_, err := documents.Add(ctx, "kb", content)
		require.NoError(t, err)
	}

	res, err := documents.Query(ctx, "kb", QueryInput{Text: "red apples"})
	require.NoError(t, err)
	require.Len(t, res.IDs, 2)
	require.Equal(t, "red apples", res.Documents[0])

	res, err = documents.Query(ctx, "kb", QueryInput{Text: "apples", NResults: 4})
	require.NoError(t, err)
	require.Len(t, res.IDs, 4)

	_, err = documents.Query(ctx, "kb", QueryInput{Text: "apples", NResults: 6})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = documents.Query(ctx, "kb", QueryInput{Text: "apples", NResults: -1})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = documents.Query(ctx, "kb", QueryInput{Text: " "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestNewDocumentService_Defaults(t *testing.T) {
	documents := NewDocumentService(vectordb.NewMemoryClient(), Options{})
	require.Equal(t, 2, documents.opts.DefaultResults)
	require.Equal(t, 100, documents.opts.MaxResults)

	documents = NewDocumentService(vectordb.NewMemoryClient(), Options{DefaultResults: 10, MaxResults: 1})
	require.Equal(t, 1, documents.opts.DefaultResults)
}

// nullClient returns canned results that contain documents without content.
type nullClient struct {
	vectordb.Client
	err error
}

func (c *nullClient) GetOrCreateCollection(ctx context.Context, name string) (vectordb.Collection, error) {
	return &nullCollection{err: c.err}, nil
}

func (c *nullClient) GetCollection(ctx context.Context, name string) (vectordb.Collection, error) {
	return nil, nil
}

type nullCollection struct {
	vectordb.Collection
	err error
}

func strPtr(s string) *string {
	return &s
}

func (c *nullCollection) Get(ctx context.Context, opts vectordb.GetOptions) (*vectordb.GetResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &vectordb.GetResult{
		IDs:       []string{"a", "b", "c"},
		Documents: []*string{strPtr("one"), nil, strPtr("three")},
	}, nil
}

func (c *nullCollection) Query(ctx context.Context, texts []string, n int) (*vectordb.QueryResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &vectordb.QueryResult{
		IDGroups:       [][]string{{"b", "a"}},
		DocumentGroups: [][]*string{{nil, strPtr("one")}},
	}, nil
}

func TestDocumentService_FiltersNullContent(t *testing.T) {
	ctx := context.Background()
	documents := NewDocumentService(&nullClient{}, Options{AutoCreate: true})

	list, err := documents.List(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, list.IDs)
	require.Equal(t, []string{"one", "three"}, list.Documents)

	res, err := documents.Query(ctx, "c", QueryInput{Text: "q"})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, res.IDs)
	require.Equal(t, []string{"one"}, res.Documents)
}

func TestDocumentService_BackendErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	documents := NewDocumentService(&nullClient{err: boom}, Options{AutoCreate: true})
	_, err := documents.Query(context.Background(), "c", QueryInput{Text: "q"})
	require.ErrorIs(t, err, boom)
}

func TestResolver_NilCollectionIsNotFound(t *testing.T) {
	documents := NewDocumentService(&nullClient{}, Options{AutoCreate: false})
	_, err := documents.List(context.Background(), "c")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

type slowCollection struct {
	vectordb.Collection
}

func (slowCollection) Count(ctx context.Context) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type slowClient struct {
	vectordb.Client
}

func (slowClient) GetOrCreateCollection(ctx context.Context, name string) (vectordb.Collection, error) {
	return slowCollection{}, nil
}

func TestResolver_Timeout(t *testing.T) {
	collections := NewCollectionService(slowClient{}, Options{AutoCreate: true, Timeout: 20 * time.Millisecond})
	_, err := collections.Get(context.Background(), "c")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
