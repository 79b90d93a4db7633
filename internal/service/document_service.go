package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/chromaproxy/internal/model"
	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
	"github.com/xxxsen/chromaproxy/internal/vectordb"
)

type DocumentService struct {
	resolver
}

func NewDocumentService(client vectordb.Client, opts Options) *DocumentService {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	if opts.DefaultResults <= 0 || opts.DefaultResults > opts.MaxResults {
		opts.DefaultResults = min(2, opts.MaxResults)
	}
	return &DocumentService{resolver: newResolver(client, opts)}
}

// Add stores content under a freshly generated id and returns that id.
func (s *DocumentService) Add(ctx context.Context, collection, content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("%w: document required", appErr.ErrInvalid)
	}
	col, err := s.resolve(ctx, collection)
	if err != nil {
		return "", err
	}
	id := newDocumentID()
	err = s.call(ctx, "add", func(ctx context.Context) error {
		return col.Add(ctx, []string{id}, []string{content}, []map[string]string{{"id": id}})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *DocumentService) List(ctx context.Context, collection string) (*model.DocumentList, error) {
	col, err := s.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	var res *vectordb.GetResult
	err = s.call(ctx, "get", func(ctx context.Context) error {
		var err error
		res, err = col.Get(ctx, vectordb.GetOptions{IncludeDocuments: true})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return model.NewDocumentList(nil, nil), nil
	}
	return model.NewDocumentList(vectordb.Pairs(res.IDs, res.Documents)), nil
}

// Delete removes the document with the given id. An unknown id is not an
// error.
func (s *DocumentService) Delete(ctx context.Context, collection, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: documentId required", appErr.ErrInvalid)
	}
	col, err := s.resolve(ctx, collection)
	if err != nil {
		return err
	}
	return s.call(ctx, "delete", func(ctx context.Context) error {
		return col.Delete(ctx, []string{id})
	})
}

type QueryInput struct {
	Text string
	// NResults of zero selects the configured default.
	NResults int
}

func (s *DocumentService) Query(ctx context.Context, collection string, input QueryInput) (*model.DocumentList, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, fmt.Errorf("%w: query required", appErr.ErrInvalid)
	}
	n, err := s.resultCount(input.NResults)
	if err != nil {
		return nil, err
	}
	col, err := s.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	var res *vectordb.QueryResult
	err = s.call(ctx, "query", func(ctx context.Context) error {
		var err error
		res, err = col.Query(ctx, []string{input.Text}, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.IDGroups) == 0 || len(res.DocumentGroups) == 0 {
		return model.NewDocumentList(nil, nil), nil
	}
	return model.NewDocumentList(vectordb.Pairs(res.IDGroups[0], res.DocumentGroups[0])), nil
}

func (s *DocumentService) resultCount(n int) (int, error) {
	if n == 0 {
		return s.opts.DefaultResults, nil
	}
	if n < 0 || n > s.opts.MaxResults {
		return 0, fmt.Errorf("%w: n_results must be between 1 and %d", appErr.ErrInvalid, s.opts.MaxResults)
	}
	return n, nil
}
