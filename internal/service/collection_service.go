package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chromaproxy/internal/model"
	appErr "github.com/xxxsen/chromaproxy/internal/pkg/errors"
	"github.com/xxxsen/chromaproxy/internal/vectordb"
)

type CollectionService struct {
	resolver
}

func NewCollectionService(client vectordb.Client, opts Options) *CollectionService {
	return &CollectionService{resolver: newResolver(client, opts)}
}

type CollectionCreateInput struct {
	Name        string
	Description string
}

func (s *CollectionService) Create(ctx context.Context, input CollectionCreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name required", appErr.ErrInvalid)
	}
	metadata := map[string]string{}
	if input.Description != "" {
		metadata[vectordb.MetadataDescription] = input.Description
	}
	err := s.call(ctx, "create_collection", func(ctx context.Context) error {
		_, err := s.client.CreateCollection(ctx, input.Name, metadata)
		return err
	})
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("collection created", zap.String("collection", input.Name))
	return nil
}

func (s *CollectionService) List(ctx context.Context) (*model.CollectionList, error) {
	var names []string
	err := s.call(ctx, "list_collections", func(ctx context.Context) error {
		var err error
		names, err = s.client.ListCollectionNames(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return &model.CollectionList{Collections: names}, nil
}

func (s *CollectionService) Get(ctx context.Context, name string) (*model.CollectionInfo, error) {
	col, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	var count int
	err = s.call(ctx, "count", func(ctx context.Context) error {
		var err error
		count, err = col.Count(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &model.CollectionInfo{
		ID:          col.ID(),
		Name:        col.Name(),
		Description: col.Metadata()[vectordb.MetadataDescription],
		Count:       count,
	}, nil
}

func (s *CollectionService) Delete(ctx context.Context, name string) error {
	col, err := s.resolve(ctx, name)
	if err != nil {
		return err
	}
	err = s.call(ctx, "delete_collection", func(ctx context.Context) error {
		return s.client.DeleteCollection(ctx, col)
	})
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("collection deleted", zap.String("collection", name))
	return nil
}
