// Package vectordb is the boundary between the proxy and the external vector
// database. Backends register themselves by name and are selected through
// config.VectorDBConfig.Type.
package vectordb

import "context"

// Client is the process-wide handle to a vector database. Implementations
// must be safe for concurrent use.
type Client interface {
	CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error)
	ListCollectionNames(ctx context.Context) ([]string, error)
	// GetCollection fails with an error wrapping errors.ErrNotFound when the
	// collection is absent.
	GetCollection(ctx context.Context, name string) (Collection, error)
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)
	DeleteCollection(ctx context.Context, col Collection) error
	Heartbeat(ctx context.Context) error
	Close() error
}

// Collection is a resolved handle to one named collection.
type Collection interface {
	Name() string
	ID() string
	Metadata() map[string]string
	Add(ctx context.Context, ids []string, contents []string, metadatas []map[string]string) error
	Get(ctx context.Context, opts GetOptions) (*GetResult, error)
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, texts []string, nResults int) (*QueryResult, error)
	Count(ctx context.Context) (int, error)
}

type GetOptions struct {
	IncludeDocuments bool
}

// GetResult holds parallel slices. A nil entry in Documents is a document
// stored without content.
type GetResult struct {
	IDs       []string
	Documents []*string
}

// QueryResult holds one group per query text, each ranked by the backend.
type QueryResult struct {
	IDGroups       [][]string
	DocumentGroups [][]*string
}

const MetadataDescription = "description"

// Pairs drops entries with null content and returns the surviving ids and
// contents, keeping their order.
func Pairs(ids []string, docs []*string) ([]string, []string) {
	outIDs := make([]string, 0, len(ids))
	outDocs := make([]string, 0, len(ids))
	for i, id := range ids {
		if i >= len(docs) || docs[i] == nil {
			continue
		}
		outIDs = append(outIDs, id)
		outDocs = append(outDocs, *docs[i])
	}
	return outIDs, outDocs
}
