package db

import "github.com/kailas-cloud/vecquery/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// VectorField is the attribute name of the indexed vector field.
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	EFRuntime    int // HNSW search-time candidate list size, 0 = index default
	ReturnFields []string
}

// ListQuery is the input for filtered, paginated listing.
type ListQuery struct {
	IndexName    string
	Filters      filter.Expression
	SortBy       string // ascending; must be SORTABLE in the index
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key string
	// Score is the raw engine distance for KNN hits (lower is closer), 0 for lists.
	Score  float64
	Fields map[string]string
}
