package chi

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
)

// QueryResponse is the result of a universal query.
type QueryResponse struct {
	Points []ScoredPoint `json:"points"`
}

func (s *Server) checkBatch(n int) error {
	if n == 0 {
		return badRequest("searches must not be empty")
	}
	if n > s.maxBatchSize {
		return badRequest("batch exceeds maximum size of %d", s.maxBatchSize)
	}
	return nil
}

// Search handles POST /collections/{collection}/points/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		sw, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		pts, err := s.query.CoreSearch(ctx, collection, sw.Request, sw.Selector, params)
		if err != nil {
			return nil, err
		}
		return scoredPointsToJSON(pts), nil
	})
}

// SearchBatch handles POST /collections/{collection}/points/search/batch.
func (s *Server) SearchBatch(w http.ResponseWriter, r *http.Request) {
	var body searchBatchJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		if err := s.checkBatch(len(body.Searches)); err != nil {
			return nil, err
		}
		reqs := make([]request.SearchWithSelector, len(body.Searches))
		for i, sr := range body.Searches {
			sw, err := sr.toDomain()
			if err != nil {
				return nil, err
			}
			reqs[i] = sw
		}
		res, err := s.query.SearchBatch(ctx, collection, reqs, params)
		if err != nil {
			return nil, err
		}
		return batchToJSON(res), nil
	})
}

// SearchGroups handles POST /collections/{collection}/points/search/groups.
func (s *Server) SearchGroups(w http.ResponseWriter, r *http.Request) {
	var body searchGroupsJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		res, err := s.query.SearchGroups(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return groupsToJSON(res), nil
	})
}

// RecommendGroups handles POST /collections/{collection}/points/recommend/groups.
func (s *Server) RecommendGroups(w http.ResponseWriter, r *http.Request) {
	var body recommendGroupsJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		res, err := s.query.RecommendGroups(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return groupsToJSON(res), nil
	})
}

// DiscoverBatch handles POST /collections/{collection}/points/discover/batch.
func (s *Server) DiscoverBatch(w http.ResponseWriter, r *http.Request) {
	var body discoverBatchJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		if err := s.checkBatch(len(body.Searches)); err != nil {
			return nil, err
		}
		batch := request.DiscoverRequestBatch{Searches: make([]request.DiscoverRequest, len(body.Searches))}
		for i, d := range body.Searches {
			req, err := d.toDomain()
			if err != nil {
				return nil, err
			}
			batch.Searches[i] = req
		}
		res, err := s.query.DiscoverBatch(ctx, collection, batch, params)
		if err != nil {
			return nil, err
		}
		return batchToJSON(res), nil
	})
}

// Count handles POST /collections/{collection}/points/count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	var body countRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		res, err := s.query.Count(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return CountResult{Count: res.Count}, nil
	})
}

// RetrievePoints handles POST /collections/{collection}/points.
func (s *Server) RetrievePoints(w http.ResponseWriter, r *http.Request) {
	var body pointRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		recs, err := s.query.Retrieve(ctx, collection, body.toDomain(), body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return recordsToJSON(recs), nil
	})
}

// Scroll handles POST /collections/{collection}/points/scroll.
func (s *Server) Scroll(w http.ResponseWriter, r *http.Request) {
	var body scrollRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		res, err := s.query.Scroll(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return ScrollResult{Points: recordsToJSON(res.Points), NextPageOffset: res.NextPageOffset}, nil
	})
}

// Query handles POST /collections/{collection}/points/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var body queryRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		q, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		pts, err := s.query.Query(ctx, collection, q.Request, q.Selector, params)
		if err != nil {
			return nil, err
		}
		return QueryResponse{Points: scoredPointsToJSON(pts)}, nil
	})
}

// QueryBatch handles POST /collections/{collection}/points/query/batch.
func (s *Server) QueryBatch(w http.ResponseWriter, r *http.Request) {
	var body queryBatchJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		if err := s.checkBatch(len(body.Searches)); err != nil {
			return nil, err
		}
		reqs := make([]request.QueryWithSelector, len(body.Searches))
		for i, q := range body.Searches {
			req, err := q.toDomain()
			if err != nil {
				return nil, err
			}
			reqs[i] = req
		}
		res, err := s.query.QueryBatch(ctx, collection, reqs, params)
		if err != nil {
			return nil, err
		}
		out := make([]QueryResponse, len(res))
		for i, pts := range res {
			out[i] = QueryResponse{Points: scoredPointsToJSON(pts)}
		}
		return out, nil
	})
}

// QueryGroups handles POST /collections/{collection}/points/query/groups.
func (s *Server) QueryGroups(w http.ResponseWriter, r *http.Request) {
	var body queryGroupsJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		res, err := s.query.QueryGroups(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return groupsToJSON(res), nil
	})
}

// MatrixPairs handles POST /collections/{collection}/points/search/matrix/pairs.
func (s *Server) MatrixPairs(w http.ResponseWriter, r *http.Request) {
	var body matrixRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		m, err := s.query.SearchMatrix(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return pairsToJSON(m), nil
	})
}

// MatrixOffsets handles POST /collections/{collection}/points/search/matrix/offsets.
func (s *Server) MatrixOffsets(w http.ResponseWriter, r *http.Request) {
	var body matrixRequestJSON
	s.read(w, r, &body, func(ctx context.Context, collection string, params request.ReadParams) (any, error) {
		req, err := body.toDomain()
		if err != nil {
			return nil, err
		}
		m, err := s.query.SearchMatrix(ctx, collection, req, body.ShardKey.selector(), params)
		if err != nil {
			return nil, err
		}
		return offsetsToJSON(m), nil
	})
}
