package query

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

// documentCache deduplicates embeddings of equal texts within one call.
type documentCache map[string]vector.Dense

func (s *Service) resolveDocuments(
	ctx context.Context, q request.CollectionQueryRequest,
) (request.CollectionQueryRequest, error) {
	return s.resolveDocumentsCached(ctx, make(documentCache), q)
}

func (s *Service) resolveDocumentsCached(
	ctx context.Context, cache documentCache, q request.CollectionQueryRequest,
) (request.CollectionQueryRequest, error) {
	if !hasDocuments(q.AllInputs()) {
		return q, nil
	}
	return q.MapAllInputs(func(in request.VectorInput) (request.VectorInput, error) {
		return s.resolveInput(ctx, cache, in)
	})
}

func (s *Service) resolveDiscover(
	ctx context.Context, cache documentCache, r request.DiscoverRequest,
) (request.DiscoverRequest, error) {
	var err error
	if r.Target != nil {
		if r.Target, err = s.resolveInput(ctx, cache, r.Target); err != nil {
			return r, err
		}
	}
	if len(r.Context) == 0 {
		return r, nil
	}
	pairs := make([]request.ContextInputPair, len(r.Context))
	for i, p := range r.Context {
		if pairs[i].Positive, err = s.resolveInput(ctx, cache, p.Positive); err != nil {
			return r, err
		}
		if pairs[i].Negative, err = s.resolveInput(ctx, cache, p.Negative); err != nil {
			return r, err
		}
	}
	r.Context = pairs
	return r, nil
}

func hasDocuments(inputs []request.VectorInput) bool {
	for _, in := range inputs {
		if _, ok := in.(request.Document); ok {
			return true
		}
	}
	return false
}

// resolveInput embeds Document inputs; other inputs pass through.
func (s *Service) resolveInput(
	ctx context.Context, cache documentCache, in request.VectorInput,
) (request.VectorInput, error) {
	doc, ok := in.(request.Document)
	if !ok {
		return in, nil
	}
	if s.embed == nil {
		return nil, fmt.Errorf("%w: document inputs require inference to be configured", domain.ErrBadRequest)
	}
	if doc.Model != "" && s.cfg.InferenceModel != "" && doc.Model != s.cfg.InferenceModel {
		return nil, fmt.Errorf("%w: model %q is not available", domain.ErrBadRequest, doc.Model)
	}
	if v, ok := cache[doc.Text]; ok {
		return request.RawVector{Vector: v}, nil
	}
	res, err := s.embed.Embed(ctx, doc.Text)
	if err != nil {
		return nil, fmt.Errorf("vectorize document: %w", err)
	}
	v := vector.Dense(res.Embedding)
	cache[doc.Text] = v
	return request.RawVector{Vector: v}, nil
}
