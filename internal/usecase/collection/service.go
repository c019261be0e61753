package collection

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
)

// MaxUpsertPoints bounds the points of one upsert call.
const MaxUpsertPoints = 1000

// Service handles collection CRUD operations.
type Service struct {
	repo   Repository
	points PointWriter
}

// New creates a collection service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// WithPoints enables point upserts.
func (s *Service) WithPoints(w PointWriter) *Service {
	s.points = w
	return s
}

// Create validates and stores a new collection. Requires global read-write access.
func (s *Service) Create(
	ctx context.Context, acc access.Access, name string, cfg domcol.Config,
) (domcol.Collection, error) {
	if err := acc.CheckGlobal(access.ReadWrite); err != nil {
		return domcol.Collection{}, err
	}

	col, err := domcol.New(name, cfg)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("validate collection: %w: %w", domain.ErrBadRequest, err)
	}

	if err := s.repo.Create(ctx, col); err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	return col, nil
}

// Get retrieves a collection by name.
func (s *Service) Get(ctx context.Context, acc access.Access, name string) (domcol.Collection, error) {
	if err := acc.CheckCollection(name, access.Read); err != nil {
		return domcol.Collection{}, err
	}
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns the collections the caller can read.
func (s *Service) List(ctx context.Context, acc access.Access) ([]domcol.Collection, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	visible := cols[:0]
	for _, c := range cols {
		if acc.CheckCollection(c.Name(), access.Read) == nil {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// Delete removes a collection. Requires global read-write access.
func (s *Service) Delete(ctx context.Context, acc access.Access, name string) error {
	if err := acc.CheckGlobal(access.ReadWrite); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// Upsert writes points into a collection. Requires read-write access to it.
func (s *Service) Upsert(ctx context.Context, acc access.Access, name string, pts []point.Record) error {
	if s.points == nil {
		return fmt.Errorf("upsert points: %w", domain.ErrNotImplemented)
	}
	if len(pts) == 0 {
		return fmt.Errorf("%w: no points to upsert", domain.ErrBadRequest)
	}
	if len(pts) > MaxUpsertPoints {
		return fmt.Errorf("%w: at most %d points per upsert", domain.ErrBadRequest, MaxUpsertPoints)
	}
	for _, p := range pts {
		if p.ID > point.MaxID {
			return fmt.Errorf("%w: point id %d exceeds %d", domain.ErrBadRequest, p.ID, point.MaxID)
		}
	}
	if err := s.points.Upsert(ctx, name, pts, acc); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}
