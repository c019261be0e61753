package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	domtel "github.com/kailas-cloud/vecquery/internal/domain/telemetry"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
)

// --- Mocks ---

type mockLister struct {
	listFn func(ctx context.Context, acc access.Access) ([]domcol.Collection, error)
}

func (m *mockLister) List(ctx context.Context, acc access.Access) ([]domcol.Collection, error) {
	return m.listFn(ctx, acc)
}

type mockCounter struct {
	countFn func(collection string, sel shard.Selector) (result.CountResult, error)
}

func (m *mockCounter) Count(
	_ context.Context, collection string, _ request.CountRequest, sel shard.Selector, _ request.ReadParams,
) (result.CountResult, error) {
	return m.countFn(collection, sel)
}

type mockUsage struct {
	reportFn func(collection string, period domusage.Period) (domusage.Report, error)
}

func (m *mockUsage) Report(
	_ context.Context, _ access.Access, collection string, period domusage.Period,
) (domusage.Report, error) {
	return m.reportFn(collection, period)
}

// --- Helpers ---

func keyedCollection(t *testing.T) domcol.Collection {
	t.Helper()
	col, err := domcol.New("docs", domcol.Config{
		Vectors:           []domcol.VectorParams{{Name: "", Dim: 4, Distance: distance.Cosine}},
		ShardNumber:       2,
		ShardKeys:         []shard.Key{shard.StringKey("eu"), shard.StringKey("us")},
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	return col
}

func newService(t *testing.T, counts map[uint32]int, u *mockUsage) *Service {
	t.Helper()
	col := keyedCollection(t)
	svc := New(
		&mockLister{listFn: func(context.Context, access.Access) ([]domcol.Collection, error) {
			return []domcol.Collection{col}, nil
		}},
		&mockCounter{countFn: func(_ string, sel shard.Selector) (result.CountResult, error) {
			return result.CountResult{Count: counts[sel.ShardID()]}, nil
		}},
		u, nil,
	)
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.startedAt = started
	svc.now = func() time.Time { return started.Add(90 * time.Second) }
	return svc
}

// --- Tests ---

func TestReport_Level0(t *testing.T) {
	svc := newService(t, nil, nil)

	r, err := svc.Report(context.Background(), access.Full(), domtel.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.App.Name != "vecquery" {
		t.Errorf("name = %q", r.App.Name)
	}
	if r.App.UptimeSeconds != 90 {
		t.Errorf("uptime = %v, want 90", r.App.UptimeSeconds)
	}
	if r.Collections != nil {
		t.Error("collections must be omitted at level 0")
	}
	if r.Histograms != nil {
		t.Error("histograms must be omitted")
	}
}

func TestReport_Level1(t *testing.T) {
	svc := newService(t, nil, nil)

	r, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Collections == nil || r.Collections.Count != 1 {
		t.Fatalf("collections = %+v", r.Collections)
	}
	c := r.Collections.Collections[0]
	if c.Name != "docs" || c.Vectors != nil || c.Shards != nil {
		t.Errorf("level 1 collection = %+v", c)
	}
}

func TestReport_Level2(t *testing.T) {
	svc := newService(t, nil, nil)

	r, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := r.Collections.Collections[0]
	if c.ShardNumber != 2 || c.ReplicationFactor != 1 {
		t.Errorf("config = %+v", c)
	}
	if len(c.Vectors) != 1 || c.Vectors[0].Distance != "Cosine" || c.Vectors[0].Dim != 4 {
		t.Errorf("vectors = %+v", c.Vectors)
	}
	if len(c.ShardKeys) != 2 || c.ShardKeys[0] != "eu" || c.ShardKeys[1] != "us" {
		t.Errorf("shard keys = %v", c.ShardKeys)
	}
	if c.Shards != nil {
		t.Error("shards must be omitted at level 2")
	}
}

func TestReport_Level3ShardCounts(t *testing.T) {
	svc := newService(t, map[uint32]int{0: 5, 1: 1, 3: 2}, nil)

	r, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shards := r.Collections.Collections[0].Shards
	want := []ShardTelemetry{
		{ID: 0, ShardKey: "eu", Points: 5},
		{ID: 1, ShardKey: "eu", Points: 1},
		{ID: 2, ShardKey: "us", Points: 0},
		{ID: 3, ShardKey: "us", Points: 2},
	}
	if len(shards) != len(want) {
		t.Fatalf("shards = %+v", shards)
	}
	for i := range want {
		if shards[i] != want[i] {
			t.Errorf("shard %d = %+v, want %+v", i, shards[i], want[i])
		}
	}
}

func TestReport_Level4Usage(t *testing.T) {
	u := &mockUsage{reportFn: func(collection string, period domusage.Period) (domusage.Report, error) {
		if period != domusage.PeriodTotal {
			t.Errorf("period = %v", period)
		}
		return domusage.NewReport(period, 0, 0, collection, hardware.Usage{CPU: 42}), nil
	}}
	svc := newService(t, nil, u)

	r, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := r.Collections.Collections[0].Usage
	if got == nil || got.CPU != 42 {
		t.Errorf("usage = %+v", got)
	}
}

func TestReport_UsageErrorIgnored(t *testing.T) {
	u := &mockUsage{reportFn: func(string, domusage.Period) (domusage.Report, error) {
		return domusage.Report{}, errors.New("redis down")
	}}
	svc := newService(t, nil, u)

	r, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Collections.Collections[0].Usage != nil {
		t.Error("usage must be omitted on error")
	}
}

func TestReport_CountError(t *testing.T) {
	svc := newService(t, nil, nil)
	svc.points = &mockCounter{countFn: func(string, shard.Selector) (result.CountResult, error) {
		return result.CountResult{}, errors.New("boom")
	}}

	if _, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level3}); err == nil {
		t.Fatal("expected error")
	}
}

func TestReport_ListError(t *testing.T) {
	svc := newService(t, nil, nil)
	svc.collections = &mockLister{listFn: func(context.Context, access.Access) ([]domcol.Collection, error) {
		return nil, errors.New("boom")
	}}

	if _, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Level: domtel.Level1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestReport_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vecquery",
		Name:      "test_duration_seconds",
		Buckets:   []float64{0.1, 1},
	}, []string{"operation"})
	other := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "foreign_seconds"})
	reg.MustRegister(h, other)
	h.WithLabelValues("search").Observe(0.05)
	h.WithLabelValues("search").Observe(0.5)
	other.Observe(1)

	svc := newService(t, nil, nil)
	svc.gatherer = reg

	r, err := svc.Report(context.Background(), access.Full(), domtel.Detail{Histograms: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Histograms) != 1 {
		t.Fatalf("histograms = %+v", r.Histograms)
	}
	got := r.Histograms[0]
	if got.Name != "vecquery_test_duration_seconds" || got.Labels["operation"] != "search" {
		t.Errorf("histogram = %+v", got)
	}
	if got.Count != 2 {
		t.Errorf("count = %d, want 2", got.Count)
	}
	if len(got.Buckets) != 2 || got.Buckets[0].Count != 1 || got.Buckets[1].Count != 2 {
		t.Errorf("buckets = %+v", got.Buckets)
	}
}
