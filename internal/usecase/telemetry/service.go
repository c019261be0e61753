// Package telemetry assembles the runtime report whose detail grows with
// the requested level: application info, then collections, their shard
// configuration, per-shard point counts and finally hardware usage.
package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	domtel "github.com/kailas-cloud/vecquery/internal/domain/telemetry"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
	"github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/metrics"
	"github.com/kailas-cloud/vecquery/internal/version"
)

// Report is a telemetry snapshot.
type Report struct {
	App         AppInfo          `json:"app"`
	Collections *CollectionsInfo `json:"collections,omitempty"`
	Histograms  []Histogram      `json:"histograms,omitempty"`
}

// AppInfo describes the running process.
type AppInfo struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Commit        string    `json:"commit"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// CollectionsInfo lists the visible collections. Collections is filled from Level1.
type CollectionsInfo struct {
	Count       int                   `json:"count"`
	Collections []CollectionTelemetry `json:"collections,omitempty"`
}

// CollectionTelemetry is the per-collection part of the report.
type CollectionTelemetry struct {
	Name              string            `json:"name"`
	Vectors           []VectorTelemetry `json:"vectors,omitempty"`
	ShardNumber       int               `json:"shard_number,omitempty"`
	ReplicationFactor int               `json:"replication_factor,omitempty"`
	ShardKeys         []string          `json:"shard_keys,omitempty"`
	Shards            []ShardTelemetry  `json:"shards,omitempty"`
	Usage             *hardware.Usage   `json:"usage,omitempty"`
}

// VectorTelemetry is the configuration of one collection vector.
type VectorTelemetry struct {
	Name     string `json:"name"`
	Dim      int    `json:"dim"`
	Distance string `json:"distance"`
}

// ShardTelemetry is the state of one shard.
type ShardTelemetry struct {
	ID       uint32 `json:"id"`
	ShardKey string `json:"shard_key,omitempty"`
	Points   int    `json:"points"`
}

// Histogram is a gathered latency histogram.
type Histogram struct {
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels,omitempty"`
	Count   uint64            `json:"count"`
	Sum     float64           `json:"sum"`
	Buckets []Bucket          `json:"buckets"`
}

// Bucket is a cumulative histogram bucket.
type Bucket struct {
	UpperBound float64 `json:"le"`
	Count      uint64  `json:"count"`
}

// Service builds telemetry reports.
type Service struct {
	collections CollectionLister
	points      PointCounter
	usage       UsageReporter
	gatherer    prometheus.Gatherer
	startedAt   time.Time
	now         func() time.Time
}

// New creates a Service. usage and gatherer can be nil.
func New(
	collections CollectionLister, points PointCounter, usage UsageReporter, gatherer prometheus.Gatherer,
) *Service {
	return &Service{
		collections: collections,
		points:      points,
		usage:       usage,
		gatherer:    gatherer,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

// Report renders the telemetry visible to acc at the requested detail.
func (s *Service) Report(ctx context.Context, acc access.Access, detail domtel.Detail) (Report, error) {
	r := Report{App: AppInfo{
		Name:          "vecquery",
		Version:       version.Version,
		Commit:        version.Commit,
		StartedAt:     s.startedAt,
		UptimeSeconds: s.now().Sub(s.startedAt).Seconds(),
	}}

	if detail.Level >= domtel.Level1 {
		cols, err := s.collections.List(ctx, acc)
		if err != nil {
			return Report{}, fmt.Errorf("list collections: %w", err)
		}
		info := &CollectionsInfo{Count: len(cols)}
		for _, col := range cols {
			ct, err := s.collection(ctx, acc, col, detail.Level)
			if err != nil {
				return Report{}, err
			}
			info.Collections = append(info.Collections, ct)
		}
		r.Collections = info
	}

	if detail.Histograms && s.gatherer != nil {
		hs, err := gatherHistograms(s.gatherer)
		if err != nil {
			return Report{}, fmt.Errorf("gather histograms: %w", err)
		}
		r.Histograms = hs
	}
	return r, nil
}

func (s *Service) collection(
	ctx context.Context, acc access.Access, col domcol.Collection, level domtel.DetailsLevel,
) (CollectionTelemetry, error) {
	ct := CollectionTelemetry{Name: col.Name()}
	if level < domtel.Level2 {
		return ct, nil
	}

	ct.ShardNumber = col.ShardNumber()
	ct.ReplicationFactor = col.ReplicationFactor()
	for _, v := range col.Vectors() {
		ct.Vectors = append(ct.Vectors, VectorTelemetry{Name: v.Name, Dim: v.Dim, Distance: v.Distance.String()})
	}
	for _, k := range col.ShardKeys() {
		ct.ShardKeys = append(ct.ShardKeys, k.String())
	}
	if level < domtel.Level3 {
		return ct, nil
	}

	params := request.ReadParams{Access: acc}
	for id := range uint32(col.TotalShards()) {
		res, err := s.points.Count(ctx, col.Name(), request.CountRequest{}, shard.ForShardID(id), params)
		if err != nil {
			return CollectionTelemetry{}, fmt.Errorf("count shard %d of %s: %w", id, col.Name(), err)
		}
		st := ShardTelemetry{ID: id, Points: res.Count}
		if k := col.ShardKeyOf(id); k != nil {
			st.ShardKey = k.String()
		}
		ct.Shards = append(ct.Shards, st)
	}
	if level < domtel.Level4 || s.usage == nil {
		return ct, nil
	}

	rep, err := s.usage.Report(ctx, acc, col.Name(), domusage.PeriodTotal)
	if err != nil {
		// Usage is best effort: the report stays useful without it.
		logger.FromContext(ctx).Warn("telemetry: usage unavailable",
			zap.String("collection", col.Name()), zap.Error(err))
		return ct, nil
	}
	u := rep.Usage()
	ct.Usage = &u
	return ct, nil
}

// gatherHistograms collects every histogram in the vecquery namespace.
func gatherHistograms(g prometheus.Gatherer) ([]Histogram, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var out []Histogram
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_HISTOGRAM || !strings.HasPrefix(mf.GetName(), metrics.Namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			h := m.GetHistogram()
			hist := Histogram{
				Name:    mf.GetName(),
				Count:   h.GetSampleCount(),
				Sum:     h.GetSampleSum(),
				Buckets: make([]Bucket, 0, len(h.GetBucket())),
			}
			if len(m.GetLabel()) > 0 {
				hist.Labels = make(map[string]string, len(m.GetLabel()))
				for _, lp := range m.GetLabel() {
					hist.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			for _, b := range h.GetBucket() {
				hist.Buckets = append(hist.Buckets, Bucket{UpperBound: b.GetUpperBound(), Count: b.GetCumulativeCount()})
			}
			out = append(out, hist)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
