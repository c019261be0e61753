// Package chi exposes the engine over HTTP with a chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/consistency"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	domtel "github.com/kailas-cloud/vecquery/internal/domain/telemetry"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
	"github.com/kailas-cloud/vecquery/internal/logger"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

// Server holds the HTTP handlers.
type Server struct {
	query          QueryService
	collections    CollectionService
	usage          UsageService
	health         HealthService
	telemetry      TelemetryService
	maxBatchSize   int
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

// NewServer creates an HTTP API server. usage and telemetry can be nil.
func NewServer(
	query QueryService,
	collections CollectionService,
	usage UsageService,
	health HealthService,
	telemetry TelemetryService,
) *Server {
	return &Server{
		query:        query,
		collections:  collections,
		usage:        usage,
		health:       health,
		telemetry:    telemetry,
		maxBatchSize: request.MaxBatchSize,
	}
}

// WithMaxBatchSize bounds the searches of one batch request.
func (s *Server) WithMaxBatchSize(n int) *Server {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// WithTimeouts sets the read timeout applied when a request has none, and the
// upper bound of a requested one. Zero disables either.
func (s *Server) WithTimeouts(def, maxTimeout time.Duration) *Server {
	s.defaultTimeout = def
	s.maxTimeout = maxTimeout
	return s
}

// Register mounts every route on r.
func (s *Server) Register(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/telemetry", s.Telemetry)
	r.Get("/usage/{collection}", s.GetUsage)

	r.Get("/collections", s.ListCollections)
	r.Route("/collections/{collection}", func(r gochi.Router) {
		r.Put("/", s.CreateCollection)
		r.Get("/", s.GetCollection)
		r.Delete("/", s.DeleteCollection)

		r.Put("/points", s.UpsertPoints)
		r.Post("/points", s.RetrievePoints)
		r.Post("/points/search", s.Search)
		r.Post("/points/search/batch", s.SearchBatch)
		r.Post("/points/search/groups", s.SearchGroups)
		r.Post("/points/recommend/groups", s.RecommendGroups)
		r.Post("/points/discover/batch", s.DiscoverBatch)
		r.Post("/points/count", s.Count)
		r.Post("/points/scroll", s.Scroll)
		r.Post("/points/query", s.Query)
		r.Post("/points/query/batch", s.QueryBatch)
		r.Post("/points/query/groups", s.QueryGroups)
		r.Post("/points/search/matrix/pairs", s.MatrixPairs)
		r.Post("/points/search/matrix/offsets", s.MatrixOffsets)
	})
}

// readOp is a read operation run with the parameters of the request.
type readOp func(ctx context.Context, collection string, params request.ReadParams) (any, error)

// read decodes body, runs op and writes the response envelope. Hardware
// usage is recorded even when op fails.
func (s *Server) read(w http.ResponseWriter, r *http.Request, body any, op readOp) {
	start := time.Now()
	collection := gochi.URLParam(r, "collection")
	r = r.WithContext(logger.With(r.Context(), zap.String("collection", collection)))

	if body != nil {
		if err := decodeBody(w, r, body); err != nil {
			handleDomainError(w, r, err)
			return
		}
	}
	params, err := s.readParams(r)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	res, err := op(r.Context(), collection, params)
	if s.usage != nil {
		s.usage.Record(r.Context(), collection, params.HW)
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respond(w, start, res, params.HW)
}

func respond(w http.ResponseWriter, start time.Time, res any, hw *hardware.Acc) {
	resp := Response{Result: res, Status: "ok", Time: time.Since(start).Seconds()}
	if hw != nil {
		u := hw.Usage()
		resp.Usage = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

// readParams builds the cross-cutting read parameters from the query string:
// consistency (a factor, "majority", "quorum" or "all") and timeout in seconds.
func (s *Server) readParams(r *http.Request) (request.ReadParams, error) {
	p := request.ReadParams{
		Access:  AccessFromContext(r.Context()),
		HW:      hardware.New(),
		Timeout: s.defaultTimeout,
	}
	q := r.URL.Query()
	if v := q.Get("consistency"); v != "" {
		c, err := consistency.Parse(v)
		if err != nil {
			return request.ReadParams{}, err //nolint:wrapcheck // already carries ErrBadRequest
		}
		p.Consistency = &c
	}
	if v := q.Get("timeout"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return request.ReadParams{}, badRequest("timeout must be a positive number of seconds")
		}
		p.Timeout = time.Duration(secs) * time.Second
	}
	if s.maxTimeout > 0 && (p.Timeout <= 0 || p.Timeout > s.maxTimeout) {
		p.Timeout = s.maxTimeout
	}
	return p, nil
}

// decodeBody decodes the JSON body into v. Errors always carry a request sentinel.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, domain.ErrBadRequest) || errors.Is(err, domain.ErrInvalidShardKey) {
			return err
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrBadRequest, err)
	}
	return nil
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Telemetry handles GET /telemetry?details_level=N&histograms=bool.
func (s *Server) Telemetry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.telemetry == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "telemetry is disabled")
		return
	}

	detail := domtel.Default()
	q := r.URL.Query()
	if v := q.Get("details_level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handleDomainError(w, r, badRequest("details_level must be an integer"))
			return
		}
		detail.Level = domtel.LevelFromInt(n)
	}
	if v := q.Get("histograms"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			handleDomainError(w, r, badRequest("histograms must be a boolean"))
			return
		}
		detail.Histograms = b
	}

	report, err := s.telemetry.Report(r.Context(), AccessFromContext(r.Context()), detail)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	respond(w, start, report, nil)
}

// UsageReport is the body of GET /usage/{collection}.
type UsageReport struct {
	Collection  string         `json:"collection"`
	Period      string         `json:"period"`
	PeriodStart *time.Time     `json:"period_start,omitempty"`
	PeriodEnd   *time.Time     `json:"period_end,omitempty"`
	Usage       hardware.Usage `json:"usage"`
}

// GetUsage handles GET /usage/{collection}?period=day|month|total.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.usage == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "usage accounting is disabled")
		return
	}

	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	collection := gochi.URLParam(r, "collection")
	report, err := s.usage.Report(r.Context(), AccessFromContext(r.Context()), collection, period)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	resp := UsageReport{
		Collection: report.Collection(),
		Period:     string(report.Period()),
		Usage:      report.Usage(),
	}
	if report.PeriodStart() > 0 {
		ps, pe := time.UnixMilli(report.PeriodStart()).UTC(), time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStart, resp.PeriodEnd = &ps, &pe
	}
	respond(w, start, resp, nil)
}
