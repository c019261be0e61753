package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	domtel "github.com/kailas-cloud/vecquery/internal/domain/telemetry"
	domusage "github.com/kailas-cloud/vecquery/internal/domain/usage"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
	telemetryuc "github.com/kailas-cloud/vecquery/internal/usecase/telemetry"
)

// --- Mocks ---

type mockQuery struct {
	coreSearchFn func(collection string, req request.CoreSearchRequest, sel shard.Selector,
		params request.ReadParams) ([]point.ScoredPoint, error)
	searchBatchFn     func(reqs []request.SearchWithSelector) ([][]point.ScoredPoint, error)
	searchGroupsFn    func(req request.SearchGroupsRequest, sel shard.Selector) (result.GroupsResult, error)
	recommendGroupsFn func(req request.RecommendGroupsRequest, sel shard.Selector) (result.GroupsResult, error)
	queryGroupsFn     func(req request.CollectionQueryGroupsRequest, sel shard.Selector) (result.GroupsResult, error)
	discoverBatchFn   func(batch request.DiscoverRequestBatch) ([][]point.ScoredPoint, error)
	countFn           func(req request.CountRequest, sel shard.Selector) (result.CountResult, error)
	retrieveFn        func(req request.PointRequest, sel shard.Selector) ([]point.Record, error)
	scrollFn          func(req request.ScrollRequest, sel shard.Selector) (result.ScrollResult, error)
	queryFn           func(req request.CollectionQueryRequest, sel shard.Selector) ([]point.ScoredPoint, error)
	queryBatchFn      func(reqs []request.QueryWithSelector) ([][]point.ScoredPoint, error)
	searchMatrixFn    func(req request.SearchMatrixRequest, sel shard.Selector) (result.SearchMatrix, error)
}

func (m *mockQuery) CoreSearch(
	_ context.Context, collection string, req request.CoreSearchRequest,
	sel shard.Selector, params request.ReadParams,
) ([]point.ScoredPoint, error) {
	return m.coreSearchFn(collection, req, sel, params)
}

func (m *mockQuery) SearchBatch(
	_ context.Context, _ string, reqs []request.SearchWithSelector, _ request.ReadParams,
) ([][]point.ScoredPoint, error) {
	return m.searchBatchFn(reqs)
}

func (m *mockQuery) SearchGroups(
	_ context.Context, _ string, req request.SearchGroupsRequest, sel shard.Selector, _ request.ReadParams,
) (result.GroupsResult, error) {
	return m.searchGroupsFn(req, sel)
}

func (m *mockQuery) RecommendGroups(
	_ context.Context, _ string, req request.RecommendGroupsRequest, sel shard.Selector, _ request.ReadParams,
) (result.GroupsResult, error) {
	return m.recommendGroupsFn(req, sel)
}

func (m *mockQuery) QueryGroups(
	_ context.Context, _ string, req request.CollectionQueryGroupsRequest, sel shard.Selector, _ request.ReadParams,
) (result.GroupsResult, error) {
	return m.queryGroupsFn(req, sel)
}

func (m *mockQuery) DiscoverBatch(
	_ context.Context, _ string, batch request.DiscoverRequestBatch, _ request.ReadParams,
) ([][]point.ScoredPoint, error) {
	return m.discoverBatchFn(batch)
}

func (m *mockQuery) Count(
	_ context.Context, _ string, req request.CountRequest, sel shard.Selector, _ request.ReadParams,
) (result.CountResult, error) {
	return m.countFn(req, sel)
}

func (m *mockQuery) Retrieve(
	_ context.Context, _ string, req request.PointRequest, sel shard.Selector, _ request.ReadParams,
) ([]point.Record, error) {
	return m.retrieveFn(req, sel)
}

func (m *mockQuery) Scroll(
	_ context.Context, _ string, req request.ScrollRequest, sel shard.Selector, _ request.ReadParams,
) (result.ScrollResult, error) {
	return m.scrollFn(req, sel)
}

func (m *mockQuery) Query(
	_ context.Context, _ string, req request.CollectionQueryRequest, sel shard.Selector, _ request.ReadParams,
) ([]point.ScoredPoint, error) {
	return m.queryFn(req, sel)
}

func (m *mockQuery) QueryBatch(
	_ context.Context, _ string, reqs []request.QueryWithSelector, _ request.ReadParams,
) ([][]point.ScoredPoint, error) {
	return m.queryBatchFn(reqs)
}

func (m *mockQuery) SearchMatrix(
	_ context.Context, _ string, req request.SearchMatrixRequest, sel shard.Selector, _ request.ReadParams,
) (result.SearchMatrix, error) {
	return m.searchMatrixFn(req, sel)
}

type mockCollections struct {
	createFn func(acc access.Access, name string, cfg domcol.Config) (domcol.Collection, error)
	getFn    func(name string) (domcol.Collection, error)
	listFn   func() ([]domcol.Collection, error)
	deleteFn func(name string) error
	upsertFn func(acc access.Access, name string, pts []point.Record) error
}

func (m *mockCollections) Create(
	_ context.Context, acc access.Access, name string, cfg domcol.Config,
) (domcol.Collection, error) {
	return m.createFn(acc, name, cfg)
}

func (m *mockCollections) Get(_ context.Context, _ access.Access, name string) (domcol.Collection, error) {
	return m.getFn(name)
}

func (m *mockCollections) List(_ context.Context, _ access.Access) ([]domcol.Collection, error) {
	return m.listFn()
}

func (m *mockCollections) Delete(_ context.Context, _ access.Access, name string) error {
	return m.deleteFn(name)
}

func (m *mockCollections) Upsert(_ context.Context, acc access.Access, name string, pts []point.Record) error {
	return m.upsertFn(acc, name, pts)
}

type recordedUsage struct {
	collection string
	usage      hardware.Usage
}

type mockUsage struct {
	recorded []recordedUsage
	reportFn func(collection string, period domusage.Period) (domusage.Report, error)
}

func (m *mockUsage) Record(_ context.Context, collection string, hw *hardware.Acc) {
	m.recorded = append(m.recorded, recordedUsage{collection: collection, usage: hw.Usage()})
}

func (m *mockUsage) Report(
	_ context.Context, _ access.Access, collection string, period domusage.Period,
) (domusage.Report, error) {
	return m.reportFn(collection, period)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockTelemetry struct {
	reportFn func(detail domtel.Detail) (telemetryuc.Report, error)
}

func (m *mockTelemetry) Report(_ context.Context, _ access.Access, detail domtel.Detail) (telemetryuc.Report, error) {
	return m.reportFn(detail)
}

// --- Helpers ---

func newRouter(s *Server) http.Handler {
	r := gochi.NewRouter()
	r.Use(BearerAuthMiddleware(nil, nil))
	s.Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// envelope is the decoded success envelope with the raw result.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Status string          `json:"status"`
	Usage  *hardware.Usage `json:"usage"`
	Time   float64         `json:"time"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, result any) envelope {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != "ok" {
		t.Errorf("envelope status = %q", env.Status)
	}
	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
	}
	return env
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return e
}
