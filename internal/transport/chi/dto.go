package chi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrBadRequest, fmt.Sprintf(format, args...))
}

// firstByte returns the first non-space byte of a JSON value.
func firstByte(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	return data[0]
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// --- Filters ---

type filterJSON struct {
	Must    []conditionJSON `json:"must"`
	Should  []conditionJSON `json:"should"`
	MustNot []conditionJSON `json:"must_not"`
}

type conditionJSON struct {
	Key   string     `json:"key"`
	Match *matchJSON `json:"match"`
	Range *rangeJSON `json:"range"`
	HasID []uint64   `json:"has_id"`
}

// matchJSON is {"value": "x"}, {"value": true} or {"any": ["x", "y"]}.
type matchJSON struct {
	Value any      `json:"value"`
	Any   []string `json:"any"`
}

func (m *matchJSON) condition(key string) (filter.Condition, error) {
	if m.Any != nil {
		if m.Value != nil {
			return filter.Condition{}, fmt.Errorf("match for %q must have exactly one of value or any", key)
		}
		return filter.NewMatchAny(key, m.Any)
	}
	switch v := m.Value.(type) {
	case string:
		return filter.NewMatch(key, v)
	case bool:
		return filter.NewMatch(key, strconv.FormatBool(v))
	case nil:
		return filter.Condition{}, fmt.Errorf("match for %q has no value", key)
	default:
		return filter.Condition{}, fmt.Errorf("match for %q must be a string or bool, use range for numbers", key)
	}
}

type rangeJSON struct {
	GT  *float64 `json:"gt"`
	GTE *float64 `json:"gte"`
	LT  *float64 `json:"lt"`
	LTE *float64 `json:"lte"`
}

func (f *filterJSON) expression() (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}
	must, err := conditions(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditions(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditions(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, badRequest("filter: %v", err)
	}
	return expr, nil
}

func conditions(cs []conditionJSON) ([]filter.Condition, error) {
	if cs == nil {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := c.condition()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func (c conditionJSON) condition() (filter.Condition, error) {
	set := 0
	for _, ok := range []bool{c.Match != nil, c.Range != nil, c.HasID != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return filter.Condition{}, badRequest("filter condition must have exactly one of match, range or has_id")
	}

	var (
		cond filter.Condition
		err  error
	)
	switch {
	case c.Match != nil:
		cond, err = c.Match.condition(c.Key)
	case c.Range != nil:
		var r filter.Range
		r, err = filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
		if err == nil {
			cond, err = filter.NewRange(c.Key, r)
		}
	default:
		cond, err = filter.NewHasID(c.HasID)
	}
	if err != nil {
		return filter.Condition{}, badRequest("filter condition: %v", err)
	}
	return cond, nil
}

// --- Selectors ---

// selectorJSON is a with_payload / with_vector selector: a bool or a list of names.
type selectorJSON struct {
	Enabled bool
	Names   []string
}

func (s *selectorJSON) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	if firstByte(data) == '[' {
		if err := json.Unmarshal(data, &s.Names); err != nil {
			return badRequest("selector: %v", err)
		}
		s.Enabled = true
		return nil
	}
	if err := json.Unmarshal(data, &s.Enabled); err != nil {
		return badRequest("selector must be a bool or a list of names")
	}
	return nil
}

// payload returns the payload selector, def when the field was omitted.
func (s *selectorJSON) payload(def bool) point.WithPayload {
	if s == nil {
		return point.WithPayload{Enabled: def}
	}
	return point.WithPayload{Enabled: s.Enabled, Include: s.Names}
}

// vector returns the vector selector; omitted means no vectors.
func (s *selectorJSON) vector() *point.WithVector {
	if s == nil || !s.Enabled {
		return nil
	}
	return &point.WithVector{Enabled: true, Names: s.Names}
}

// shardKeyJSON is a shard_key field: one key or a list of keys.
type shardKeyJSON []shard.Key

func (k *shardKeyJSON) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	if firstByte(data) == '[' {
		var keys []shard.Key
		if err := json.Unmarshal(data, &keys); err != nil {
			return err //nolint:wrapcheck // shard.Key errors already carry ErrInvalidShardKey
		}
		*k = keys
	} else {
		var key shard.Key
		if err := json.Unmarshal(data, &key); err != nil {
			return err //nolint:wrapcheck // shard.Key errors already carry ErrInvalidShardKey
		}
		*k = shardKeyJSON{key}
	}
	for _, key := range *k {
		if err := key.Validate(); err != nil {
			return err //nolint:wrapcheck // carries ErrInvalidShardKey
		}
	}
	return nil
}

func (k shardKeyJSON) selector() shard.Selector {
	return shard.ForKeys(k...)
}

type searchParamsJSON struct {
	HNSWEf int  `json:"hnsw_ef"`
	Exact  bool `json:"exact"`
}

func (p *searchParamsJSON) params() *request.SearchParams {
	if p == nil {
		return nil
	}
	return &request.SearchParams{HNSWEf: p.HNSWEf, Exact: p.Exact}
}

// --- Vectors ---

type sparseJSON struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// internalVector decodes a dense array or a sparse {indices, values} object.
func internalVector(data []byte) (vector.Internal, error) {
	switch firstByte(data) {
	case '[':
		var dense []float32
		if err := json.Unmarshal(data, &dense); err != nil {
			return nil, badRequest("vector: %v", err)
		}
		return vector.Dense(dense), nil
	case '{':
		var sp sparseJSON
		if err := json.Unmarshal(data, &sp); err != nil {
			return nil, badRequest("sparse vector: %v", err)
		}
		s := vector.Sparse{Indices: sp.Indices, Values: sp.Values}
		if err := s.Validate(); err != nil {
			return nil, badRequest("sparse vector: %v", err)
		}
		return s, nil
	default:
		return nil, badRequest("vector must be an array or a sparse object")
	}
}

// vectorInputJSON is a vector reference: a raw vector, a point ID or a
// document {"text", "model"}.
type vectorInputJSON struct {
	in request.VectorInput
}

type documentJSON struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

func (v *vectorInputJSON) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	switch b := firstByte(data); {
	case b >= '0' && b <= '9':
		var id uint64
		if err := json.Unmarshal(data, &id); err != nil {
			return badRequest("point id: %v", err)
		}
		v.in = request.PointInput{ID: point.ID(id)}
		return nil
	case b == '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return badRequest("vector input: %v", err)
		}
		if _, ok := probe["text"]; ok {
			var doc documentJSON
			if err := json.Unmarshal(data, &doc); err != nil {
				return badRequest("document: %v", err)
			}
			if doc.Text == "" {
				return badRequest("document text is required")
			}
			v.in = request.Document{Text: doc.Text, Model: doc.Model}
			return nil
		}
	}
	raw, err := internalVector(data)
	if err != nil {
		return err
	}
	v.in = request.RawVector{Vector: raw}
	return nil
}

func inputs(vs []vectorInputJSON) []request.VectorInput {
	if vs == nil {
		return nil
	}
	out := make([]request.VectorInput, len(vs))
	for i, v := range vs {
		out[i] = v.in
	}
	return out
}

type contextPairJSON struct {
	Positive vectorInputJSON `json:"positive"`
	Negative vectorInputJSON `json:"negative"`
}

func contextPairs(ps []contextPairJSON) ([]request.ContextInputPair, error) {
	out := make([]request.ContextInputPair, len(ps))
	for i, p := range ps {
		if p.Positive.in == nil || p.Negative.in == nil {
			return nil, badRequest("context pair requires positive and negative")
		}
		out[i] = request.ContextInputPair{Positive: p.Positive.in, Negative: p.Negative.in}
	}
	return out, nil
}

// namedVectorJSON is the search vector: an array for the default vector or
// {"name", "vector"} for a named one.
type namedVectorJSON struct {
	Name   string
	Vector vector.Internal
}

func (n *namedVectorJSON) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	if firstByte(data) == '{' {
		var named struct {
			Name   string          `json:"name"`
			Vector json.RawMessage `json:"vector"`
		}
		if err := json.Unmarshal(data, &named); err != nil {
			return badRequest("named vector: %v", err)
		}
		if named.Vector == nil {
			return badRequest("named vector requires a vector")
		}
		v, err := internalVector(named.Vector)
		if err != nil {
			return err
		}
		n.Name, n.Vector = named.Name, v
		return nil
	}
	v, err := internalVector(data)
	if err != nil {
		return err
	}
	n.Name, n.Vector = vector.DefaultName, v
	return nil
}

// vectorStructJSON is the vector of an upserted point: an array for the
// default vector or an object of named vectors.
type vectorStructJSON struct {
	s vector.Struct
}

func (v *vectorStructJSON) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	switch firstByte(data) {
	case '[':
		var dense []float32
		if err := json.Unmarshal(data, &dense); err != nil {
			return badRequest("vector: %v", err)
		}
		v.s = vector.Single(dense)
		return nil
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return badRequest("named vectors: %v", err)
		}
		named := make(vector.Named, len(raw))
		for name, r := range raw {
			in, err := internalVector(r)
			if err != nil {
				return fmt.Errorf("vector %q: %w", name, err)
			}
			named[name] = in
		}
		v.s = named
		return nil
	default:
		return badRequest("point vector must be an array or an object of named vectors")
	}
}

// --- Universal query ---

type recommendJSON struct {
	Positive []vectorInputJSON `json:"positive"`
	Negative []vectorInputJSON `json:"negative"`
}

type discoverJSON struct {
	Target  *vectorInputJSON  `json:"target"`
	Context []contextPairJSON `json:"context"`
}

// queryJSON is a universal query. A bare vector input is a nearest query.
type queryJSON struct {
	q request.Query
}

func (q *queryJSON) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	if firstByte(data) != '{' {
		var in vectorInputJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return err
		}
		q.q = request.QueryNearest{Vector: in.in}
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return badRequest("query: %v", err)
	}
	_, isDocument := probe["text"]
	_, isSparse := probe["indices"]
	if isDocument || isSparse {
		var in vectorInputJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return err
		}
		q.q = request.QueryNearest{Vector: in.in}
		return nil
	}
	if len(probe) != 1 {
		return badRequest("query must have exactly one of nearest, recommend, discover, context or fusion")
	}

	var body struct {
		Nearest   *vectorInputJSON  `json:"nearest"`
		Recommend *recommendJSON    `json:"recommend"`
		Discover  *discoverJSON     `json:"discover"`
		Context   []contextPairJSON `json:"context"`
		Fusion    string            `json:"fusion"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	switch {
	case body.Nearest != nil:
		q.q = request.QueryNearest{Vector: body.Nearest.in}
	case body.Recommend != nil:
		q.q = request.QueryRecommend{Positive: inputs(body.Recommend.Positive), Negative: inputs(body.Recommend.Negative)}
	case body.Discover != nil:
		if body.Discover.Target == nil {
			return badRequest("discover query requires a target")
		}
		pairs, err := contextPairs(body.Discover.Context)
		if err != nil {
			return err
		}
		q.q = request.QueryDiscover{Target: body.Discover.Target.in, Context: pairs}
	case body.Context != nil:
		pairs, err := contextPairs(body.Context)
		if err != nil {
			return err
		}
		q.q = request.QueryContext{Pairs: pairs}
	case body.Fusion != "":
		if request.Fusion(body.Fusion) != request.FusionRRF {
			return badRequest("unknown fusion %q", body.Fusion)
		}
		q.q = request.QueryFusion{Fusion: request.FusionRRF}
	default:
		return badRequest("unknown query")
	}
	return nil
}

func (q *queryJSON) query() request.Query {
	if q == nil {
		return nil
	}
	return q.q
}

type prefetchJSON struct {
	Prefetch       []prefetchJSON    `json:"prefetch"`
	Query          *queryJSON        `json:"query"`
	Using          string            `json:"using"`
	Filter         *filterJSON       `json:"filter"`
	Params         *searchParamsJSON `json:"params"`
	ScoreThreshold *float32          `json:"score_threshold"`
	Limit          int               `json:"limit"`
}

func prefetches(ps []prefetchJSON) ([]request.Prefetch, error) {
	if ps == nil {
		return nil, nil
	}
	out := make([]request.Prefetch, len(ps))
	for i, p := range ps {
		nested, err := prefetches(p.Prefetch)
		if err != nil {
			return nil, err
		}
		f, err := p.Filter.expression()
		if err != nil {
			return nil, err
		}
		out[i] = request.Prefetch{
			Prefetch:       nested,
			Query:          p.Query.query(),
			Using:          p.Using,
			Filter:         f,
			Params:         p.Params.params(),
			ScoreThreshold: p.ScoreThreshold,
			Limit:          p.Limit,
		}
	}
	return out, nil
}

// queryFields are shared by plain and grouped universal queries.
type queryFields struct {
	Prefetch       []prefetchJSON    `json:"prefetch"`
	Query          *queryJSON        `json:"query"`
	Using          string            `json:"using"`
	Filter         *filterJSON       `json:"filter"`
	Params         *searchParamsJSON `json:"params"`
	ScoreThreshold *float32          `json:"score_threshold"`
	WithPayload    *selectorJSON     `json:"with_payload"`
	WithVector     *selectorJSON     `json:"with_vector"`
	ShardKey       shardKeyJSON      `json:"shard_key"`
}

func (f queryFields) toRequest(limit, offset int) (request.CollectionQueryRequest, error) {
	ps, err := prefetches(f.Prefetch)
	if err != nil {
		return request.CollectionQueryRequest{}, err
	}
	expr, err := f.Filter.expression()
	if err != nil {
		return request.CollectionQueryRequest{}, err
	}
	return request.CollectionQueryRequest{
		Prefetch:       ps,
		Query:          f.Query.query(),
		Using:          f.Using,
		Filter:         expr,
		Params:         f.Params.params(),
		ScoreThreshold: f.ScoreThreshold,
		Limit:          limit,
		Offset:         offset,
		WithPayload:    f.WithPayload.payload(false),
		WithVector:     f.WithVector.vector(),
	}, nil
}

type queryRequestJSON struct {
	queryFields
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (q queryRequestJSON) toDomain() (request.QueryWithSelector, error) {
	req, err := q.toRequest(q.Limit, q.Offset)
	if err != nil {
		return request.QueryWithSelector{}, err
	}
	return request.QueryWithSelector{Request: req, Selector: q.ShardKey.selector()}, nil
}

type queryBatchJSON struct {
	Searches []queryRequestJSON `json:"searches"`
}

type queryGroupsJSON struct {
	queryFields
	GroupBy   string `json:"group_by"`
	GroupSize int    `json:"group_size"`
	Limit     int    `json:"limit"`
}

func (q queryGroupsJSON) toDomain() (request.CollectionQueryGroupsRequest, error) {
	req, err := q.toRequest(0, 0)
	if err != nil {
		return request.CollectionQueryGroupsRequest{}, err
	}
	return request.CollectionQueryGroupsRequest{
		Query: req, GroupBy: q.GroupBy, GroupSize: q.GroupSize, Limit: q.Limit,
	}, nil
}

// --- Search ---

// searchFields are shared by plain and grouped searches.
type searchFields struct {
	Vector         *namedVectorJSON  `json:"vector"`
	Filter         *filterJSON       `json:"filter"`
	Params         *searchParamsJSON `json:"params"`
	ScoreThreshold *float32          `json:"score_threshold"`
	WithPayload    *selectorJSON     `json:"with_payload"`
	WithVector     *selectorJSON     `json:"with_vector"`
	ShardKey       shardKeyJSON      `json:"shard_key"`
}

func (f searchFields) toRequest(limit, offset int) (request.CoreSearchRequest, error) {
	if f.Vector == nil {
		return request.CoreSearchRequest{}, badRequest("vector is required")
	}
	expr, err := f.Filter.expression()
	if err != nil {
		return request.CoreSearchRequest{}, err
	}
	return request.CoreSearchRequest{
		Query:          request.Nearest{Using: f.Vector.Name, Vector: f.Vector.Vector},
		Filter:         expr,
		Params:         f.Params.params(),
		Limit:          limit,
		Offset:         offset,
		WithPayload:    f.WithPayload.payload(false),
		WithVector:     f.WithVector.vector(),
		ScoreThreshold: f.ScoreThreshold,
	}, nil
}

type searchRequestJSON struct {
	searchFields
	Limit           int  `json:"limit"`
	Offset          int  `json:"offset"`
	WithExplanation bool `json:"with_explanation"`
}

func (s searchRequestJSON) toDomain() (request.SearchWithSelector, error) {
	req, err := s.toRequest(s.Limit, s.Offset)
	if err != nil {
		return request.SearchWithSelector{}, err
	}
	req.WithExplanation = s.WithExplanation
	return request.SearchWithSelector{Request: req, Selector: s.ShardKey.selector()}, nil
}

type searchBatchJSON struct {
	Searches []searchRequestJSON `json:"searches"`
}

type searchGroupsJSON struct {
	searchFields
	GroupBy   string `json:"group_by"`
	GroupSize int    `json:"group_size"`
	Limit     int    `json:"limit"`
}

func (s searchGroupsJSON) toDomain() (request.SearchGroupsRequest, error) {
	req, err := s.toRequest(0, 0)
	if err != nil {
		return request.SearchGroupsRequest{}, err
	}
	return request.SearchGroupsRequest{Search: req, GroupBy: s.GroupBy, GroupSize: s.GroupSize, Limit: s.Limit}, nil
}

type recommendGroupsJSON struct {
	Positive       []vectorInputJSON `json:"positive"`
	Negative       []vectorInputJSON `json:"negative"`
	Using          string            `json:"using"`
	Filter         *filterJSON       `json:"filter"`
	Params         *searchParamsJSON `json:"params"`
	ScoreThreshold *float32          `json:"score_threshold"`
	WithPayload    *selectorJSON     `json:"with_payload"`
	WithVector     *selectorJSON     `json:"with_vector"`
	ShardKey       shardKeyJSON      `json:"shard_key"`
	GroupBy        string            `json:"group_by"`
	GroupSize      int               `json:"group_size"`
	Limit          int               `json:"limit"`
}

func (r recommendGroupsJSON) toDomain() (request.RecommendGroupsRequest, error) {
	expr, err := r.Filter.expression()
	if err != nil {
		return request.RecommendGroupsRequest{}, err
	}
	return request.RecommendGroupsRequest{
		Positive:       inputs(r.Positive),
		Negative:       inputs(r.Negative),
		Using:          r.Using,
		Filter:         expr,
		Params:         r.Params.params(),
		ScoreThreshold: r.ScoreThreshold,
		WithPayload:    r.WithPayload.payload(false),
		WithVector:     r.WithVector.vector(),
		GroupBy:        r.GroupBy,
		GroupSize:      r.GroupSize,
		Limit:          r.Limit,
	}, nil
}

type discoverRequestJSON struct {
	Target      *vectorInputJSON  `json:"target"`
	Context     []contextPairJSON `json:"context"`
	Using       string            `json:"using"`
	Filter      *filterJSON       `json:"filter"`
	Params      *searchParamsJSON `json:"params"`
	Limit       int               `json:"limit"`
	Offset      int               `json:"offset"`
	WithPayload *selectorJSON     `json:"with_payload"`
	WithVector  *selectorJSON     `json:"with_vector"`
	ShardKey    shardKeyJSON      `json:"shard_key"`
}

func (d discoverRequestJSON) toDomain() (request.DiscoverRequest, error) {
	pairs, err := contextPairs(d.Context)
	if err != nil {
		return request.DiscoverRequest{}, err
	}
	expr, err := d.Filter.expression()
	if err != nil {
		return request.DiscoverRequest{}, err
	}
	var target request.VectorInput
	if d.Target != nil {
		target = d.Target.in
	}
	return request.DiscoverRequest{
		Target:      target,
		Context:     pairs,
		Using:       d.Using,
		Filter:      expr,
		Params:      d.Params.params(),
		Limit:       d.Limit,
		Offset:      d.Offset,
		WithPayload: d.WithPayload.payload(false),
		WithVector:  d.WithVector.vector(),
		ShardKeys:   d.ShardKey,
	}, nil
}

type discoverBatchJSON struct {
	Searches []discoverRequestJSON `json:"searches"`
}

// --- Records ---

type countRequestJSON struct {
	Filter   *filterJSON  `json:"filter"`
	Exact    bool         `json:"exact"`
	ShardKey shardKeyJSON `json:"shard_key"`
}

func (c countRequestJSON) toDomain() (request.CountRequest, error) {
	expr, err := c.Filter.expression()
	if err != nil {
		return request.CountRequest{}, err
	}
	return request.CountRequest{Filter: expr, Exact: c.Exact}, nil
}

type pointRequestJSON struct {
	IDs         []point.ID    `json:"ids"`
	WithPayload *selectorJSON `json:"with_payload"`
	WithVector  *selectorJSON `json:"with_vector"`
	ShardKey    shardKeyJSON  `json:"shard_key"`
}

func (p pointRequestJSON) toDomain() request.PointRequest {
	return request.PointRequest{
		IDs:         p.IDs,
		WithPayload: p.WithPayload.payload(true),
		WithVector:  p.WithVector.vector(),
	}
}

type scrollRequestJSON struct {
	Offset      *point.ID     `json:"offset"`
	Limit       int           `json:"limit"`
	Filter      *filterJSON   `json:"filter"`
	WithPayload *selectorJSON `json:"with_payload"`
	WithVector  *selectorJSON `json:"with_vector"`
	ShardKey    shardKeyJSON  `json:"shard_key"`
}

func (s scrollRequestJSON) toDomain() (request.ScrollRequest, error) {
	expr, err := s.Filter.expression()
	if err != nil {
		return request.ScrollRequest{}, err
	}
	return request.ScrollRequest{
		Offset:      s.Offset,
		Limit:       s.Limit,
		Filter:      expr,
		WithPayload: s.WithPayload.payload(true),
		WithVector:  s.WithVector.vector(),
	}, nil
}

type matrixRequestJSON struct {
	Filter   *filterJSON  `json:"filter"`
	Sample   int          `json:"sample"`
	Limit    int          `json:"limit"`
	Using    string       `json:"using"`
	ShardKey shardKeyJSON `json:"shard_key"`
}

func (m matrixRequestJSON) toDomain() (request.SearchMatrixRequest, error) {
	expr, err := m.Filter.expression()
	if err != nil {
		return request.SearchMatrixRequest{}, err
	}
	return request.SearchMatrixRequest{Filter: expr, Sample: m.Sample, Limit: m.Limit, Using: m.Using}, nil
}

// --- Writes ---

type pointJSON struct {
	ID      point.ID         `json:"id"`
	Vector  vectorStructJSON `json:"vector"`
	Payload point.Payload    `json:"payload"`
}

type upsertRequestJSON struct {
	Points   []pointJSON `json:"points"`
	ShardKey *shard.Key  `json:"shard_key"`
}

func (u upsertRequestJSON) toDomain() []point.Record {
	out := make([]point.Record, len(u.Points))
	for i, p := range u.Points {
		out[i] = point.Record{ID: p.ID, Payload: p.Payload, Vector: p.Vector.s, ShardKey: u.ShardKey}
	}
	return out
}
