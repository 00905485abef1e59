package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// mockResult replays a fixed set of records.
type mockResult struct {
	records []*neo4j.Record
	pos     int
}

func newMockResult(records ...*neo4j.Record) *mockResult {
	return &mockResult{records: records}
}

func (r *mockResult) Next(_ context.Context) bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *mockResult) Record() *neo4j.Record {
	return r.records[r.pos-1]
}

// mockSession serves canned results and errors; it also records every query
// so write paths can be asserted on.
type mockSession struct {
	results  []*mockResult
	runErr   error
	writeErr error
	queries  []string
	params   []map[string]any
}

func (s *mockSession) Run(_ context.Context, cypher string, params map[string]any) (CypherResult, error) {
	s.queries = append(s.queries, cypher)
	s.params = append(s.params, params)
	if s.runErr != nil {
		return nil, s.runErr
	}
	if len(s.results) > 0 {
		res := s.results[0]
		s.results = s.results[1:]
		return res, nil
	}
	return newMockResult(), nil
}

func (s *mockSession) ExecuteWrite(_ context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	return work(s)
}

func (s *mockSession) Close(_ context.Context) error { return nil }

type mockOpener struct {
	session *mockSession
}

func (o *mockOpener) OpenSession(_ context.Context) CypherSession {
	return o.session
}

func newMockStore(records ...*neo4j.Record) (*GraphStore, *mockSession) {
	sess := &mockSession{results: []*mockResult{newMockResult(records...)}}
	return NewWithOpener(&mockOpener{session: sess}), sess
}

func makeRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func makeNodeRecord(key string, props map[string]any, labels ...string) *neo4j.Record {
	node := dbtype.Node{Props: props, Labels: labels}
	keys := []string{key}
	values := []any{node}
	if len(labels) > 0 {
		keys = append(keys, "kind")
		values = append(values, labels[0])
	}
	return &neo4j.Record{Keys: keys, Values: values}
}

func edgeRecord(from, to string, mins any) *neo4j.Record {
	return makeRecord([]string{"from", "to", "mins"}, []any{from, to, mins})
}
