package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuragpardeshii/MediCare/internal/domain"
	"github.com/anuragpardeshii/MediCare/pkg/pagination"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeCluster answers the handful of Elasticsearch endpoints the engine uses.
type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	requests    []recordedRequest

	searchStatus int
	searchBody   string
	bulkBody     string
	deleteStatus int
}

func (c *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})

	// The client refuses to talk to anything that does not identify as
	// Elasticsearch.
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && r.URL.Path == "/medicare_doctors":
		if c.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/medicare_doctors":
		c.indexExists = true
		_, _ = io.WriteString(w, `{"acknowledged":true,"index":"medicare_doctors"}`)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/medicare_doctors/_doc/"):
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/medicare_doctors/_doc/"):
		status := c.deleteStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		if c.searchStatus != 0 {
			w.WriteHeader(c.searchStatus)
		}
		_, _ = io.WriteString(w, c.searchBody)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		_, _ = io.WriteString(w, c.bulkBody)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"not_found","reason":"unexpected request"},"status":404}`)
	}
}

func (c *fakeCluster) last() recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

func (c *fakeCluster) recorded() []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedRequest(nil), c.requests...)
}

func (c *fakeCluster) setDeleteStatus(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteStatus = status
}

func newFakeEngine(t *testing.T, cluster *fakeCluster) *Engine {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	e, err := New(context.Background(), Config{URL: srv.URL}, testLogger())
	require.NoError(t, err)
	return e
}

func sampleDoctor(id, name, spec string) domain.PublicUser {
	return domain.PublicUser{
		ID:             id,
		Name:           name,
		Email:          id + "@clinic.example",
		Role:           domain.RoleDoctor,
		Specialization: &spec,
		CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNew_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{}
	newFakeEngine(t, cluster)

	req := cluster.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/medicare_doctors", req.Path)
	assert.Contains(t, req.Body, `"autocomplete_tokenizer"`)
	assert.Contains(t, req.Body, `"specialization"`)
}

func TestNew_KeepsExistingIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	newFakeEngine(t, cluster)

	for _, req := range cluster.recorded() {
		assert.NotEqual(t, http.MethodPut, req.Method, "existing index must not be recreated")
	}
}

func TestEngine_IndexAndDelete(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	e := newFakeEngine(t, cluster)
	ctx := context.Background()

	require.NoError(t, e.Index(ctx, sampleDoctor("doc-1", "Dr Grey", "cardiology")))
	req := cluster.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/medicare_doctors/_doc/doc-1", req.Path)
	assert.Contains(t, req.Query, "refresh=true")
	assert.NotContains(t, req.Body, "password")

	var doc domain.PublicUser
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Dr Grey", doc.Name)

	require.NoError(t, e.Delete(ctx, "doc-1"))
	assert.Equal(t, http.MethodDelete, cluster.last().Method)

	cluster.setDeleteStatus(http.StatusNotFound)
	assert.NoError(t, e.Delete(ctx, "missing"), "a missing document is not an error")

	cluster.setDeleteStatus(http.StatusInternalServerError)
	assert.Error(t, e.Delete(ctx, "doc-1"))
}

func TestEngine_Search(t *testing.T) {
	cluster := &fakeCluster{
		indexExists: true,
		searchBody: `{"took":3,"hits":{"total":{"value":7},"hits":[
			{"_source":{"id":"doc-1","name":"Dr Grey","email":"doc-1@clinic.example","role":"doctor","specialization":"cardiology","created_at":"2026-03-01T09:00:00Z"}}
		]}}`,
	}
	e := newFakeEngine(t, cluster)

	doctors, total, err := e.Search(context.Background(), "cardio", pagination.Params{Page: 3, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, doctors, 1)
	assert.Equal(t, "doc-1", doctors[0].ID)
	require.NotNil(t, doctors[0].Specialization)
	assert.Equal(t, "cardiology", *doctors[0].Specialization)

	req := cluster.last()
	assert.Equal(t, "/medicare_doctors/_search", req.Path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.EqualValues(t, 10, sent["from"])
	assert.EqualValues(t, 5, sent["size"])
	assert.Contains(t, req.Body, `"fuzziness":"AUTO"`)
	assert.Contains(t, req.Body, `"role":"doctor"`)
}

func TestEngine_SearchError(t *testing.T) {
	cluster := &fakeCluster{
		indexExists:  true,
		searchStatus: http.StatusBadRequest,
		searchBody:   `{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":400}`,
	}
	e := newFakeEngine(t, cluster)

	_, _, err := e.Search(context.Background(), "x", pagination.DefaultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search_phase_execution_exception")
}

func TestEngine_BulkIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, bulkBody: `{"errors":false,"items":[]}`}
	e := newFakeEngine(t, cluster)
	ctx := context.Background()

	before := len(cluster.recorded())
	require.NoError(t, e.BulkIndex(ctx, nil))
	assert.Len(t, cluster.recorded(), before, "empty batch sends nothing")

	docs := []domain.PublicUser{
		sampleDoctor("doc-1", "Dr Grey", "cardiology"),
		sampleDoctor("doc-2", "Dr House", "diagnostics"),
	}
	require.NoError(t, e.BulkIndex(ctx, docs))

	req := cluster.last()
	assert.Equal(t, "/medicare_doctors/_bulk", req.Path)
	lines := strings.Split(strings.TrimSpace(req.Body), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"doc-1"`)
	assert.Contains(t, lines[3], `"Dr House"`)
}

func TestEngine_BulkIndexPartialFailure(t *testing.T) {
	cluster := &fakeCluster{
		indexExists: true,
		bulkBody: `{"errors":true,"items":[
			{"index":{"_id":"doc-2","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad date"}}}
		]}`,
	}
	e := newFakeEngine(t, cluster)

	err := e.BulkIndex(context.Background(), []domain.PublicUser{sampleDoctor("doc-2", "Dr House", "diagnostics")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc-2")
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestEngine_Ping(t *testing.T) {
	e := newFakeEngine(t, &fakeCluster{indexExists: true})
	assert.NoError(t, e.Ping(context.Background()))
}
