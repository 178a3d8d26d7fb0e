package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/starford/taxonomy-explorer/internal/checksum"
	"github.com/starford/taxonomy-explorer/internal/models"
	"github.com/starford/taxonomy-explorer/internal/taxonomyservice"
	"github.com/starford/taxonomy-explorer/internal/testutil"
)

// testEnv sets up a temp source dir seeded with the sample ontology, a SQLite DB,
// the service, and a router. An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) http.Handler {
	t.Helper()
	db := testutil.TestDB(t)
	_, store := testutil.TestStore(t)
	testutil.SeedSample(t, db, store)
	svc := taxonomyservice.NewService(store, db, testutil.SourceFile)
	return NewRouter(svc, authEnabled, token, sseHandler)
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTreeEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/tree", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var root models.RawNode
	if err := json.Unmarshal(w.Body.Bytes(), &root); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if root.Name != "root" || len(root.Children) != 2 || root.Children[0].NodeID != "0" {
		t.Errorf("tree = %+v", root)
	}
	etag := w.Header().Get("ETag")
	if etag != checksum.ETag(checksum.Sum([]byte(testutil.SampleOntology))) {
		t.Errorf("ETag = %q", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/taxonomy/tree", nil)
	req.Header.Set("If-None-Match", etag)
	if w := do(router, req); w.Code != http.StatusNotModified {
		t.Errorf("conditional get = %d, want 304", w.Code)
	}
}

func TestNodeInfoEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/node-info/Dog?generation_task=3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-role="node-info"`) || !strings.Contains(body, "/tasks/3/annotate") {
		t.Errorf("fragment = %s", body)
	}
}

func TestNodeInfoEndpoint_Errors(t *testing.T) {
	router := testEnv(t, "")

	if w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/node-info/Unicorn", nil)); w.Code != http.StatusNotFound {
		t.Errorf("unknown name = %d, want 404", w.Code)
	}
	if w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/node-info/Dog?generation_task=x", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("bad task = %d, want 400", w.Code)
	}
}

func TestNodeEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/nodes/0,0", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var info NodeInfo
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.Name != "Dog" || info.BigID != "0,0" || len(info.Children) != 1 {
		t.Errorf("info = %+v", info)
	}

	if w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/nodes/7,7", nil)); w.Code != http.StatusNotFound {
		t.Errorf("missing node = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/search?q=dogs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "/m/dog" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	if w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/search", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestReplaceSource_OptimisticLocking(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/source", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("source status = %d", w.Code)
	}
	etag := w.Header().Get("ETag")

	next := []byte(`[{"id": "/m/rain", "name": "Rain"}]`)

	req := httptest.NewRequest(http.MethodPut, "/taxonomy/source", bytes.NewReader(next))
	req.Header.Set("If-Match", `"stale"`)
	if w := do(router, req); w.Code != http.StatusPreconditionFailed {
		t.Errorf("stale put = %d, want 412", w.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/taxonomy/source", bytes.NewReader([]byte("{not a list")))
	if w := do(router, req); w.Code != http.StatusBadRequest {
		t.Errorf("invalid put = %d, want 400", w.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/taxonomy/source", bytes.NewReader(next))
	req.Header.Set("If-Match", etag)
	if w := do(router, req); w.Code != http.StatusOK {
		t.Fatalf("put = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/tree", nil))
	if !strings.Contains(w.Body.String(), `"Rain"`) {
		t.Errorf("tree after put = %s", w.Body.String())
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/taxonomy/tree", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	if w := do(router, req); w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/tree", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/taxonomy/tree", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if w := do(router, req); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret", blockingSSE)
	if w := do(router, httptest.NewRequest(http.MethodGet, "/events", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	if w := do(router, req); w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router := testEnv(t, "secret123")

	if w := do(router, httptest.NewRequest(http.MethodGet, "/taxonomy/tree?access_token=secret123", nil)); w.Code != http.StatusOK {
		t.Errorf("query token GET = %d, want 200", w.Code)
	}
	w := do(router, httptest.NewRequest(http.MethodPut, "/taxonomy/source?access_token=secret123", strings.NewReader("[]")))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token PUT = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate challenge")
	}
}
