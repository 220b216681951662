package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/othala/internal/contentsvc"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/testutil"
)

func testRouter(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	store := testutil.TestStore(t)
	idx := testutil.TestIndex(t, store)
	g := testutil.TestGraph(t, store)
	svc := contentsvc.NewService(store, idx, search.NewEngine(store, idx, g), nil)
	return NewRouter(svc, g, authEnabled, token, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	h := testRouter(t, true, "secret")

	rec := doJSON(t, h, http.MethodGet, "/stats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", rec.Code)
	}
}

func TestCreateAndSearchContent(t *testing.T) {
	h := testRouter(t, false, "")

	var created CreateContentResponse
	rec := doJSON(t, h, http.MethodPost, "/content",
		`{"content":"Slow mornings make for deep afternoons.","title":"Mornings","style":["blog"],"tags":["routine"]}`,
		&created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if created.Status != "indexed" {
		t.Errorf("status = %q, want indexed", created.Status)
	}

	var res search.Result
	rec = doJSON(t, h, http.MethodGet, "/search?q=deep+afternoons", "", &res)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status = %d", rec.Code)
	}
	if res.Total != 1 || res.Items[0].ID != created.ID {
		t.Errorf("search total = %d, want the created node", res.Total)
	}

	rec = doJSON(t, h, http.MethodGet, "/search?tag=no-such-tag", "", &res)
	if rec.Code != http.StatusOK || res.Total != 0 {
		t.Errorf("nonexistent tag: total = %d, want 0", res.Total)
	}
}

func TestCreateContentValidation(t *testing.T) {
	h := testRouter(t, false, "")

	rec := doJSON(t, h, http.MethodPost, "/content", `{"title":"no body"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing content: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/content", `{"content":"x","style":["sonnet"]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid style: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/content", `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid json: status = %d, want 400", rec.Code)
	}
}

func TestGetNode(t *testing.T) {
	h := testRouter(t, false, "")

	var created CreateContentResponse
	doJSON(t, h, http.MethodPost, "/content", `{"content":"body","style":["post"]}`, &created)

	var node map[string]any
	rec := doJSON(t, h, http.MethodGet, "/nodes/"+created.ID, "", &node)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if node["id"] != created.ID {
		t.Errorf("id = %v", node["id"])
	}
	if _, ok := node["links"]; !ok {
		t.Error("content node response lacks links field")
	}

	rec = doJSON(t, h, http.MethodGet, "/nodes/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing node: status = %d, want 404", rec.Code)
	}
}

func TestSearchRejectsUnknownSort(t *testing.T) {
	h := testRouter(t, false, "")
	rec := doJSON(t, h, http.MethodGet, "/search?sort=alphabetical", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGraphExportEmpty(t *testing.T) {
	h := testRouter(t, false, "")

	var out struct {
		Nodes []any `json:"nodes"`
		Links []any `json:"links"`
	}
	rec := doJSON(t, h, http.MethodGet, "/graph", "", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out.Nodes == nil || out.Links == nil {
		t.Error("graph export should return empty arrays, not null")
	}
}

func TestReindexAndStats(t *testing.T) {
	h := testRouter(t, false, "")

	doJSON(t, h, http.MethodPost, "/content", `{"content":"alpha","style":["post"]}`, nil)
	doJSON(t, h, http.MethodPost, "/content", `{"content":"beta","style":["post"]}`, nil)

	var stats StatsResponse
	rec := doJSON(t, h, http.MethodPost, "/reindex", "", &stats)
	if rec.Code != http.StatusOK {
		t.Fatalf("reindex: status = %d", rec.Code)
	}
	if stats.Content != 2 || stats.Indexed != 2 {
		t.Errorf("stats = %+v, want 2/2", stats)
	}
}
