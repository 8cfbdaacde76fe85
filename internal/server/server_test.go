package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mcollina/githuman-sub002/internal/domain"
	"github.com/mcollina/githuman-sub002/internal/infrastructure/memory"
	"github.com/mcollina/githuman-sub002/pkg/auth"
)

func newTestServer(t *testing.T) (*memory.MemoryRepository, http.Handler) {
	t.Helper()

	repo := memory.NewMemoryRepository()
	hub := NewHub(zap.NewNop(), time.Second, time.Minute)
	t.Cleanup(hub.Close)

	return repo, New(repo, hub, zap.NewNop()).Router()
}

func seed(t *testing.T, repo *memory.MemoryRepository, contents ...string) []string {
	t.Helper()

	ids := make([]string, len(contents))
	for i, content := range contents {
		todo, err := domain.NewTodo(content, nil)
		if err != nil {
			t.Fatalf("seed %q: %v", content, err)
		}
		if err := repo.Create(context.Background(), todo); err != nil {
			t.Fatalf("seed %q: %v", content, err)
		}
		ids[i] = todo.ID
	}
	return ids
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return out
}

func listContents(t *testing.T, handler http.Handler, path string) []string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d: %s", path, rec.Code, rec.Body.String())
	}
	result := decode[listResponse](t, rec)

	contents := make([]string, len(result.Data))
	for i, todo := range result.Data {
		contents[i] = todo.Content
	}
	return contents
}

func TestCreateTodo(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/todos", `{"content":"review PR","reviewId":"rev-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	todo := decode[domain.Todo](t, rec)
	if todo.ID == "" || todo.Content != "review PR" || todo.ReviewID == nil || *todo.ReviewID != "rev-1" {
		t.Fatalf("todo = %+v", todo)
	}
	if todo.Position != 0 {
		t.Fatalf("first todo position = %d, want 0", todo.Position)
	}
}

func TestCreateTodoRejectsEmptyContent(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/todos", `{"content":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["error"] == "" {
		t.Fatalf("error body = %v", body)
	}
}

func TestListFilters(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b", "c")
	if _, err := repo.Toggle(context.Background(), ids[1]); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	tests := []struct {
		name string
		path string
		want []string
	}{
		{name: "all", path: "/todos", want: []string{"a", "b", "c"}},
		{name: "completed", path: "/todos?completed=true", want: []string{"b"}},
		{name: "pending", path: "/todos?completed=false", want: []string{"a", "c"}},
		{name: "paginated", path: "/todos?limit=2&offset=1", want: []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listContents(t, handler, tt.path)
			if len(got) != len(tt.want) {
				t.Fatalf("contents = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("contents = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestListReviewScope(t *testing.T) {
	repo, handler := newTestServer(t)

	todo, err := domain.NewTodo("scoped", strPtr("rev-7"))
	if err != nil {
		t.Fatalf("NewTodo: %v", err)
	}
	if err := repo.Create(context.Background(), todo); err != nil {
		t.Fatalf("Create: %v", err)
	}
	seed(t, repo, "unscoped")

	got := listContents(t, handler, "/todos?reviewId=rev-7")
	if len(got) != 1 || got[0] != "scoped" {
		t.Fatalf("scoped list = %v", got)
	}
}

func TestListRejectsBadParams(t *testing.T) {
	_, handler := newTestServer(t)

	for _, path := range []string{"/todos?completed=maybe", "/todos?limit=x", "/todos?offset=x"} {
		if rec := doJSON(t, handler, http.MethodGet, path, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b", "c")
	if _, err := repo.Toggle(context.Background(), ids[0]); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/todos/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stats := decode[domain.Stats](t, rec)
	if stats.Total != 3 || stats.Completed != 1 || stats.Pending != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestUpdatePartial(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "original")

	rec := doJSON(t, handler, http.MethodPatch, "/todos/"+ids[0], `{"completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	todo := decode[domain.Todo](t, rec)
	if todo.Content != "original" || !todo.Completed {
		t.Fatalf("todo = %+v, want content untouched and completed set", todo)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPatch, "/todos/nope", `{"completed":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestToggle(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a")

	rec := doJSON(t, handler, http.MethodPost, "/todos/"+ids[0]+"/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if todo := decode[domain.Todo](t, rec); !todo.Completed {
		t.Fatal("toggle did not complete the todo")
	}

	rec = doJSON(t, handler, http.MethodPost, "/todos/"+ids[0]+"/toggle", "")
	if todo := decode[domain.Todo](t, rec); todo.Completed {
		t.Fatal("second toggle did not revert")
	}
}

func TestDelete(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b")

	rec := doJSON(t, handler, http.MethodDelete, "/todos/"+ids[0], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode[map[string]bool](t, rec); !body["success"] {
		t.Fatalf("body = %v", body)
	}

	if got := listContents(t, handler, "/todos"); len(got) != 1 || got[0] != "b" {
		t.Fatalf("remaining = %v", got)
	}
}

func TestClearCompleted(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b", "c")
	for _, id := range ids[:2] {
		if _, err := repo.Toggle(context.Background(), id); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	// Fixed path must win over the {id} route.
	rec := doJSON(t, handler, http.MethodDelete, "/todos/completed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode[map[string]int64](t, rec); body["deleted"] != 2 {
		t.Fatalf("deleted = %d, want 2", body["deleted"])
	}

	if got := listContents(t, handler, "/todos"); len(got) != 1 || got[0] != "c" {
		t.Fatalf("remaining = %v", got)
	}
}

func TestReorder(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b", "c")

	body := fmt.Sprintf(`{"orderedIds":["%s","%s","%s"]}`, ids[1], ids[2], ids[0])
	rec := doJSON(t, handler, http.MethodPost, "/todos/reorder", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[map[string]int64](t, rec); resp["updated"] != 3 {
		t.Fatalf("updated = %d, want 3", resp["updated"])
	}

	if got := listContents(t, handler, "/todos"); strings.Join(got, ",") != "b,c,a" {
		t.Fatalf("order after reorder = %v", got)
	}
}

func TestReorderUnknownIDLeavesOrderIntact(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b")

	body := fmt.Sprintf(`{"orderedIds":["%s","ghost","%s"]}`, ids[1], ids[0])
	rec := doJSON(t, handler, http.MethodPost, "/todos/reorder", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	if got := listContents(t, handler, "/todos"); strings.Join(got, ",") != "a,b" {
		t.Fatalf("order changed on failed reorder: %v", got)
	}
}

func TestReorderRejectsEmptySequence(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/todos/reorder", `{"orderedIds":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMove(t *testing.T) {
	repo, handler := newTestServer(t)
	ids := seed(t, repo, "a", "b", "c")

	rec := doJSON(t, handler, http.MethodPost, "/todos/"+ids[0]+"/move", `{"position":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if todo := decode[domain.Todo](t, rec); todo.Position != 2 {
		t.Fatalf("position = %d, want 2", todo.Position)
	}

	if got := listContents(t, handler, "/todos"); strings.Join(got, ",") != "b,c,a" {
		t.Fatalf("order after move = %v", got)
	}
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMutationBroadcastsEvent(t *testing.T) {
	repo := memory.NewMemoryRepository()
	hub := NewHub(zap.NewNop(), time.Second, time.Minute)
	defer hub.Close()

	srv := httptest.NewServer(New(repo, hub, zap.NewNop()).Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp, err := http.Post(srv.URL+"/todos", "application/json", strings.NewReader(`{"content":"x"}`))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Type != eventTodos {
		t.Fatalf("event type = %q, want %q", event.Type, eventTodos)
	}
}

func TestAuthMiddleware(t *testing.T) {
	repo := memory.NewMemoryRepository()
	hub := NewHub(zap.NewNop(), time.Second, time.Minute)
	defer hub.Close()

	const secret = "test-secret"
	handler := New(repo, hub, zap.NewNop()).Router(AuthMiddleware(zap.NewNop(), secret))

	// Health stays reachable without credentials.
	rec := doJSON(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/todos", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", rec.Code)
	}

	token, err := auth.GenerateToken(secret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("authenticated list = %d: %s", recorder.Code, recorder.Body.String())
	}

	// Websocket clients carry the token as a query parameter instead.
	req = httptest.NewRequest(http.MethodGet, "/todos?access_token="+token, nil)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("query-token list = %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token list = %d, want 401", recorder.Code)
	}
}

func strPtr(s string) *string { return &s }
