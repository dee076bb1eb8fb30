package sparse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmbedQueryExplicitShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"indices":[3,17],"values":[0.5,0.25]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, true, testLogger())
	vector, err := client.EmbedQuery(context.Background(), "вопрос")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector.Indices) != 2 || vector.Indices[0] != 3 || vector.Indices[1] != 17 {
		t.Errorf("unexpected indices: %v", vector.Indices)
	}
	if vector.Values[0] != 0.5 || vector.Values[1] != 0.25 {
		t.Errorf("unexpected values: %v", vector.Values)
	}
}

func TestEmbedQueryTermWeightMap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"42":0.7,"7":0.3}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, true, testLogger())
	vector, err := client.EmbedQuery(context.Background(), "вопрос")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector.Indices) != 2 {
		t.Fatalf("expected 2 terms, got %v", vector.Indices)
	}
	if vector.Indices[0] != 7 || vector.Values[0] != 0.3 {
		t.Errorf("expected sorted term order, got %v %v", vector.Indices, vector.Values)
	}
}

func TestEmbedQueryServerErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, true, testLogger())
	vector, err := client.EmbedQuery(context.Background(), "вопрос")
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if !vector.IsEmpty() {
		t.Errorf("expected empty vector, got %v", vector)
	}
}

func TestEmbedQueryUnreachableServiceDegrades(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", true, testLogger())
	vector, err := client.EmbedQuery(context.Background(), "вопрос")
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if !vector.IsEmpty() {
		t.Errorf("expected empty vector, got %v", vector)
	}
}

func TestEmbedQueryDisabled(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, false, testLogger())
	vector, err := client.EmbedQuery(context.Background(), "вопрос")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vector.IsEmpty() {
		t.Errorf("expected empty vector when disabled, got %v", vector)
	}
	if called {
		t.Error("disabled client must not call the service")
	}
}

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"indices":[1],"values":[1.0]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, true, testLogger())
	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if v.IsEmpty() {
			t.Errorf("expected non-empty vector at %d", i)
		}
	}
}
