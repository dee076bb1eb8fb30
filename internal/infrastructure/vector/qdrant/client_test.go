package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
)

func TestSearchDenseSendsNamedVector(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs_chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("expected api-key header, got %q", r.Header.Get("api-key"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		io.WriteString(w, `{"result":[{"id":"p1","score":0.9,"payload":{"url":"https://docs.example.ru/guide","title":"Гид","page_type":"guide"}}]}`)
	}))
	defer server.Close()

	client := New(server.URL, "docs_chunks", "secret", 128)
	hits, err := client.SearchDense(context.Background(), []float32{0.1, 0.2}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector, ok := captured["vector"].(map[string]any)
	if !ok || vector["name"] != "dense" {
		t.Errorf("expected named dense vector, got %v", captured["vector"])
	}
	params, ok := captured["params"].(map[string]any)
	if !ok || params["hnsw_ef"] != float64(128) {
		t.Errorf("expected hnsw_ef search param, got %v", captured["params"])
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != "p1" || hits[0].Score != 0.9 {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
	if hits[0].Payload.PageType != "guide" {
		t.Errorf("payload not mapped: %+v", hits[0].Payload)
	}
}

func TestSearchSparseUsesQueryEndpoint(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs_chunks/points/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		io.WriteString(w, `{"result":{"points":[{"id":"p2","score":3.1,"payload":{"url":"https://docs.example.ru/faq"}}]}}`)
	}))
	defer server.Close()

	client := New(server.URL, "docs_chunks", "", 0)
	hits, err := client.SearchSparse(context.Background(), domain.SparseVector{Indices: []uint32{5}, Values: []float32{0.7}}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["using"] != "sparse" {
		t.Errorf("expected sparse index selector, got %v", captured["using"])
	}
	if len(hits) != 1 || hits[0].ID != "p2" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchSparseEmptyVectorSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty sparse vector")
	}))
	defer server.Close()

	client := New(server.URL, "docs_chunks", "", 0)
	hits, err := client.SearchSparse(context.Background(), domain.SparseVector{}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestUpsertChunksDeterministicIDs(t *testing.T) {
	var upserts []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs_chunks" {
			io.WriteString(w, `{"result":true}`)
			return
		}
		var body struct {
			Points []map[string]any `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad upsert body: %v", err)
		}
		upserts = append(upserts, body.Points...)
		io.WriteString(w, `{"result":{"status":"completed"}}`)
	}))
	defer server.Close()

	client := New(server.URL, "docs_chunks", "", 0)
	chunks := []domain.Chunk{
		{Text: "первый чанк", Payload: domain.PassagePayload{URL: "https://docs.example.ru/a", PageType: "guide"}},
		{Text: "второй чанк", Payload: domain.PassagePayload{URL: "https://docs.example.ru/a", PageType: "guide"}},
	}
	dense := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	sparse := []domain.SparseVector{{Indices: []uint32{1}, Values: []float32{0.5}}, {}}

	if err := client.UpsertChunks(context.Background(), chunks, dense, sparse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.UpsertChunks(context.Background(), chunks[:1], dense[:1], sparse[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(upserts) != 3 {
		t.Fatalf("expected 3 points across upserts, got %d", len(upserts))
	}
	if upserts[0]["id"] != upserts[2]["id"] {
		t.Error("expected identical text to produce the same point id")
	}
	if upserts[0]["id"] == upserts[1]["id"] {
		t.Error("expected distinct texts to produce distinct point ids")
	}

	payload := upserts[0]["payload"].(map[string]any)
	if payload["hash"] != upserts[0]["id"] {
		t.Errorf("expected hash payload to equal point id, got %v vs %v", payload["hash"], upserts[0]["id"])
	}

	vector0 := upserts[0]["vector"].(map[string]any)
	if _, ok := vector0["sparse"]; !ok {
		t.Error("expected sparse vector attached to first point")
	}
	vector1 := upserts[1]["vector"].(map[string]any)
	if _, ok := vector1["sparse"]; ok {
		t.Error("expected no sparse vector for empty sparse input")
	}
}

func TestUpsertChunksEnsuresCollectionWithSparseIndex(t *testing.T) {
	var collectionBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docs_chunks" {
			if err := json.NewDecoder(r.Body).Decode(&collectionBody); err != nil {
				t.Fatalf("bad collection body: %v", err)
			}
			io.WriteString(w, `{"result":true}`)
			return
		}
		io.WriteString(w, `{"result":{"status":"completed"}}`)
	}))
	defer server.Close()

	client := New(server.URL, "docs_chunks", "", 0)
	chunks := []domain.Chunk{{Text: "чанк"}}
	if err := client.UpsertChunks(context.Background(), chunks, [][]float32{{0.1, 0.2, 0.3}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vectors := collectionBody["vectors"].(map[string]any)
	denseCfg := vectors["dense"].(map[string]any)
	if denseCfg["size"] != float64(3) {
		t.Errorf("expected vector size 3, got %v", denseCfg["size"])
	}
	if _, ok := collectionBody["sparse_vectors"].(map[string]any)["sparse"]; !ok {
		t.Error("expected sparse vector index in collection schema")
	}
}

func TestSearchDenseServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "docs_chunks", "", 0)
	if _, err := client.SearchDense(context.Background(), []float32{0.1}, 20); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
