package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
)

type embedderStub struct {
	queryVector []float32
}

func (e *embedderStub) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (e *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	return e.queryVector, nil
}

func TestAddUpsertsDeterministicPoints(t *testing.T) {
	var upserted struct {
		Points []struct {
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
			if err := json.NewDecoder(r.Body).Decode(&upserted); err != nil {
				t.Fatalf("decode upsert: %v", err)
			}
			_, _ = w.Write([]byte(`{"result":{}}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	idx := New(server.URL, "docs", &embedderStub{})
	chunks := []domain.Chunk{
		{ID: "doc-1_0", DocumentID: "doc-1", Ordinal: 0, Content: "alpha", Metadata: map[string]string{"document_name": "A"}},
		{ID: "doc-1_1", DocumentID: "doc-1", Ordinal: 1, Content: "beta"},
	}
	if err := idx.Add(context.Background(), "doc-1", chunks); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(upserted.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(upserted.Points))
	}
	if upserted.Points[0].ID != pointID("doc-1_0") {
		t.Fatalf("point id not deterministic: %s", upserted.Points[0].ID)
	}
	if upserted.Points[0].Payload["doc_id"] != "doc-1" || upserted.Points[0].Payload["text"] != "alpha" {
		t.Fatalf("unexpected payload %v", upserted.Points[0].Payload)
	}
	metadata, _ := upserted.Points[0].Payload["metadata"].(map[string]any)
	if metadata["document_name"] != "A" {
		t.Fatalf("metadata not stored: %v", upserted.Points[0].Payload)
	}
}

func TestSearchFiltersAndConvertsScores(t *testing.T) {
	var searchReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&searchReq); err != nil {
			t.Fatalf("decode search: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.9,"payload":{"chunk_id":"doc-1_0","text":"alpha","metadata":{"page_number":"2"}}}
		]}`))
	}))
	defer server.Close()

	idx := New(server.URL, "docs", &embedderStub{queryVector: []float32{1, 2}})
	results, err := idx.Search(context.Background(), "q", []string{"doc-1", "doc-2"}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Distance != 1-0.9 {
		t.Fatalf("score not converted to distance: %v", results[0].Distance)
	}
	if results[0].Metadata["page_number"] != "2" {
		t.Fatalf("metadata lost: %+v", results[0])
	}

	filter, _ := searchReq["filter"].(map[string]any)
	must, _ := filter["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("expected doc filter, got %v", searchReq["filter"])
	}
}

func TestDeleteSendsDocumentFilter(t *testing.T) {
	var deleteReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/delete" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&deleteReq); err != nil {
			t.Fatalf("decode delete: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer server.Close()

	idx := New(server.URL, "docs", &embedderStub{})
	if err := idx.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleteReq["filter"] == nil {
		t.Fatalf("expected filter in delete request")
	}
}

func TestGetScrollsInOrdinalOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/scroll" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"payload":{"chunk_id":"doc-1_1","ordinal":1,"text":"beta"}},
			{"payload":{"chunk_id":"doc-1_0","ordinal":0,"text":"alpha"}}
		]}}`))
	}))
	defer server.Close()

	idx := New(server.URL, "docs", &embedderStub{})
	chunks, err := idx.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(chunks) != 2 || chunks[0].ID != "doc-1_0" || chunks[1].ID != "doc-1_1" {
		t.Fatalf("scroll results not ordered: %+v", chunks)
	}
}
