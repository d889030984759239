package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"xdao.co/zkview/model"
)

// Backend is a fake proof service:
//
//	POST {URL}/api/proofs
//	GET  {URL}/api/proofs/by-image/{cid}
//	GET  {URL}/api/proofs/{id}
//	GET  {URL}/api/proofs/{id}/verify
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	records  []model.ProofRecord
	created  []model.ProofRequest
	failures map[string]int
	headers  []http.Header
}

func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{failures: map[string]int{}}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

// Add stores a record as-is.
func (b *Backend) Add(rec model.ProofRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, rec)
}

// Fail makes every request whose path has the given suffix answer status.
func (b *Backend) Fail(pathSuffix string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[pathSuffix] = status
}

// Created returns the accepted proof requests.
func (b *Backend) Created() []model.ProofRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ProofRequest(nil), b.created...)
}

// Headers returns the request headers of every GET served.
func (b *Backend) Headers() []http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]http.Header(nil), b.headers...)
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	for suffix, status := range b.failures {
		if strings.HasSuffix(r.URL.Path, suffix) {
			b.mu.Unlock()
			http.Error(w, http.StatusText(status), status)
			return
		}
	}
	if r.Method == http.MethodGet {
		b.headers = append(b.headers, r.Header.Clone())
	}
	b.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/api/proofs")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case rest == "" && r.Method == http.MethodPost:
		b.create(w, r)
	case strings.HasPrefix(rest, "/by-image/") && r.Method == http.MethodGet:
		image := strings.TrimPrefix(rest, "/by-image/")
		b.mu.Lock()
		out := []model.ProofRecord{}
		for _, rec := range b.records {
			if rec.ImageCID == image {
				out = append(out, rec)
			}
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	case strings.HasSuffix(rest, "/verify") && r.Method == http.MethodGet:
		rec, ok := b.find(strings.TrimSuffix(strings.TrimPrefix(rest, "/"), "/verify"))
		if !ok || rec.Status != model.StatusCompleted {
			http.Error(w, "Proof Session not Found", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"verified": true, "result": 42})
	case strings.Count(rest, "/") == 1 && r.Method == http.MethodGet:
		rec, ok := b.find(strings.TrimPrefix(rest, "/"))
		if !ok {
			http.Error(w, "Proof Session not Found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	default:
		http.NotFound(w, r)
	}
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	var req model.ProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageCID == "" {
		http.Error(w, "invalid payload", http.StatusUnprocessableEntity)
		return
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.created = append(b.created, req)
	b.records = append(b.records, model.ProofRecord{
		ID:        model.RecordID("session:" + strings.ReplaceAll(id, "-", "")),
		SessionID: id,
		ImageCID:  req.ImageCID,
		Status:    model.StatusPreparing,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (b *Backend) find(sessionID string) (model.ProofRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if rec.SessionID == sessionID {
			return rec, true
		}
	}
	return model.ProofRecord{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
