package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pubchemscan/internal/database"
	"github.com/nao1215/pubchemscan/internal/model"
	"github.com/nao1215/pubchemscan/internal/pubchem"
)

// fakeCompounds serves fixed lookups and errors by CID.
type fakeCompounds struct {
	errs      map[int]error
	lookups   atomic.Int32
	refreshes atomic.Int32
}

func (f *fakeCompounds) result(cid int) (*model.Lookup, error) {
	if err, ok := f.errs[cid]; ok {
		return nil, err
	}
	r := model.NewCompoundResult()
	r.MolecularFormula = "C9H8O4"
	return &model.Lookup{CID: cid, Title: "Aspirin", Result: r}, nil
}

func (f *fakeCompounds) Lookup(_ context.Context, cid int) (*model.Lookup, error) {
	f.lookups.Add(1)
	return f.result(cid)
}

func (f *fakeCompounds) Refresh(_ context.Context, cid int) (*model.Lookup, error) {
	f.refreshes.Add(1)
	return f.result(cid)
}

// fakeCatalog returns canned catalog data.
type fakeCatalog struct {
	lastType string
}

func (f *fakeCatalog) ListCompounds(context.Context) ([]database.CompoundSummary, error) {
	return []database.CompoundSummary{{CID: 2244, Title: "Aspirin", MolecularFormula: "C9H8O4", Lookups: 2}}, nil
}

func (f *fakeCatalog) GetLookupHistory(_ context.Context, cid int) ([]database.LookupMetadata, error) {
	now := time.Now()
	return []database.LookupMetadata{
		{ID: 2, CID: cid, Hash: "b", FetchedAt: now},
		{ID: 1, CID: cid, Hash: "a", FetchedAt: now.Add(-time.Hour)},
	}, nil
}

func (f *fakeCatalog) FindReferencing(_ context.Context, identifier, relType string) ([]database.Relation, error) {
	f.lastType = relType
	return []database.Relation{{CID: 2244, Type: database.RelationRelated, Group: 0, Identifier: identifier}}, nil
}

func newTestServer(compounds Compounds, catalog Catalog) *Server {
	return NewServer(compounds, catalog, slog.New(slog.NewTextHandler(io.Discard, nil)), "test")
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestHealth tests the health endpoint.
func TestHealth(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer(&fakeCompounds{}, nil), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, expected %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

// TestGetCompound tests the lookup endpoint and its error mapping.
func TestGetCompound(t *testing.T) {
	t.Parallel()

	t.Run("returns envelope", func(t *testing.T) {
		t.Parallel()

		rec := get(t, newTestServer(&fakeCompounds{}, nil), "/api/compounds/2244")
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, expected %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Version string       `json:"version"`
			Lookup  model.Lookup `json:"lookup"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body.Version != "test" || body.Lookup.CID != 2244 || body.Lookup.Result.MolecularFormula != "C9H8O4" {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("refresh bypasses cache", func(t *testing.T) {
		t.Parallel()

		compounds := &fakeCompounds{}
		srv := newTestServer(compounds, nil)
		get(t, srv, "/api/compounds/1?refresh=true")
		get(t, srv, "/api/compounds/1")
		if compounds.refreshes.Load() != 1 || compounds.lookups.Load() != 1 {
			t.Errorf("got %d refreshes and %d lookups, expected 1 and 1",
				compounds.refreshes.Load(), compounds.lookups.Load())
		}
	})

	t.Run("markdown format", func(t *testing.T) {
		t.Parallel()

		rec := get(t, newTestServer(&fakeCompounds{}, nil), "/api/compounds/2244?format=markdown")
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, expected %d", rec.Code, http.StatusOK)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") {
			t.Errorf("got content type %q", rec.Header().Get("Content-Type"))
		}
		if !strings.Contains(rec.Body.String(), "# Aspirin (CID 2244)") {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		rec := get(t, newTestServer(&fakeCompounds{}, nil), "/api/compounds/2244?format=xml")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, expected %d", rec.Code, http.StatusBadRequest)
		}
	})

	compounds := &fakeCompounds{errs: map[int]error{
		404: &pubchem.TransportError{CID: 404, StatusCode: http.StatusNotFound, Err: errors.New("not found")},
		422: &pubchem.SchemaError{CID: 422, Missing: pubchem.SectionNamesAndIdentifiers},
		423: &pubchem.ExtractionError{CID: 423, Field: "molecularFormula"},
		502: &pubchem.TransportError{CID: 502, StatusCode: http.StatusServiceUnavailable, Err: errors.New("unavailable")},
		504: &pubchem.TransportError{CID: 504, Err: context.DeadlineExceeded},
		500: errors.New("unexpected"),
	}}
	srv := newTestServer(compounds, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/compounds/abc", http.StatusBadRequest},
		{"/api/compounds/0", http.StatusBadRequest},
		{"/api/compounds/-1", http.StatusBadRequest},
		{"/api/compounds/404", http.StatusNotFound},
		{"/api/compounds/422", http.StatusUnprocessableEntity},
		{"/api/compounds/423", http.StatusUnprocessableEntity},
		{"/api/compounds/502", http.StatusBadGateway},
		{"/api/compounds/504", http.StatusGatewayTimeout},
		{"/api/compounds/500", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rec := get(t, srv, tt.path)
			if rec.Code != tt.want {
				t.Errorf("got status %d, expected %d", rec.Code, tt.want)
			}
			if !bytes.Contains(rec.Body.Bytes(), []byte(`"error"`)) {
				t.Errorf("expected error body, got %s", rec.Body.String())
			}
		})
	}
}

// TestCatalogRoutes tests the cache-backed routes.
func TestCatalogRoutes(t *testing.T) {
	t.Parallel()

	t.Run("disabled cache", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(&fakeCompounds{}, nil)
		for _, path := range []string{"/api/compounds", "/api/compounds/1/history", "/api/related/1"} {
			if rec := get(t, srv, path); rec.Code != http.StatusServiceUnavailable {
				t.Errorf("%s: got status %d, expected %d", path, rec.Code, http.StatusServiceUnavailable)
			}
		}
	})

	t.Run("list compounds", func(t *testing.T) {
		t.Parallel()

		rec := get(t, newTestServer(&fakeCompounds{}, &fakeCatalog{}), "/api/compounds")
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, expected %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), `"molecularFormula":"C9H8O4"`) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("history reports change", func(t *testing.T) {
		t.Parallel()

		rec := get(t, newTestServer(&fakeCompounds{}, &fakeCatalog{}), "/api/compounds/2244/history")
		var body struct {
			Lookups []historyEntry `json:"lookups"`
			Changed bool           `json:"changed"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(body.Lookups) != 2 || !body.Changed {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("related lookup", func(t *testing.T) {
		t.Parallel()

		catalog := &fakeCatalog{}
		rec := get(t, newTestServer(&fakeCompounds{}, catalog), "/api/related/9001?type=related")
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, expected %d", rec.Code, http.StatusOK)
		}
		if catalog.lastType != database.RelationRelated {
			t.Errorf("got type %q, expected %q", catalog.lastType, database.RelationRelated)
		}
		if !strings.Contains(rec.Body.String(), `"cid":2244`) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("related rejects bad input", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(&fakeCompounds{}, &fakeCatalog{})
		for _, path := range []string{"/api/related/abc", "/api/related/1?type=bogus"} {
			if rec := get(t, srv, path); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: got status %d, expected %d", path, rec.Code, http.StatusBadRequest)
			}
		}
	})
}

// TestRequestLogger tests that requests are logged with their status.
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	srv := NewServer(&fakeCompounds{}, nil, logger, "test")

	get(t, srv, "/api/compounds/abc")

	out := buf.String()
	if !strings.Contains(out, "status=400") || !strings.Contains(out, "path=/api/compounds/abc") {
		t.Errorf("unexpected log output: %s", out)
	}
}
