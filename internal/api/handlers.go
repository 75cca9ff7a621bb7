package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/pubchemscan/internal/database"
	"github.com/nao1215/pubchemscan/internal/pubchem"
	"github.com/nao1215/pubchemscan/internal/report"
)

// handleGetCompound looks up one compound.
func (s *Server) handleGetCompound(w http.ResponseWriter, r *http.Request) {
	cid, ok := parseCID(w, r)
	if !ok {
		return
	}

	lookupFn := s.compounds.Lookup
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		lookupFn = s.compounds.Refresh
	}

	lookup, err := lookupFn(r.Context(), cid)
	if err != nil {
		status := statusFor(err)
		s.log.Warn("lookup failed", "cid", cid, "status", status, "error", err)
		jsonError(w, err.Error(), status)
		return
	}

	var writer report.Writer
	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		writer = report.NewFullJSONWriter(w, s.version)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		writer = report.NewMarkdownWriter(w)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		writer = report.NewSimpleWriter(w)
	default:
		jsonError(w, "format must be json, markdown or text", http.StatusBadRequest)
		return
	}

	if _, err := writer.Write(lookup); err != nil {
		s.log.Error("failed to write response", "cid", cid, "error", err)
	}
}

// compoundSummary is the JSON shape of a cached compound.
type compoundSummary struct {
	CID              int       `json:"cid"`
	Title            string    `json:"title,omitempty"`
	MolecularFormula string    `json:"molecularFormula"`
	FetchedAt        time.Time `json:"fetched_at"`
	Lookups          int       `json:"lookups"`
}

// handleListCompounds lists cached compounds.
func (s *Server) handleListCompounds(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}

	summaries, err := s.catalog.ListCompounds(r.Context())
	if err != nil {
		jsonError(w, "failed to list compounds: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]compoundSummary, 0, len(summaries))
	for _, c := range summaries {
		out = append(out, compoundSummary(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"compounds": out})
}

// historyEntry is the JSON shape of one stored lookup.
type historyEntry struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	FetchedAt time.Time `json:"fetched_at"`
}

// handleHistory lists the stored lookups of one compound.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	cid, ok := parseCID(w, r)
	if !ok {
		return
	}

	history, err := s.catalog.GetLookupHistory(r.Context(), cid)
	if err != nil {
		jsonError(w, "failed to read history: "+err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]historyEntry, 0, len(history))
	for _, h := range history {
		entries = append(entries, historyEntry{ID: h.ID, Hash: h.Hash, FetchedAt: h.FetchedAt})
	}

	changed := false
	if len(entries) >= 2 {
		changed = entries[0].Hash != entries[1].Hash
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cid":     cid,
		"lookups": entries,
		"changed": changed,
	})
}

// relationEntry is the JSON shape of one reverse lookup hit.
type relationEntry struct {
	CID   int    `json:"cid"`
	Type  string `json:"type"`
	Group int    `json:"group"`
}

// handleRelated finds cached compounds whose related records contain an identifier.
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		jsonError(w, "identifier must be numeric", http.StatusBadRequest)
		return
	}

	relType := r.URL.Query().Get("type")
	switch relType {
	case "", database.RelationParent, database.RelationRelated, database.RelationSubstance:
	default:
		jsonError(w, "type must be parent, related or substance", http.StatusBadRequest)
		return
	}

	relations, err := s.catalog.FindReferencing(r.Context(), id, relType)
	if err != nil {
		jsonError(w, "failed to query relations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]relationEntry, 0, len(relations))
	for _, rel := range relations {
		out = append(out, relationEntry{CID: rel.CID, Type: rel.Type, Group: rel.Group})
	}
	writeJSON(w, http.StatusOK, map[string]any{"identifier": id, "referenced_by": out})
}

func (s *Server) requireCatalog(w http.ResponseWriter) bool {
	if s.catalog == nil {
		jsonError(w, "cache is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// parseCID reads the {cid} URL parameter, writing a 400 when it is invalid.
func parseCID(w http.ResponseWriter, r *http.Request) (int, bool) {
	cid, err := strconv.Atoi(chi.URLParam(r, "cid"))
	if err != nil || cid <= 0 {
		jsonError(w, pubchem.ErrInvalidCID.Error(), http.StatusBadRequest)
		return 0, false
	}
	return cid, true
}

// statusFor maps a lookup error to an HTTP status.
func statusFor(err error) int {
	var (
		te *pubchem.TransportError
		se *pubchem.SchemaError
		ee *pubchem.ExtractionError
	)
	switch {
	case errors.Is(err, pubchem.ErrInvalidCID):
		return http.StatusBadRequest
	case errors.As(err, &se), errors.As(err, &ee):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &te):
		if te.NotFound() {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
