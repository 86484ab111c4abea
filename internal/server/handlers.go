package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/caravela-labs/tenantdash/internal/section"
	"github.com/caravela-labs/tenantdash/internal/store"
	"github.com/caravela-labs/tenantdash/internal/store/blob"
)

// maxUploadBytes caps blob uploads and record bodies.
const maxUploadBytes = 10 << 20

// Handlers carries the per-server dependencies the route handlers need
// beyond the request's tenant state.
type Handlers struct {
	sections *section.Registry
	blobs    *blob.Store
}

// NewHandlers builds the handler set.
func NewHandlers(sections *section.Registry, blobs *blob.Store) *Handlers {
	return &Handlers{sections: sections, blobs: blobs}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps store and section sentinels to HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyExists):
		writeErrorMessage(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrUnresolvedTenant):
		writeErrorMessage(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, store.ErrUnavailable):
		writeErrorMessage(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, section.ErrUnknownSection):
		writeErrorMessage(w, http.StatusNotFound, "unknown section")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// GetTenantInfo returns the resolved tenant's public profile: identity,
// branding, and feature flags. API keys and store tokens never leave the
// server.
func (h *Handlers) GetTenantInfo(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           st.Config.Identifier,
		"display_name": st.Config.DisplayName,
		"branding":     st.Config.Branding,
		"features":     st.Config.Features,
	})
}

// GetSection loads one dashboard section's content.
func (h *Handlers) GetSection(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	kind, err := section.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if u := st.Session.Current().CurrentUser; u != nil && u.Role != "" && !section.Allowed(u.Role, kind) {
		writeErrorMessage(w, http.StatusForbidden, "section not available for role")
		return
	}

	content, err := h.sections.Load(r.Context(), kind, st.Session, st.Client)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// queryFromRequest builds a store query from URL parameters: repeated
// where=field:op:value terms plus order_by, desc, and limit.
func queryFromRequest(r *http.Request) (store.Query, error) {
	var q store.Query
	params := r.URL.Query()

	for _, term := range params["where"] {
		parts := strings.SplitN(term, ":", 3)
		if len(parts) != 3 {
			return q, fmt.Errorf("malformed where term %q, want field:op:value", term)
		}
		op := store.Op(parts[1])
		switch op {
		case store.OpEq, store.OpNeq, store.OpGt, store.OpGte, store.OpLt, store.OpLte:
		default:
			return q, fmt.Errorf("unsupported operator %q", parts[1])
		}
		q.Filters = append(q.Filters, store.Filter{
			Field: parts[0],
			Op:    op,
			Value: parseFilterValue(parts[2]),
		})
	}

	q.OrderBy = params.Get("order_by")
	q.Desc = params.Get("desc") == "true"
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
		q.Limit = limit
	}
	return q, nil
}

// parseFilterValue interprets a where-term value: numbers and booleans get
// their native types, everything else stays a string.
func parseFilterValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// ListRecords returns a snapshot of one collection.
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	q, err := queryFromRequest(r)
	if err != nil {
		AddError(r.Context(), err)
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := st.Client.GetMany(r.Context(), chi.URLParam(r, "collection"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// CreateRecord stores a new document from the JSON body.
func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	fields, err := decodeFields(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := st.Client.Create(r.Context(), chi.URLParam(r, "collection"), fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetRecord fetches one document; an absent id is 404.
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	rec, err := st.Client.GetOne(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rec == nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateRecord merges the JSON body into an existing document.
func (h *Handlers) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	fields, err := decodeFields(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := st.Client.Update(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord removes a document. Deleting an absent id still returns 204.
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	if err := st.Client.Remove(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeFields(r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	var fields map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}
	return fields, nil
}

// UploadBlob stores a binary asset under the wildcard path and returns its
// public URL.
func (h *Handlers) UploadBlob(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	name := chi.URLParam(r, "*")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	url, err := st.Client.UploadBlob(r.Context(), name, data, blob.Metadata{
		ContentType: r.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// DeleteBlob removes a binary asset. Idempotent.
func (h *Handlers) DeleteBlob(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())

	if err := st.Client.DeleteBlob(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeBlob serves a stored asset at its public URL. This route sits outside
// the tenant middleware: blob URLs carry their tenant explicitly.
func (h *Handlers) ServeBlob(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	name := chi.URLParam(r, "*")

	data, meta, err := h.blobs.Get(tenantID, name)
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
