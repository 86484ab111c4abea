package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caravela-labs/tenantdash/internal/store"
)

// changeEvent is one server-sent watch notification. A nil record means the
// document was deleted.
type changeEvent struct {
	ID     string        `json:"id"`
	Record *store.Record `json:"record"`
}

// WatchCollection streams live changes for a collection (or, with ?id=, a
// single document) as server-sent events. The stream ends when the client
// disconnects or the request context expires.
func (h *Handlers) WatchCollection(w http.ResponseWriter, r *http.Request) {
	st := GetTenantState(r.Context())
	collection := chi.URLParam(r, "collection")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Buffered bridge between the hub callback and the write loop. A slow
	// client drops events rather than stalling publishers.
	events := make(chan changeEvent, 32)

	var cancel store.CancelFunc
	var err error
	if id := r.URL.Query().Get("id"); id != "" {
		cancel, err = st.Client.WatchOne(collection, id, func(rec *store.Record) {
			select {
			case events <- changeEvent{ID: id, Record: rec}:
			default:
			}
		})
	} else {
		var q store.Query
		q, err = queryFromRequest(r)
		if err != nil {
			AddError(r.Context(), err)
			writeErrorMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		cancel, err = st.Client.WatchMany(collection, q, func(id string, rec *store.Record) {
			select {
			case events <- changeEvent{ID: id, Record: rec}:
			default:
			}
		})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
