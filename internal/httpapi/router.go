// Package httpapi exposes the tablebase probe surface over HTTP.
package httpapi

import (
	"net/http"
	"net/http/pprof"

	"github.com/rs/zerolog"

	"github.com/freeeve/tablebase/internal/chess"
	"github.com/freeeve/tablebase/internal/tb"
)

// Handler serves probes from a shared Tablebases handle. Probes only read
// the handle; every request parses its own position.
type Handler struct {
	tbs *tb.Tablebases
	log zerolog.Logger
}

// NewRouter creates the HTTP router for the probe server.
func NewRouter(log zerolog.Logger, tbs *tb.Tablebases) http.Handler {
	h := &Handler{tbs: tbs, log: log}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(h.health))
	mux.Handle("/readyz", http.HandlerFunc(h.health))
	mux.Handle("/v1/probe", http.HandlerFunc(h.probe))
	mux.Handle("/v1/root", http.HandlerFunc(h.root))
	mux.Handle("/v1/stats", http.HandlerFunc(h.stats))

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return CORS(RequestID(AccessLog(log, mux)))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"tables":          h.tbs.Size(),
		"max_cardinality": h.tbs.MaxCardinality(),
	})
}

func (h *Handler) position(w http.ResponseWriter, r *http.Request) (*chess.Position, bool) {
	fen := r.URL.Query().Get("fen")
	if fen == "" {
		writeError(w, http.StatusBadRequest, "missing fen parameter")
		return nil, false
	}
	pos, err := chess.FromFEN(fen)
	if err != nil {
		h.log.Debug().Err(err).Str("fen", fen).Msg("rejected fen")
		writeError(w, http.StatusBadRequest, "invalid fen")
		return nil, false
	}
	return pos, true
}

func (h *Handler) probe(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.position(w, r)
	if !ok {
		return
	}

	var state tb.ProbeState
	wdl := h.tbs.ProbeWDL(pos, &state)
	resp := ProbeResponse{FEN: pos.FEN(), OK: state != tb.Fail}
	if resp.OK {
		resp.WDL = wdl.String()
		resp.DTZ = h.tbs.ProbeDTZ(pos, &state)
		resp.OK = state != tb.Fail
	}

	writeJSON(w, resp)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	pos, ok := h.position(w, r)
	if !ok {
		return
	}

	rms := tb.NewRootMoves(pos)
	used := "dtz"
	if !h.tbs.RootProbe(pos, rms) {
		// Fall back to the WDL tables when DTZ files are missing.
		used = "wdl"
		if !h.tbs.RootProbeWDL(pos, rms) {
			writeJSON(w, RootResponse{FEN: pos.FEN(), OK: false})
			return
		}
	}

	resp := RootResponse{FEN: pos.FEN(), OK: true, Tables: used}
	for _, rm := range rms {
		resp.Moves = append(resp.Moves, RootMoveResponse{
			UCI:     rm.Move.String(),
			TBRank:  rm.TBRank,
			TBScore: rm.TBScore,
		})
	}

	writeJSON(w, resp)
}
