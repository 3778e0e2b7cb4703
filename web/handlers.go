package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spindleworks/spindle/app"
	"github.com/spindleworks/spindle/domain/manifest"
	"github.com/spindleworks/spindle/emit"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 4 << 20

// resolveRequest is the wire form of resolve and convert requests: a
// locator or an inline manifest, plus options.
type resolveRequest struct {
	Locator  string          `json:"locator,omitempty"`
	Manifest json.RawMessage `json:"manifest,omitempty"`
	Options  resolveOptions  `json:"options"`
}

type resolveOptions struct {
	SkipCache bool `json:"skipCache,omitempty"`
	MaxDepth  int  `json:"maxDepth,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResolveManifest resolves a manifest and returns it as JSON.
func (h *Handler) ResolveManifest(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeResolveRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// ValidateManifest checks a manifest body for structural
// well-formedness without resolving it.
func (h *Handler) ValidateManifest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, &manifest.StructuralError{Reason: "unreadable body"})
		return
	}

	var problems []string
	m, err := manifest.Parse(body)
	if err != nil {
		problems = append(problems, err.Error())
	} else if err := m.Validate(h.maxDepth); err != nil {
		problems = append(problems, err.Error())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  len(problems) == 0,
		"errors": problems,
	})
}

// ConvertManifest resolves a manifest and emits it in the requested
// format.
func (h *Handler) ConvertManifest(w http.ResponseWriter, r *http.Request) {
	emitter, err := emit.ForFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.writeError(w, r, &manifest.StructuralError{Reason: err.Error()})
		return
	}

	req, err := h.decodeResolveRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resolved, err := h.resolver.Resolve(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	file, err := emitter.Emit(resolved)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, file.Content)
}

func (h *Handler) decodeResolveRequest(r *http.Request) (app.Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return app.Request{}, &manifest.StructuralError{Reason: "unreadable body"}
	}

	var wire resolveRequest
	if err := json.Unmarshal(body, &wire); err != nil {
		return app.Request{}, &manifest.StructuralError{Reason: fmt.Sprintf("invalid request body: %v", err)}
	}

	req := app.Request{
		Locator: wire.Locator,
		Options: app.Options{
			SkipCache: wire.Options.SkipCache,
			MaxDepth:  wire.Options.MaxDepth,
		},
	}
	if len(wire.Manifest) > 0 {
		// JSON is a YAML subset, so the manifest parser handles both.
		inline, err := manifest.Parse(wire.Manifest)
		if err != nil {
			return app.Request{}, err
		}
		req.Inline = inline
	}
	return req, nil
}

// writeError maps domain errors onto HTTP statuses: malformed input is
// the caller's fault, unresolvable references are unprocessable, fetch
// failures are an upstream problem.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func classify(err error) (int, string) {
	var (
		structural *manifest.StructuralError
		missing    *manifest.MissingReferenceError
		circular   *manifest.CircularReferenceError
		mismatch   *manifest.VersionMismatchError
		load       *manifest.LoadError
	)
	switch {
	case errors.As(err, &structural):
		return http.StatusBadRequest, "structural"
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, "missing_reference"
	case errors.As(err, &circular):
		return http.StatusUnprocessableEntity, "circular_reference"
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, "version_mismatch"
	case errors.As(err, &load):
		return http.StatusBadGateway, "load"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
