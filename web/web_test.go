package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/app"
	"github.com/spindleworks/spindle/domain/manifest"
	"github.com/spindleworks/spindle/web"
)

type stubResolver struct {
	lastReq app.Request
	m       *manifest.Manifest
	err     error
}

func (s *stubResolver) Resolve(_ context.Context, req app.Request) (*manifest.Manifest, error) {
	s.lastReq = req
	return s.m, s.err
}

func newServer(t *testing.T, resolver *stubResolver) *httptest.Server {
	t.Helper()
	h := web.NewHandler(web.Deps{
		Resolver: resolver,
		Logger:   zerolog.Nop(),
		MaxDepth: 32,
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func resolvedPage() *manifest.Manifest {
	return &manifest.Manifest{
		Metadata: manifest.Metadata{Title: "Landing"},
		Structure: &manifest.Node{
			Tag:   "div",
			Props: manifest.PropertyBag{Text: "hello"},
		},
	}
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &stubResolver{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestResolve_ByLocator(t *testing.T) {
	resolver := &stubResolver{m: resolvedPage()}
	srv := newServer(t, resolver)

	resp, err := http.Post(srv.URL+"/api/resolve", "application/json",
		strings.NewReader(`{"locator": "page.yaml", "options": {"skipCache": true}}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resolver.lastReq.Locator != "page.yaml" {
		t.Errorf("locator = %q", resolver.lastReq.Locator)
	}
	if !resolver.lastReq.Options.SkipCache {
		t.Error("skipCache not forwarded")
	}

	var body struct {
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Metadata.Title != "Landing" {
		t.Errorf("title = %q", body.Metadata.Title)
	}
}

func TestResolve_InlineManifest(t *testing.T) {
	resolver := &stubResolver{m: resolvedPage()}
	srv := newServer(t, resolver)

	resp, err := http.Post(srv.URL+"/api/resolve", "application/json",
		strings.NewReader(`{"manifest": {"metadata": {"title": "Inline"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resolver.lastReq.Inline == nil {
		t.Fatal("inline manifest not forwarded")
	}
	if resolver.lastReq.Inline.Metadata.Title != "Inline" {
		t.Errorf("title = %q", resolver.lastReq.Inline.Metadata.Title)
	}
}

func TestResolve_MalformedBody(t *testing.T) {
	srv := newServer(t, &stubResolver{})

	resp, err := http.Post(srv.URL+"/api/resolve", "application/json",
		strings.NewReader(`{not json`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestResolve_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{
			name:   "structural",
			err:    &manifest.StructuralError{Reason: "bad"},
			status: http.StatusBadRequest,
			kind:   "structural",
		},
		{
			name:   "missing reference",
			err:    &manifest.MissingReferenceError{Kind: manifest.RefModule, Name: "nav"},
			status: http.StatusUnprocessableEntity,
			kind:   "missing_reference",
		},
		{
			name:   "cycle",
			err:    &manifest.CircularReferenceError{Kind: manifest.RefTemplate, Chain: []string{"a", "b", "a"}},
			status: http.StatusUnprocessableEntity,
			kind:   "circular_reference",
		},
		{
			name:   "version mismatch",
			err:    &manifest.VersionMismatchError{Alias: "nav", Constraint: "^1.0", Actual: "2.0.0"},
			status: http.StatusUnprocessableEntity,
			kind:   "version_mismatch",
		},
		{
			name:   "load failure",
			err:    &manifest.LoadError{Locator: "page.yaml", Err: errors.New("timeout")},
			status: http.StatusBadGateway,
			kind:   "load",
		},
		{
			name:   "internal",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			kind:   "internal",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &stubResolver{err: tt.err})

			resp, err := http.Post(srv.URL+"/api/resolve", "application/json",
				strings.NewReader(`{"locator": "page.yaml"}`))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body struct {
				Kind string `json:"kind"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", body.Kind, tt.kind)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	srv := newServer(t, &stubResolver{})

	cases := []struct {
		name  string
		body  string
		valid bool
	}{
		{"well-formed", `{"metadata": {"title": "X"}}`, true},
		{"malformed node", `{"structure": {"div": "not a mapping"}}`, false},
		{"bad version tag", `{"metadata": {"version": "one"}}`, false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/validate", "application/json",
				strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			var body struct {
				Valid  bool     `json:"valid"`
				Errors []string `json:"errors"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Valid != tt.valid {
				t.Errorf("valid = %v, errors = %v", body.Valid, body.Errors)
			}
			if !tt.valid && len(body.Errors) == 0 {
				t.Error("invalid manifest reported no errors")
			}
		})
	}
}

func TestConvert(t *testing.T) {
	resolver := &stubResolver{m: resolvedPage()}
	srv := newServer(t, resolver)

	resp, err := http.Post(srv.URL+"/api/convert/manifest-to-html", "application/json",
		strings.NewReader(`{"locator": "page.yaml"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "<!DOCTYPE html>") {
		t.Errorf("body = %q", body)
	}
}

func TestConvert_UnknownFormat(t *testing.T) {
	srv := newServer(t, &stubResolver{m: resolvedPage()})

	resp, err := http.Post(srv.URL+"/api/convert/manifest-to-angular", "application/json",
		strings.NewReader(`{"locator": "page.yaml"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRequestID(t *testing.T) {
	srv := newServer(t, &stubResolver{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("no request id assigned")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "caller-id" {
		t.Errorf("request id = %q, want caller's preserved", got)
	}
}
