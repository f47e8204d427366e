// Package site serves the embedded trainer dashboard.
package site

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Register attaches the dashboard at / on mux. API routes registered on
// the same mux with more specific patterns take precedence.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", NewRootHandler())
}

// RootHandler serves the dashboard assets.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// FS returns the dashboard assets rooted at the static directory.
func FS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// ServeHTTP serves the single page app. The app routes with the URL hash,
// so only real asset paths resolve.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	h.files.ServeHTTP(w, r)
}
