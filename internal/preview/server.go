package preview

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/bindrune/internal/bundler"
)

// BundleInfo describes one bundle directory under the output root.
type BundleInfo struct {
	Name       string    `json:"name"`
	Markdown   string    `json:"markdown,omitempty"`
	AssetCount int       `json:"asset_count"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Handler lists and serves bundles from the output root.
type Handler struct {
	outRoot string
}

// NewHandler creates a handler rooted at the bundler output directory.
func NewHandler(outRoot string) *Handler {
	return &Handler{outRoot: outRoot}
}

// safePath validates that bundle is a plain *.mdbundle directory name and
// rest stays inside it, and returns the absolute path.
func (h *Handler) safePath(bundle, rest string) (string, error) {
	if bundle == "" || !strings.HasSuffix(bundle, bundler.BundleExt) {
		return "", fmt.Errorf("not a bundle name: %s", bundle)
	}
	if filepath.Clean(bundle) != filepath.Base(bundle) {
		return "", fmt.Errorf("invalid bundle name: %s", bundle)
	}
	root := filepath.Join(h.outRoot, bundle)
	if rest == "" {
		return root, nil
	}
	cleaned := filepath.Clean(rest)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid path: %s", rest)
	}
	abs := filepath.Join(root, cleaned)
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes bundle: %s", rest)
	}
	return abs, nil
}

// ListBundles handles GET /bundles.
func (h *Handler) ListBundles(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(h.outRoot)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, []BundleInfo{})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read output root"))
		return
	}

	infos := make([]BundleInfo, 0)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), bundler.BundleExt) {
			continue
		}
		info := BundleInfo{Name: e.Name()}
		if fi, err := e.Info(); err == nil {
			info.ModifiedAt = fi.ModTime()
		}
		files, err := os.ReadDir(filepath.Join(h.outRoot, e.Name()))
		if err == nil {
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				if strings.HasSuffix(f.Name(), ".md") {
					info.Markdown = f.Name()
				} else {
					info.AssetCount++
				}
			}
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

// ServeFile handles GET /bundles/{bundle}/*.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	bundle := chi.URLParam(r, "bundle")
	rest := chi.URLParam(r, "*")
	abs, err := h.safePath(bundle, rest)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	fi, statErr := os.Stat(abs)
	if statErr != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// NewRouter creates a chi router serving the preview API.
func NewRouter(outRoot string, authEnabled bool, token string) chi.Router {
	h := NewHandler(outRoot)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))
		r.Get("/bundles", h.ListBundles)
		r.Get("/bundles/{bundle}/*", h.ServeFile)
	})

	return r
}
