package preview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func setupBundles(t *testing.T) string {
	t.Helper()
	outRoot := t.TempDir()
	bundle := filepath.Join(outRoot, "garden_notes.mdbundle")
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "garden_notes.md"), []byte("# Garden\n![f](f.png)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "f.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A stray non-bundle directory that must not be listed.
	if err := os.MkdirAll(filepath.Join(outRoot, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}
	return outRoot
}

func TestListBundles(t *testing.T) {
	r := NewRouter(setupBundles(t), false, "")
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bundles")
	if err != nil {
		t.Fatalf("GET /bundles: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var infos []BundleInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}
	if infos[0].Name != "garden_notes.mdbundle" {
		t.Errorf("name = %q", infos[0].Name)
	}
	if infos[0].Markdown != "garden_notes.md" {
		t.Errorf("markdown = %q", infos[0].Markdown)
	}
	if infos[0].AssetCount != 1 {
		t.Errorf("asset count = %d", infos[0].AssetCount)
	}
}

func TestServeFile(t *testing.T) {
	r := NewRouter(setupBundles(t), false, "")
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bundles/garden_notes.mdbundle/f.png")
	if err != nil {
		t.Fatalf("GET asset: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestServeFile_TraversalRejected(t *testing.T) {
	outRoot := setupBundles(t)
	if err := os.WriteFile(filepath.Join(outRoot, "secret.txt"), []byte("top"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(outRoot)
	if _, err := h.safePath("garden_notes.mdbundle", "../secret.txt"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if _, err := h.safePath("..", "x"); err == nil {
		t.Error("expected non-bundle name to be rejected")
	}
}

func TestAuth(t *testing.T) {
	r := NewRouter(setupBundles(t), true, "s3cret")
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/bundles")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/bundles", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", resp2.StatusCode)
	}

	// Health endpoints stay open.
	resp3, err := http.Get(srv.URL + "/health/live")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp3.StatusCode)
	}
}
