package roamapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/starford/bindrune/internal/apperr"
)

const assetURL = "https://firebasestorage.googleapis.com/o/flower.png?alt=media"

// localAPIServer starts an httptest server on loopback and returns a client
// pointed at it via the port-based endpoint.
func localAPIServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	_, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	ep, err := NewEndpoint(port, "TestGraph")
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	return NewClient(ep, "test-token")
}

func fileGetOK(t *testing.T, filename, mimetype string, contents []byte) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		var payload fileGetPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Action != "file.get" {
			t.Errorf("action = %q, want file.get", payload.Action)
		}
		if len(payload.Args) != 1 || payload.Args[0].URL != assetURL || payload.Args[0].Format != "base64" {
			t.Errorf("args = %+v", payload.Args)
		}
		resp := fileGetResponse{Result: &fileGetResult{
			Base64:   base64.StdEncoding.EncodeToString(contents),
			Filename: filename,
			Mimetype: mimetype,
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestFetch_Success(t *testing.T) {
	c := localAPIServer(t, fileGetOK(t, "flower.png", "image/png", []byte("png-bytes")))
	asset, err := c.Fetch(context.Background(), assetURL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if asset.FileName != "flower.png" {
		t.Errorf("file name = %q", asset.FileName)
	}
	if asset.MediaType != "image/png" {
		t.Errorf("media type = %q", asset.MediaType)
	}
	if string(asset.Contents) != "png-bytes" {
		t.Errorf("contents = %q", asset.Contents)
	}
	if asset.FetchedAt.IsZero() {
		t.Error("FetchedAt not stamped")
	}
}

func TestFetch_AuthRejected(t *testing.T) {
	c := localAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Fetch(context.Background(), assetURL)
	if !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestFetch_AssetMissing(t *testing.T) {
	c := localAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.Fetch(context.Background(), assetURL)
	if !errors.Is(err, apperr.ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestFetch_UnexpectedStatus(t *testing.T) {
	c := localAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Fetch(context.Background(), assetURL)
	if !errors.Is(err, apperr.ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	// Grab a free port, then close the listener so nothing answers.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	ep, err := NewEndpoint(port, "TestGraph")
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	c := NewClient(ep, "test-token")
	_, err = c.Fetch(context.Background(), assetURL)
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestAssetFromResponse_MalformedPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "not json at all"},
		{"missing result", `{"other": 1}`},
		{"bad base64", `{"result":{"base64":"!!not-base64!!","filename":"a.png","mimetype":"image/png"}}`},
		{"empty filename", `{"result":{"base64":"aGk=","filename":"","mimetype":"image/png"}}`},
		{"bad media type", `{"result":{"base64":"aGk=","filename":"a.png","mimetype":"nonsense"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := assetFromResponse([]byte(tc.body))
			if !errors.Is(err, apperr.ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		})
	}
}

func TestNewEndpoint_Validation(t *testing.T) {
	if _, err := NewEndpoint(0, "Graph"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("port 0: expected ErrValidation, got %v", err)
	}
	if _, err := NewEndpoint(70000, "Graph"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("port 70000: expected ErrValidation, got %v", err)
	}
	if _, err := NewEndpoint(3333, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty graph: expected ErrValidation, got %v", err)
	}
	ep, err := NewEndpoint(3333, "SCFH")
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	if got := ep.URL(); got != "http://127.0.0.1:3333/api/SCFH" {
		t.Errorf("URL() = %q", got)
	}
}
