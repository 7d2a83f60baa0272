package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
)

type fakeBucket struct {
	mu          sync.Mutex
	uploads     map[string]string
	deletes     []string
	listStatus  int
	deleteCode  int
	uploadCode  int
	uploadQuery string
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.EscapedPath()
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/b/photos/o"):
		if f.listStatus != 0 {
			w.WriteHeader(f.listStatus)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"forbidden"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"kind":"storage#objects"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/upload/storage/v1/b/photos/o"):
		if f.uploadCode != 0 {
			w.WriteHeader(f.uploadCode)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"access denied"}}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.uploadQuery = r.URL.Query().Get("uploadType")
		f.uploads[string(body)] = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{"bucket":"photos","name":"ok"}`)
	case r.Method == http.MethodDelete:
		f.deletes = append(f.deletes, path)
		code := f.deleteCode
		if code == 0 {
			code = http.StatusNoContent
		}
		w.WriteHeader(code)
		if code >= 400 {
			_, _ = io.WriteString(w, `{"error":{"message":"delete failed"}}`)
		}
	default:
		w.WriteHeader(http.StatusTeapot)
	}
}

func newTestClient(t *testing.T, bucket *fakeBucket) *Client {
	t.Helper()
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client, err := newClient(context.Background(),
		config.GCSConfig{BucketName: "photos", PublicBaseURL: "https://cdn.example.com/"},
		nil,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return client
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: map[string]string{}}
}

func TestNewClientPingsBucket(t *testing.T) {
	bucket := newFakeBucket()
	bucket.listStatus = http.StatusForbidden
	srv := httptest.NewServer(bucket)
	defer srv.Close()

	_, err := newClient(context.Background(),
		config.GCSConfig{BucketName: "photos"},
		nil,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err == nil || !strings.Contains(err.Error(), "health check") {
		t.Fatalf("expected health check error, got %v", err)
	}

	if _, err := newClient(context.Background(), config.GCSConfig{BucketName: " "}, nil); err == nil {
		t.Fatal("expected error for blank bucket")
	}
}

func TestUploadSendsObject(t *testing.T) {
	bucket := newFakeBucket()
	client := newTestClient(t, bucket)

	if err := client.Upload(context.Background(), "products/main/a.png", "image/png", []byte("png-bytes")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if bucket.uploadQuery == "" {
		t.Fatal("expected uploadType query parameter")
	}
	var found bool
	for body := range bucket.uploads {
		if strings.Contains(body, "png-bytes") && strings.Contains(body, "products/main/a.png") {
			found = true
		}
	}
	if !found {
		t.Fatalf("upload body missing object data: %v", bucket.uploads)
	}
}

func TestUploadFailureAndBlankKey(t *testing.T) {
	bucket := newFakeBucket()
	bucket.uploadCode = http.StatusForbidden
	client := newTestClient(t, bucket)

	err := client.Upload(context.Background(), "products/main/a.png", "image/png", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "products/main/a.png") {
		t.Fatalf("expected upload error naming the key, got %v", err)
	}
	if err := client.Upload(context.Background(), " ", "image/png", nil); err != errKeyRequired {
		t.Fatalf("expected errKeyRequired, got %v", err)
	}
}

func TestDeleteTreatsMissingAsDeleted(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotFound} {
		bucket := newFakeBucket()
		bucket.deleteCode = code
		client := newTestClient(t, bucket)

		if err := client.Delete(context.Background(), "products/extra/b.jpg"); err != nil {
			t.Fatalf("Delete with status %d: %v", code, err)
		}
		if len(bucket.deletes) != 1 || !strings.HasSuffix(bucket.deletes[0], "/o/products%2Fextra%2Fb.jpg") {
			t.Fatalf("unexpected delete paths %v", bucket.deletes)
		}
	}

	bucket := newFakeBucket()
	bucket.deleteCode = http.StatusInternalServerError
	client := newTestClient(t, bucket)
	if err := client.Delete(context.Background(), "products/extra/b.jpg"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestPublicURL(t *testing.T) {
	client := &Client{bucket: "photos", publicBase: "https://cdn.example.com/"}
	if got := client.PublicURL("products/main/a.png"); got != "https://cdn.example.com/photos/products/main/a.png" {
		t.Fatalf("unexpected public url %s", got)
	}
	if got := client.PublicURL(""); got != "" {
		t.Fatalf("expected empty url, got %s", got)
	}
	client.publicBase = ""
	if got := client.PublicURL("k"); got != "https://storage.googleapis.com/photos/k" {
		t.Fatalf("unexpected default url %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err != errNotInitialized {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if err := client.Delete(context.Background(), "k"); err != errNotInitialized {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
}
