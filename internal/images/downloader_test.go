package images_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/images"
)

func testLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, io.Discard)
}

func newLocalStore(t *testing.T) (*images.LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := images.NewLocalStore(dir, testLogger())
	require.NoError(t, err)
	return store, dir
}

func TestDownloader_StoresImages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes-a"))
	})
	mux.HandleFunc("/b.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes-b"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, dir := newLocalStore(t)
	d := images.NewDownloader(store, 5*time.Second, testLogger())

	stored, err := d.Download(context.Background(),
		[]string{server.URL + "/a.jpg", server.URL + "/b.png"}, "S001")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Keys carry the owner and the source extension.
	assert.Equal(t, filepath.Join(dir, "S001", "000.jpg"), stored[0])
	assert.Equal(t, filepath.Join(dir, "S001", "001.png"), stored[1])

	data, err := os.ReadFile(stored[0])
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes-a", string(data))
}

func TestDownloader_ToleratesPerURLFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store, _ := newLocalStore(t)
	d := images.NewDownloader(store, 5*time.Second, testLogger())

	stored, err := d.Download(context.Background(), []string{
		server.URL + "/missing.jpg",
		server.URL + "/ok.jpg",
		"http://127.0.0.1:1/unreachable.jpg",
	}, "S002")
	require.NoError(t, err)
	// Only the reachable URL lands; failures are the caller's delta.
	assert.Len(t, stored, 1)
}

func TestDownloader_CancelledContext(t *testing.T) {
	store, _ := newLocalStore(t)
	d := images.NewDownloader(store, 5*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stored, err := d.Download(ctx, []string{"http://example.com/a.jpg"}, "S003")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, stored)
}

func TestLocalStore_Put(t *testing.T) {
	store, dir := newLocalStore(t)

	loc, err := store.Put(context.Background(), "S001/000.jpg", []byte("data"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "S001", "000.jpg"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}
