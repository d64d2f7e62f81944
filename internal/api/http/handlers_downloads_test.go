package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"mediaserve/internal/domain"
	"mediaserve/internal/download"
)

// recordingDownloads wraps a real manager and records Add arguments.
type recordingDownloads struct {
	*download.Manager

	mu      sync.Mutex
	magnets []string
	exts    [][]string
}

func (r *recordingDownloads) Add(magnetURI string, extensions []string) (*download.Job, error) {
	r.mu.Lock()
	r.magnets = append(r.magnets, magnetURI)
	r.exts = append(r.exts, extensions)
	r.mu.Unlock()
	return r.Manager.Add(magnetURI, extensions)
}

// failingDownloads refuses every job with a non-validation error.
type failingDownloads struct{}

func (failingDownloads) Add(string, []string) (*download.Job, error) {
	return nil, errors.New("engine offline")
}
func (failingDownloads) List() []domain.JobSnapshot { return nil }
func (failingDownloads) Delete(string) bool         { return false }
func (failingDownloads) Count() int                 { return 0 }
func (failingDownloads) Ready() bool                { return false }

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestCreateDownloadAccepted(t *testing.T) {
	srv := newTestServer(t)
	magnet := "magnet:?xt=urn:btih:deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	w := postJSON(t, srv, "/downloads", `{"magnet":"`+magnet+`"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var snap domain.JobSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ID == "" {
		t.Error("snapshot has empty id")
	}
	if snap.Magnet != magnet {
		t.Errorf("magnet = %q", snap.Magnet)
	}
	if snap.Status == "" {
		t.Error("snapshot has empty status")
	}
	if snap.CreatedAt.IsZero() {
		t.Error("snapshot has zero createdAt")
	}
}

func TestCreateDownloadPassesExtensionOverrides(t *testing.T) {
	downloads := &recordingDownloads{Manager: newTestManager(t)}
	srv := NewServer(downloads,
		WithLogger(testLogger()),
		WithMediaDir(t.TempDir()),
		WithThumbnailDir(t.TempDir()),
		WithTempDir(t.TempDir()),
	)
	t.Cleanup(srv.Close)

	w := postJSON(t, srv, "/downloads", `{"magnet":"magnet:?xt=urn:btih:abc","extensions":"mkv, MP4, mkv"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	downloads.mu.Lock()
	defer downloads.mu.Unlock()
	if len(downloads.exts) != 1 {
		t.Fatalf("Add called %d times", len(downloads.exts))
	}
	if want := []string{"mkv", "MP4"}; !reflect.DeepEqual(downloads.exts[0], want) {
		t.Errorf("extensions = %v, want %v", downloads.exts[0], want)
	}
}

func TestCreateDownloadRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/downloads", `{"magnet":"magnet:?xt=urn:btih:abc","bogus":true}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "invalid_request" {
		t.Errorf("error code = %q", code)
	}
}

func TestCreateDownloadRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/downloads", `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateDownloadRequiresMagnet(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/downloads", `{"magnet":"   "}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var envelope errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != "invalid_request" {
		t.Errorf("error code = %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "magnet is required" {
		t.Errorf("error message = %q", envelope.Error.Message)
	}
}

func TestCreateDownloadEngineErrorReturns500(t *testing.T) {
	srv := NewServer(failingDownloads{},
		WithLogger(testLogger()),
		WithMediaDir(t.TempDir()),
		WithThumbnailDir(t.TempDir()),
		WithTempDir(t.TempDir()),
	)
	t.Cleanup(srv.Close)

	w := postJSON(t, srv, "/downloads", `{"magnet":"magnet:?xt=urn:btih:abc"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "internal_error" {
		t.Errorf("error code = %q", code)
	}
}

func TestListDownloadsEmpty(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/downloads", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp listDownloadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 || len(resp.Items) != 0 {
		t.Errorf("count = %d, items = %d", resp.Count, len(resp.Items))
	}
}

func TestListDownloadsReturnsAllJobs(t *testing.T) {
	srv := newTestServer(t)

	ids := make(map[string]bool)
	for _, suffix := range []string{"aaa", "bbb"} {
		w := postJSON(t, srv, "/downloads", `{"magnet":"magnet:?xt=urn:btih:`+suffix+`"}`)
		if w.Code != http.StatusAccepted {
			t.Fatalf("create status = %d", w.Code)
		}
		var snap domain.JobSnapshot
		if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
			t.Fatal(err)
		}
		ids[snap.ID] = true
	}

	req := httptest.NewRequest(http.MethodGet, "/downloads", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp listDownloadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Fatalf("count = %d, items = %d", resp.Count, len(resp.Items))
	}
	for _, item := range resp.Items {
		if !ids[item.ID] {
			t.Errorf("unexpected job id %q in listing", item.ID)
		}
	}
}

func TestDeleteDownload(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/downloads", `{"magnet":"magnet:?xt=urn:btih:abc"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("create status = %d", w.Code)
	}
	var snap domain.JobSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}

	w = postJSON(t, srv, "/downloads/"+snap.ID+"/delete", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	var resp deleteDownloadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("delete reported success = false")
	}

	req := httptest.NewRequest(http.MethodGet, "/downloads", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	var listing listDownloadsResponse
	if err := json.NewDecoder(rec.Body).Decode(&listing); err != nil {
		t.Fatal(err)
	}
	if listing.Count != 0 {
		t.Errorf("job still listed after delete, count = %d", listing.Count)
	}
}

func TestDeleteDownloadUnknownID(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/downloads/no-such-job/delete", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var resp deleteDownloadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Error("delete of unknown id reported success = true")
	}
}

func TestDeleteDownloadRequiresPost(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/downloads/abc/delete", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "method_not_allowed" {
		t.Errorf("error code = %q", code)
	}
}

func TestDownloadsCollectionRejectsOtherMethods(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/downloads", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDownloadByIDUnknownSubpaths(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/downloads/abc", "/downloads/abc/pause", "/downloads/abc/delete/extra"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Fatalf("status = %d", w.Code)
			}
		})
	}
}
