package fetcher

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glacierpeak/launchcore/internal/domain"
)

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func randomBody(t *testing.T, n int) []byte {
	t.Helper()
	body := make([]byte, n)
	if _, err := rand.Read(body); err != nil {
		t.Fatal(err)
	}
	return body
}

// rangeServer serves body with range-request support and records the
// offsets clients asked for.
func rangeServer(t *testing.T, body []byte, offsets *[]int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := int64(0)
		if rng := r.Header.Get("Range"); rng != "" {
			n, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(rng, "bytes="), "-"), 10, 64)
			if err != nil {
				t.Errorf("bad range header %q", rng)
			}
			offset = n
		}
		if offsets != nil {
			*offsets = append(*offsets, offset)
		}

		if offset >= int64(len(body)) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		if offset > 0 {
			w.Header().Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", offset, len(body)-1, len(body)))
			w.WriteHeader(http.StatusPartialContent)
		}
		w.Write(body[offset:])
	}))
}

func artifactFor(body []byte, urls ...string) domain.Artifact {
	return domain.Artifact{
		Name:   "game",
		URLs:   urls,
		Size:   int64(len(body)),
		SHA256: domain.SHA256Hasher{}.SumBytes(body),
		Kind:   domain.KindZip,
	}
}

func TestFetchWholeFile(t *testing.T) {
	body := randomBody(t, 256*1024)
	srv := rangeServer(t, body, nil)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")
	var last domain.Progress
	var calls int

	path, err := newTestFetcher(t).Fetch(context.Background(), artifactFor(body, srv.URL), dest,
		func(p domain.Progress) {
			if p.Done < last.Done {
				t.Errorf("progress went backwards: %d after %d", p.Done, last.Done)
			}
			last = p
			calls++
		})
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Error("downloaded bytes differ from the served body")
	}
	if calls == 0 || last.Done != int64(len(body)) || last.Total != int64(len(body)) {
		t.Errorf("progress ended at %+v after %d calls", last, calls)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("partial file left behind after a successful fetch")
	}
}

func TestFetchResumesPartial(t *testing.T) {
	body := randomBody(t, 200*1024)
	var offsets []int64
	srv := rangeServer(t, body, &offsets)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")

	// A previous run wrote the first 64k and died.
	cut := 64 * 1024
	if err := os.WriteFile(dest+".part", body[:cut], 0644); err != nil {
		t.Fatal(err)
	}

	path, err := newTestFetcher(t).Fetch(context.Background(), artifactFor(body, srv.URL), dest, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(offsets) != 1 || offsets[0] != int64(cut) {
		t.Errorf("requested offsets = %v, want a single resume from %d", offsets, cut)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Error("resumed download is not byte-identical to the uninterrupted one")
	}
}

func TestFetchRestartsWhenRangeUnsupported(t *testing.T) {
	body := randomBody(t, 64*1024)

	// Plain 200 regardless of the Range header.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")
	if err := os.WriteFile(dest+".part", []byte("stale partial content"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := newTestFetcher(t).Fetch(context.Background(), artifactFor(body, srv.URL), dest, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, body) {
		t.Error("restart over a stale partial produced corrupt output")
	}
}

func TestFetchAlreadyCompletePartial(t *testing.T) {
	body := randomBody(t, 32*1024)
	var offsets []int64
	srv := rangeServer(t, body, &offsets)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")
	if err := os.WriteFile(dest+".part", body, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := newTestFetcher(t).Fetch(context.Background(), artifactFor(body, srv.URL), dest, nil); err != nil {
		t.Fatal(err)
	}
	if len(offsets) != 0 {
		t.Errorf("server was contacted %d times for a complete partial", len(offsets))
	}
}

func TestFetchAlreadyVerifiedDestination(t *testing.T) {
	body := randomBody(t, 32*1024)
	var offsets []int64
	srv := rangeServer(t, body, &offsets)
	defer srv.Close()

	// A previous run downloaded, verified and renamed the file, then
	// died before extraction.
	dest := filepath.Join(t.TempDir(), "game.zip")
	if err := os.WriteFile(dest, body, 0644); err != nil {
		t.Fatal(err)
	}

	path, err := newTestFetcher(t).Fetch(context.Background(), artifactFor(body, srv.URL), dest, nil)
	if err != nil {
		t.Fatal(err)
	}
	if path != dest {
		t.Errorf("path = %q, want %q", path, dest)
	}
	if len(offsets) != 0 {
		t.Errorf("server was contacted %d times for a verified complete file", len(offsets))
	}
}

func TestFetchReplacesCorruptDestination(t *testing.T) {
	body := randomBody(t, 32*1024)
	srv := rangeServer(t, body, nil)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")
	if err := os.WriteFile(dest, []byte("stale leftover"), 0644); err != nil {
		t.Fatal(err)
	}

	path, err := newTestFetcher(t).Fetch(context.Background(), artifactFor(body, srv.URL), dest, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Error("corrupt leftover at dest was not replaced by the real bytes")
	}
}

func TestFetchIntegrityMismatch(t *testing.T) {
	body := randomBody(t, 32*1024)
	srv := rangeServer(t, body, nil)
	defer srv.Close()

	artifact := artifactFor(body, srv.URL)
	artifact.SHA256 = strings.Repeat("0", 64)

	dest := filepath.Join(t.TempDir(), "game.zip")
	_, err := newTestFetcher(t).Fetch(context.Background(), artifact, dest, nil)

	var integrity *domain.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
	if integrity.ActualHash == "" || integrity.Artifact != "game" {
		t.Errorf("integrity error lacks detail: %+v", integrity)
	}

	// The tainted partial must not survive to be resumed.
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("corrupt partial left resumable")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("corrupt file left at the verified destination")
	}
}

func TestFetchSizeMismatch(t *testing.T) {
	body := randomBody(t, 32*1024)
	srv := rangeServer(t, body, nil)
	defer srv.Close()

	artifact := artifactFor(body, srv.URL)
	artifact.Size = int64(len(body)) + 1

	_, err := newTestFetcher(t).Fetch(context.Background(), artifact,
		filepath.Join(t.TempDir(), "game.zip"), nil)

	var integrity *domain.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("err = %v, want IntegrityError", err)
	}
	if integrity.ExpectedSize == integrity.ActualSize {
		t.Errorf("size detail missing: %+v", integrity)
	}
}

func TestFetchMirrorFailover(t *testing.T) {
	body := randomBody(t, 32*1024)

	var brokenHits atomic.Int64
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		brokenHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	good := rangeServer(t, body, nil)
	defer good.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")
	path, err := newTestFetcher(t).Fetch(context.Background(),
		artifactFor(body, broken.URL, good.URL), dest, nil)
	if err != nil {
		t.Fatal(err)
	}

	if brokenHits.Load() == 0 {
		t.Error("primary mirror was never tried")
	}
	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, body) {
		t.Error("failover download is corrupt")
	}
}

func TestFetchAllMirrorsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	artifact := domain.Artifact{Name: "game", URLs: []string{srv.URL, srv.URL + "/mirror2"}}
	_, err := newTestFetcher(t).Fetch(context.Background(), artifact,
		filepath.Join(t.TempDir(), "game.zip"), nil)

	var network *domain.NetworkError
	if !errors.As(err, &network) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if network.URL == "" {
		t.Error("network error should name the failing mirror")
	}
}

func TestFetchCancellation(t *testing.T) {
	body := randomBody(t, 4*1024*1024)
	srv := rangeServer(t, body, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	dest := filepath.Join(t.TempDir(), "game.zip")

	_, err := newTestFetcher(t).Fetch(ctx, artifactFor(body, srv.URL), dest,
		func(p domain.Progress) {
			// Cancel as soon as the first chunk lands; the fetch must
			// stop at a chunk boundary, not run to completion.
			cancel()
		})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("cancelled fetch must not produce a verified destination")
	}

	// The partial stays resumable after cancellation.
	info, statErr := os.Stat(dest + ".part")
	if statErr != nil {
		t.Fatalf("expected a resumable partial: %v", statErr)
	}
	if info.Size() == 0 || info.Size() >= int64(len(body)) {
		t.Errorf("partial size %d out of expected range", info.Size())
	}
}

func TestFetchInterruptedThenResumedMatchesChecksum(t *testing.T) {
	body := randomBody(t, 512*1024)

	// First server dies mid-transfer: claims the full length but
	// writes only half.
	half := len(body) / 2
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body[:half])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	defer flaky.Close()

	dest := filepath.Join(t.TempDir(), "game.zip")
	f := newTestFetcher(t)

	if _, err := f.Fetch(context.Background(), artifactFor(body, flaky.URL), dest, nil); err == nil {
		t.Fatal("expected the interrupted fetch to fail")
	}

	var offsets []int64
	steady := rangeServer(t, body, &offsets)
	defer steady.Close()

	path, err := f.Fetch(context.Background(), artifactFor(body, steady.URL), dest, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(offsets) != 1 || offsets[0] == 0 {
		t.Errorf("second fetch did not resume: offsets = %v", offsets)
	}

	sum, err := domain.SHA256Hasher{}.Sum(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum != (domain.SHA256Hasher{}).SumBytes(body) {
		t.Error("interrupted-then-resumed fetch is not byte-identical to the source")
	}
}

func TestFetchNoURLs(t *testing.T) {
	_, err := newTestFetcher(t).Fetch(context.Background(), domain.Artifact{Name: "game"},
		filepath.Join(t.TempDir(), "game.zip"), nil)

	var network *domain.NetworkError
	if !errors.As(err, &network) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
}
