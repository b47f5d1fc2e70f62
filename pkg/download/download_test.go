package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r0man1an/LibreFlash/pkg/errors"
)

// newTestClient wires every endpoint to the given test server.
func newTestClient(server *httptest.Server) *Client {
	return New(
		WithEndpoints(server.URL+"/api/v1", server.URL+"/full", server.URL),
		WithMagiskAPI(server.URL+"/magisk/latest"),
		WithUserAgent("libreflash-test"),
	)
}

func nightlyJSON(filenames ...string) string {
	out := `{"response":[`
	for i, fn := range filenames {
		if i > 0 {
			out += ","
		}
		// Older entries first; the client must sort by datetime.
		out += fmt.Sprintf(`{"filename":%q,"datetime":%d,"url":"https://example.org/%s"}`, fn, 1000+i, fn)
	}
	return out + `]}`
}

func TestNightlyBuilds_SortedNewestFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/husky/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nightlyJSON("lineage-21.0-20240101-nightly-husky-signed.zip",
			"lineage-21.0-20240301-nightly-husky-signed.zip"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(server)
	builds, err := c.NightlyBuilds(context.Background(), "husky")
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "lineage-21.0-20240301-nightly-husky-signed.zip", builds[0].Filename)
}

func TestNightlyBuilds_EmptyIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/gone/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newTestClient(server).NightlyBuilds(context.Background(), "gone")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestLatestArtifact_ProbesBuildDates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/husky/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nightlyJSON(
			"lineage-21.0-20240101-nightly-husky-signed.zip",
			"lineage-21.0-20240301-nightly-husky-signed.zip"))
	})
	// The newest date has no recovery.img; the probe must walk back.
	mux.HandleFunc("/full/husky/20240301/recovery.img", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/full/husky/20240101/recovery.img", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestArtifact(context.Background(), "husky", "recovery.img")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/full/husky/20240101/recovery.img", artifact.URL)
	assert.Equal(t, "recovery.img", artifact.Filename)
	assert.Equal(t, "mirrorbits", artifact.Source)
}

func TestLatestArtifact_NothingAnswers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/husky/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nightlyJSON("lineage-21.0-20240101-nightly-husky-signed.zip"))
	})
	mux.HandleFunc("/full/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newTestClient(server).LatestArtifact(context.Background(), "husky", "vbmeta.img")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestLatestRecoveryOrBoot_FallsBackToBoot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/starlte/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nightlyJSON("lineage-20.0-20240101-nightly-starlte-signed.zip"))
	})
	mux.HandleFunc("/full/starlte/20240101/recovery.img", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/full/starlte/20240101/boot.img", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestRecoveryOrBoot(context.Background(), "starlte", false)
	require.NoError(t, err)
	assert.Equal(t, "boot.img", artifact.Filename)
}

func TestLatestRecoveryOrBoot_BootFirstSkipsRecovery(t *testing.T) {
	var recoveryProbed atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/husky/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nightlyJSON("lineage-21.0-20240101-nightly-husky-signed.zip"))
	})
	mux.HandleFunc("/full/husky/20240101/recovery.img", func(w http.ResponseWriter, r *http.Request) {
		recoveryProbed.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/full/husky/20240101/boot.img", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestRecoveryOrBoot(context.Background(), "husky", true)
	require.NoError(t, err)
	assert.Equal(t, "boot.img", artifact.Filename)
	assert.False(t, recoveryProbed.Load())
}

func TestLatestRom_ArchiveFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/klte/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":[]}`)
	})
	mux.HandleFunc("/api/builds", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"builds":[
			{"device":"klte","filename":"lineage-18.1-20220101-nightly-klte-signed.zip","id":7},
			{"device":"klte","filename":"lineage-18.1-20220301-nightly-klte-signed.zip","id":"9"},
			{"device":"other","filename":"lineage-18.1-20230101-nightly-other-signed.zip","id":1}
		]}`)
	})
	mux.HandleFunc("/lineage-18.1-20220301-nightly-klte-signed.zip", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestRom(context.Background(), "klte")
	require.NoError(t, err)
	assert.Equal(t, "archive", artifact.Source)
	assert.Equal(t, "lineage-18.1-20220301-nightly-klte-signed.zip", artifact.Filename)
}

func TestLatestArchiveBuild_ByIDEndpointFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/builds", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"device":"klte","filename":"lineage-18.1-20220301-nightly-klte-signed.zip","id":42}]`)
	})
	// The direct file host answers 404; the by-id endpoint serves it.
	mux.HandleFunc("/lineage-18.1-20220301-nightly-klte-signed.zip", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/build/42/download", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestArchiveBuild(context.Background(), "klte")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/build/42/download", artifact.URL)
}

func TestArchiveDevices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/builds", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"device":"klte","filename":"a.zip"},
			{"device":"i9100","filename":"b.zip"},
			{"device":"klte","filename":"c.zip"},
			{"device":"","filename":"d.zip"}
		]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	devices, err := newTestClient(server).ArchiveDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"i9100", "klte"}, devices)
}

func TestLatestMagisk_PrefersCanonicalAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/magisk/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v27.0","assets":[
			{"name":"notes.md","browser_download_url":"https://example.org/notes.md"},
			{"name":"app-release.apk","browser_download_url":"https://example.org/app-release.apk"},
			{"name":"Magisk-v27.0.apk","browser_download_url":"https://example.org/Magisk-v27.0.apk"}
		]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestMagisk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Magisk-v27.0.apk", artifact.Filename)
	assert.Equal(t, "github", artifact.Source)
}

func TestLatestMagisk_FallsBackToAnyAPK(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/magisk/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v27.0","assets":[
			{"name":"app-release.apk","browser_download_url":"https://example.org/app-release.apk"}
		]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	artifact, err := newTestClient(server).LatestMagisk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app-release.apk", artifact.Filename)
}

func TestLatestMagisk_NoAPKAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/magisk/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v27.0","assets":[{"name":"notes.md","browser_download_url":"u"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newTestClient(server).LatestMagisk(context.Background())
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestFetch_WritesAtomically(t *testing.T) {
	payload := []byte("not a real recovery image but close enough")
	mux := http.NewServeMux()
	mux.HandleFunc("/recovery.img", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "downloads", "recovery.img")
	var lastDone, lastTotal int64
	err := newTestClient(server).Fetch(context.Background(), server.URL+"/recovery.img", dest,
		func(done, total int64) { lastDone, lastTotal = done, total })
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), lastDone)
	assert.Equal(t, int64(len(payload)), lastTotal)

	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a finished download")
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "gone.img")
	err := newTestClient(server).Fetch(context.Background(), server.URL+"/gone.img", dest, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDownloadFailed))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_CancellationRemovesPartial(t *testing.T) {
	firstChunk := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/big.img", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		w.Write(make([]byte, 4096))
		w.(http.Flusher).Flush()
		close(firstChunk)
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-firstChunk
		cancel()
	}()

	dest := filepath.Join(t.TempDir(), "big.img")
	err := newTestClient(server).Fetch(ctx, server.URL+"/big.img", dest, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCancelled))

	_, statErr := os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(statErr), "cancellation must remove the partial file")
}

func TestFetch_CancelledBeforeBodyArrives(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "early.img")
	err := newTestClient(server).Fetch(ctx, server.URL+"/early.img", dest, nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCancelled),
		"cancellation during the request must not look like a download failure, got %v", err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/husky/nightly/0", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, nightlyJSON("lineage-21.0-20240101-nightly-husky-signed.zip"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(server)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = 5 * time.Millisecond

	builds, err := c.NightlyBuilds(context.Background(), "husky")
	require.NoError(t, err)
	assert.Len(t, builds, 1)
	assert.Equal(t, int32(3), hits.Load())
}
