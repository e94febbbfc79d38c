package feed

import (
	"context"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arxivdigest/internal/netutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newMockFeedServer sets up an httptest.Server with a given handler.
func newMockFeedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Fetch(t *testing.T) {
	var gotUA, gotQuery string
	server := newMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleFeed)
	})

	client := NewClient(ClientConfig{BaseURL: server.URL}, zap.NewNop())
	body, err := client.Fetch(context.Background(), RangeParams("cat:cs.CV AND submittedDate:[1 TO 2]", 5))

	require.NoError(t, err)
	assert.Equal(t, sampleFeed, string(body))
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "cat:cs.CV AND submittedDate:[1 TO 2]", gotQuery)
}

func TestClient_FetchNonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusServiceUnavailable, http.StatusNotModified} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := newMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			client := NewClient(ClientConfig{BaseURL: server.URL}, nil)

			_, err := client.Fetch(context.Background(), IDParams("x"))
			assert.ErrorIs(t, err, ErrNetwork)
			assert.NotErrorIs(t, err, ErrCertificate)
		})
	}
}

func TestClient_FetchConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(ClientConfig{BaseURL: url}, nil)
	_, err := client.Fetch(context.Background(), IDParams("x"))
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_FetchTimeout(t *testing.T) {
	server := newMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Network: netutil.Options{Timeout: 50 * time.Millisecond},
	}, nil)

	_, err := client.Fetch(context.Background(), IDParams("x"))
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_FetchUntrustedCertificate(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{BaseURL: server.URL}, nil)
	_, err := client.Fetch(context.Background(), IDParams("x"))

	assert.ErrorIs(t, err, ErrCertificate)
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestClient_FetchWithCABundle(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	}))
	t.Cleanup(server.Close)

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, certPEM, 0o600))

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Network: netutil.Options{CABundlePath: bundle},
	}, nil)
	body, err := client.Fetch(context.Background(), IDParams("x"))

	require.NoError(t, err)
	assert.Equal(t, sampleFeed, string(body))
}

func TestClient_UnreadableCABundleFallsBack(t *testing.T) {
	server := newMockFeedServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleFeed)
	})

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Network: netutil.Options{CABundlePath: filepath.Join(t.TempDir(), "missing.pem")},
	}, nil)
	_, err := client.Fetch(context.Background(), IDParams("x"))
	assert.NoError(t, err)
}
