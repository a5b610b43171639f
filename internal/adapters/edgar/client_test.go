package edgar

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"insiderAlpha/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const tickerMapJSON = `{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},` +
	`"1":{"cik_str":1318605,"ticker":"TSLA","title":"Tesla, Inc."}}`

// newTickerMapServer serves the SEC ticker map, gzip-compressed whenever the
// client offers gzip, the way the real archive hosts respond.
func newTickerMapServer(t *testing.T, gotUserAgent *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/company_tickers.json" {
			http.NotFound(w, r)
			return
		}
		if gotUserAgent != nil {
			*gotUserAgent = r.Header.Get("User-Agent")
		}
		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Set("Content-Type", "application/json")
			gz := gzip.NewWriter(w)
			_, err := gz.Write([]byte(tickerMapJSON))
			require.NoError(t, err)
			require.NoError(t, gz.Close())
			return
		}
		_, _ = w.Write([]byte(tickerMapJSON))
	}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(Config{
		UserAgent:      "insider-alpha-test/1.0 test@example.com",
		Logger:         &mockLogger{},
		ArchiveBaseURL: baseURL,
		DataBaseURL:    baseURL,
	})
	require.NoError(t, err)
	return client
}

func TestResolveCIK_GzippedTickerMap(t *testing.T) {
	var gotUserAgent string
	server := newTickerMapServer(t, &gotUserAgent)
	defer server.Close()

	client := newTestClient(t, server.URL)

	// The archive hosts compress responses; the transport must hand the
	// decoder plain JSON, not raw gzip bytes.
	cik, err := client.resolveCIK(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "0000320193", cik)
	assert.Equal(t, "insider-alpha-test/1.0 test@example.com", gotUserAgent)

	cik, err = client.resolveCIK(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, "0001318605", cik)
}

func TestResolveCIK_UnknownTicker(t *testing.T) {
	server := newTickerMapServer(t, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.resolveCIK(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Logger: &mockLogger{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(Config{UserAgent: "app/1.0 a@b.c"})
	assert.Error(t, err)
}
