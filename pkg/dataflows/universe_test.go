package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
)

const constituentsPage = `<html><body>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th></tr>
<tr><td><a href="#">MMM</a></td><td>3M</td></tr>
<tr><td><a href="#">BRK.B</a></td><td>Berkshire Hathaway</td></tr>
<tr><td>AAPL</td><td>Apple</td></tr>
<tr><td>AAPL</td><td>Apple duplicate</td></tr>
</tbody>
</table>
</body></html>`

func TestWikipediaUniverse(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(constituentsPage))
	}))
	defer srv.Close()

	cfg := config.DefaultConfigWithRoot(t.TempDir())
	u := NewWikipediaUniverse(cfg).SetURL(srv.URL)

	tickers, err := u.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "BRK-B", "AAPL"}, tickers)

	_, err = u.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call should hit the cache")
}

func TestWikipediaUniverseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.DefaultConfigWithRoot(t.TempDir())
	_, err := NewWikipediaUniverse(cfg).SetURL(srv.URL).Tickers(context.Background())
	assert.Error(t, err)
}

func TestFallbackUniverse(t *testing.T) {
	assert.Len(t, FallbackUniverse, 29)
	assert.Contains(t, FallbackUniverse, "BRK-B")
}
