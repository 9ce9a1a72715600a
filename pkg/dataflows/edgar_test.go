package dataflows

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
)

const sampleFiling = `<SEC-DOCUMENT>
<TYPE>INFORMATION TABLE
<XML>
<informationTable xmlns="http://www.sec.gov/edgar/document/thirteenf/informationtable">
  <infoTable>
    <nameOfIssuer>APPLE INC</nameOfIssuer>
    <titleOfClass>COM</titleOfClass>
    <cusip>037833100</cusip>
    <value>1000</value>
    <shrsOrPrnAmt><sshPrnamt>500</sshPrnamt><sshPrnamtType>SH</sshPrnamtType></shrsOrPrnAmt>
    <votingAuthority><Sole>500</Sole><Shared>0</Shared><None>0</None></votingAuthority>
  </infoTable>
  <infoTable>
    <nameOfIssuer>MICROSOFT CORP</nameOfIssuer>
    <titleOfClass>COM</titleOfClass>
    <cusip>594918104</cusip>
    <value>2000</value>
    <shrsOrPrnAmt><sshPrnamt>300</sshPrnamt><sshPrnamtType>SH</sshPrnamtType></shrsOrPrnAmt>
    <votingAuthority><Sole>100</Sole><Shared>200</Shared><None>0</None></votingAuthority>
  </infoTable>
</informationTable>
</XML>
</SEC-DOCUMENT>`

func newEdgarTestServer(t *testing.T, tickerHits *int32) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tickerHits, 1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."},"1":{"cik_str":1067983,"ticker":"BRK-B","title":"Berkshire"}}`))
	})
	mux.HandleFunc("/cgi-bin/browse-edgar", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "13F-HR", q.Get("type"))
		assert.Equal(t, "atom", q.Get("output"))
		if q.Get("CIK") != "1067983" {
			w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
			return
		}
		fmt.Fprintf(w, `<feed xmlns="http://www.w3.org/2005/Atom">
<entry>
  <updated>2024-05-15T16:05:01-04:00</updated>
  <id>urn:tag:sec.gov,2008:accession-number=0000950123-24-005678</id>
  <link href="%s/Archives/0000950123-24-005678-index.htm"/>
</entry>
<entry>
  <updated>2024-02-14T16:05:01-04:00</updated>
  <id>urn:tag:sec.gov,2008:accession-number=0000950123-24-001234</id>
  <link href="%s/Archives/0000950123-24-001234-index.htm"/>
</entry>
</feed>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/Archives/0000950123-24-005678.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFiling))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEdgar(t *testing.T, hits *int32, opts ...EdgarOption) *EdgarClient {
	srv := newEdgarTestServer(t, hits)
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	opts = append(opts, WithEdgarEndpoints(srv.URL+"/files/company_tickers.json", srv.URL+"/cgi-bin/browse-edgar"))
	return NewEdgarClient(cfg, opts...)
}

func TestEdgarLookupCIK(t *testing.T) {
	var hits int32
	c := newTestEdgar(t, &hits)
	ctx := context.Background()

	cik, err := c.LookupCIK(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "320193", cik)

	cik, err = c.LookupCIK(ctx, "BRK-B")
	require.NoError(t, err)
	assert.Equal(t, "1067983", cik)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "index should be fetched once")

	_, err = c.LookupCIK(ctx, "ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEdgarLatestFilingAndDownload(t *testing.T) {
	var hits int32
	c := newTestEdgar(t, &hits)
	ctx := context.Background()

	filing, err := c.LatestFiling(ctx, "1067983")
	require.NoError(t, err)
	require.NotNil(t, filing)
	assert.Equal(t, "2024-05-15", filing.FilingDate)
	assert.Equal(t, "0000950123-24-005678", filing.AccessionNumber)
	assert.Contains(t, filing.TxtURL, "/Archives/0000950123-24-005678.txt")

	path, err := c.DownloadFiling(ctx, "brk-b", filing)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.downloadDir, "BRK-B", "BRK-B_2024-05-15.txt"), path)

	holdings, err := c.ParseHoldings(path)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "APPLE INC", holdings[0].Issuer)
	assert.Equal(t, "500", holdings[0].Shares)
	assert.Equal(t, "SH", holdings[0].SharesType)
	assert.Equal(t, "200", holdings[1].VotingShared)
}

func TestEdgarNoFilings(t *testing.T) {
	var hits int32
	c := newTestEdgar(t, &hits)
	filing, err := c.LatestFiling(context.Background(), "320193")
	require.NoError(t, err)
	assert.Nil(t, filing)
}

func TestParseInformationTableMissingOrMalformed(t *testing.T) {
	assert.Empty(t, ParseInformationTable([]byte("no table here")))
	assert.Empty(t, ParseInformationTable([]byte("<informationTable><infoTable><cusip>1</informationTable>")))
	assert.NotNil(t, ParseInformationTable(nil))
}

func TestParseHoldingsMissingFile(t *testing.T) {
	c := NewEdgarClient(config.DefaultConfigWithRoot(t.TempDir()))
	_, err := c.ParseHoldings(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLatestHoldings(t *testing.T) {
	var hits int32
	c := newTestEdgar(t, &hits)
	ctx := context.Background()

	filing, err := LatestHoldings(ctx, c, "brk.b")
	require.NoError(t, err)
	require.NotNil(t, filing)
	require.NotNil(t, filing.DownloadedFile)
	assert.Len(t, filing.Holdings, 2)

	filing, err = LatestHoldings(ctx, c, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, filing)

	_, err = LatestHoldings(ctx, c, "ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(ErrMissingAPIKey))
}
