package marketdata_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/adapters/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func klineBody(rows ...[7]string) string {
	body := `{"retCode":0,"retMsg":"OK","result":{"symbol":"BTCUSDT","list":[`
	for i, r := range rows {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`["%s","%s","%s","%s","%s","%s","%s"]`,
			r[0], r[1], r[2], r[3], r[4], r[5], r[6])
	}
	return body + `]}}`
}

func TestFetchRange_Success(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		assert.Equal(t, "spot", r.URL.Query().Get("category"))
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "60", r.URL.Query().Get("interval"))

		// Newest bar first, like the real API.
		fmt.Fprint(w, klineBody(
			[7]string{strconv.FormatInt(end.UnixMilli(), 10), "50100", "50300", "50000", "50200", "11.5", "0"},
			[7]string{strconv.FormatInt(start.UnixMilli(), 10), "50000", "50150", "49900", "50100", "10.2", "0"},
		))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	candles, err := client.FetchRange(context.Background(), "BTC-USD", start, end)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	// Chronological order, regardless of API ordering.
	assert.True(t, candles[0].Timestamp.Equal(start))
	assert.True(t, candles[1].Timestamp.Equal(end))
	assert.Equal(t, "BTC-USD", candles[0].Symbol)
	assert.InDelta(t, 50100, candles[0].Close, 1e-9)
	assert.InDelta(t, 10.2, candles[0].Volume, 1e-9)
}

func TestFetchRange_SkipsMalformedRows(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klineBody(
			[7]string{strconv.FormatInt(end.UnixMilli(), 10), "not-a-number", "0", "0", "0", "0", "0"},
			[7]string{strconv.FormatInt(start.UnixMilli(), 10), "50000", "50150", "49900", "50100", "10.2", "0"},
		))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	candles, err := client.FetchRange(context.Background(), "BTC-USD", start, end)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 50100, candles[0].Close, 1e-9)
}

func TestFetchRange_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":10001,"retMsg":"params error","result":{"list":[]}}`)
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := client.FetchRange(context.Background(), "BTC-USD", start, start.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10001")
}

func TestFetchLatest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Echo a bar at the requested window start so the test does not
		// depend on wall-clock alignment.
		startMs := r.URL.Query().Get("start")
		fmt.Fprint(w, klineBody(
			[7]string{startMs, "50000", "50150", "49900", "50100", "10.2", "0"},
		))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	candle, ok, err := client.FetchLatest(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 50100, candle.Close, 1e-9)
}

func TestFetchLatest_OnlyInProgressBarIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Echo a single bar opening at the window end: the hour still in
		// progress, with no completed bar behind it.
		endMs := r.URL.Query().Get("end")
		fmt.Fprint(w, klineBody(
			[7]string{endMs, "50000", "50150", "49900", "50100", "10.2", "0"},
		))
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	_, ok, err := client.FetchLatest(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchLatest_SourceDownIsAbsentNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":10006,"retMsg":"rate limited","result":{"list":[]}}`)
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	_, ok, err := client.FetchLatest(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchLatest_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klineBody())
	}))
	defer srv.Close()

	client := marketdata.NewClient(srv.URL)
	_, ok, err := client.FetchLatest(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok)
}
