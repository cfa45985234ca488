package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/forecastbot/internal/domain"
)

const (
	defaultBaseURL = "https://api.bybit.com"

	// La API pública de klines permite bastante más; 10/s deja margen de
	// sobra para un bot que pide una barra por hora y algún backfill.
	klineRatePerSec = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// La API limita cada página de klines a 1000 barras.
	klinePageLimit = 1000
)

// Client es el cliente HTTP del mercado con rate limiting y retries.
// Implementa ports.PriceSource contra la API spot estilo Bybit v5.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient crea un Client con el base URL dado (vacío = producción).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(klineRatePerSec, 5),
	}
}

// FetchLatest devuelve la última barra horaria COMPLETADA del símbolo.
// Un fallo transitorio devuelve ok=false, nunca tumba el ciclo: el
// siguiente tick lo reintenta.
func (c *Client) FetchLatest(ctx context.Context, symbol string) (domain.Candle, bool, error) {
	end := time.Now().UTC().Truncate(time.Hour)
	start := end.Add(-time.Hour)

	candles, err := c.FetchRange(ctx, symbol, start, end)
	if err != nil {
		slog.Warn("market data fetch failed, treating as absent", "symbol", symbol, "err", err)
		return domain.Candle{}, false, nil
	}
	if len(candles) == 0 {
		return domain.Candle{}, false, nil
	}
	// La última barra cuyo ts está ya cerrado. Una barra que abre después
	// de `start` sigue en curso; si es lo único que devolvió la API no hay
	// nada que cachear todavía.
	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].Timestamp.After(start) {
			return candles[i], true, nil
		}
	}
	return domain.Candle{}, false, nil
}

// FetchRange devuelve las barras horarias del símbolo en [start, end],
// paginando hacia atrás hasta cubrir el rango completo.
func (c *Client) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	var all []domain.Candle
	cursor := end

	for cursor.After(start) {
		page, err := c.fetchKlinePage(ctx, symbol, start, cursor)
		if err != nil {
			return nil, fmt.Errorf("marketdata.FetchRange: %w", err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		oldest := page[len(page)-1].Timestamp
		if !oldest.Before(cursor) {
			break // sin progreso: cortar antes que loopear
		}
		cursor = oldest.Add(-time.Hour)
	}

	// La API devuelve las barras más recientes primero; el resto del
	// sistema espera orden cronológico.
	reverse(all)
	return all, nil
}

// fetchKlinePage pide una página de klines horarias terminando en end.
func (c *Client) fetchKlinePage(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", apiSymbol(symbol))
	q.Set("interval", "60") // minutos
	q.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(klinePageLimit))

	endpoint := c.baseURL + "/v5/market/kline?" + q.Encode()

	var out klineResponse
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if out.RetCode != 0 {
		return nil, fmt.Errorf("api error %d: %s", out.RetCode, out.RetMsg)
	}

	candles := make([]domain.Candle, 0, len(out.Result.List))
	for _, row := range out.Result.List {
		candle, ok := parseKlineRow(symbol, row)
		if !ok {
			slog.Debug("malformed kline row, skipping", "symbol", symbol)
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// get hace un GET con rate limiting y retries con backoff exponencial.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("market API retryable error", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// klineResponse es el envelope estándar de la API v5.
type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol string     `json:"symbol"`
		List   [][]string `json:"list"` // [startMs, open, high, low, close, volume, turnover]
	} `json:"result"`
}

// parseKlineRow convierte una fila cruda de la API en una Candle.
// ok=false si la fila no tiene el formato esperado.
func parseKlineRow(symbol string, row []string) (domain.Candle, bool) {
	if len(row) < 6 {
		return domain.Candle{}, false
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return domain.Candle{}, false
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return domain.Candle{}, false
		}
		vals[i] = v
	}

	return domain.Candle{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, true
}

// apiSymbol mapea el símbolo interno ("BTC-USD") al formato del exchange
// ("BTCUSDT").
func apiSymbol(symbol string) string {
	s := strings.ReplaceAll(symbol, "-", "")
	if strings.HasSuffix(s, "USD") {
		s += "T"
	}
	return s
}

func reverse(candles []domain.Candle) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
