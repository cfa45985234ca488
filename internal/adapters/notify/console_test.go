package notify_test

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastbot/internal/adapters/notify"
	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	err := c.CycleSummary(context.Background(), ports.CycleSummary{
		Symbol:         "BTC-USD",
		Price:          50123.45,
		Resolved:       3,
		Action:         "BUY",
		PortfolioValue: 10250.00,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "BTC-USD $50123.45")
	assert.Contains(t, out, "resolved:3")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "portfolio $10250.00")
	assert.NotContains(t, out, "RETRAIN")
}

func TestCycleSummaryFlagsRetrain(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	err := c.CycleSummary(context.Background(), ports.CycleSummary{
		Symbol:       "BTC-USD",
		Action:       "HOLD",
		RetrainFired: true,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "RETRAIN")
}

func TestReportSections(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	p := domain.NewPortfolio(500)
	p.Holdings["BTC-USD"] = 0.19

	undef := domain.MetricSet{MAE: 90, RMSE: 120, MAPE: math.NaN()}
	known := domain.MetricSet{MAE: 150.5, RMSE: 200.25, MAPE: 1.75}

	err := c.Report(context.Background(), ports.Report{
		Portfolio: p,
		Prices:    map[string]float64{"BTC-USD": 50000},
		Transactions: []domain.Transaction{{
			ID:        "tx-1",
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Symbol:    "BTC-USD",
			Type:      domain.TransactionBuy,
			Quantity:  0.02,
			Price:     50000,
			Total:     1000,
		}},
		Performance: domain.PerformanceMetrics{TotalReturn: 0.025, SharpeRatio: 1.2, MaxDrawdown: -0.05},
		Accuracy: []ports.AccuracyCell{
			{Model: domain.ModelARIMA, Horizon: "24h", Metrics: &known},
			{Model: domain.ModelLSTM, Horizon: "24h", Metrics: &undef},
			{Model: domain.ModelLSTM, Horizon: "72h", Metrics: nil},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "PORTFOLIO")
	assert.Contains(t, out, "total $10000.00") // 500 cash + 0.19 × 50000
	assert.Contains(t, out, "PERFORMANCE")
	assert.Contains(t, out, "2.50%")
	assert.Contains(t, out, "TRANSACTIONS (1)")
	assert.Contains(t, out, "BUY")
	assert.Contains(t, out, "MODEL ACCURACY")
	assert.Contains(t, out, "150.50")
	// Undefined MAPE renders as a label, never as NaN.
	assert.Contains(t, out, "undef")
	assert.NotContains(t, out, "NaN")
}

func TestReportEmptyTransactions(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	err := c.Report(context.Background(), ports.Report{Portfolio: domain.NewPortfolio(10000)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(none)")
}
