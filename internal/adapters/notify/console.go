package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// Console implementa ports.Reporter escribiendo a stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// CycleSummary imprime el resumen de un ciclo en una línea.
func (c *Console) CycleSummary(_ context.Context, s ports.CycleSummary) error {
	now := time.Now().Format("15:04:05")
	retrain := ""
	if s.RetrainFired {
		retrain = " RETRAIN"
	}
	fmt.Fprintf(c.out, "[%s] %s $%.2f | resolved:%d | %s | portfolio $%.2f%s\n",
		now, s.Symbol, s.Price, s.Resolved, s.Action, s.PortfolioValue, retrain)
	return nil
}

// Report imprime el informe completo: estado del portfolio, rendimiento,
// transacciones recientes y la rejilla de precisión por (modelo, horizonte).
func (c *Console) Report(_ context.Context, r ports.Report) error {
	c.printPortfolio(r.Portfolio, r.Prices)
	c.printPerformance(r.Performance)
	c.printTransactions(r.Transactions)
	c.printAccuracy(r.Accuracy)
	c.printVersions(r.Versions)
	return nil
}

// printPortfolio imprime cash y posiciones con su valor actual.
func (c *Console) printPortfolio(p domain.Portfolio, prices map[string]float64) {
	fmt.Fprintf(c.out, "\n=== PORTFOLIO — total $%.2f ===\n", p.Value(prices))

	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Quantity", "Price", "Value")
	table.Append("cash", "—", "—", fmt.Sprintf("$%.2f", p.Cash))

	symbols := make([]string, 0, len(p.Holdings))
	for s := range p.Holdings {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, s := range symbols {
		qty := p.Holdings[s]
		price := prices[s]
		table.Append(
			s,
			fmt.Sprintf("%.6f", qty),
			fmt.Sprintf("$%.2f", price),
			fmt.Sprintf("$%.2f", qty*price),
		)
	}
	table.Render()
}

// printPerformance imprime las métricas de retorno/riesgo.
func (c *Console) printPerformance(m domain.PerformanceMetrics) {
	fmt.Fprintln(c.out, "\n=== PERFORMANCE ===")

	table := tablewriter.NewWriter(c.out)
	table.Header("Total ret", "Annual ret", "Annual vol", "Sharpe", "Max DD")
	table.Append(
		fmt.Sprintf("%.2f%%", m.TotalReturn*100),
		fmt.Sprintf("%.2f%%", m.AnnualizedReturn*100),
		fmt.Sprintf("%.2f%%", m.AnnualizedVolatility*100),
		fmt.Sprintf("%.2f", m.SharpeRatio),
		fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
	)
	table.Render()
}

// printTransactions imprime las transacciones más recientes (máx 10).
func (c *Console) printTransactions(txs []domain.Transaction) {
	fmt.Fprintf(c.out, "\n=== TRANSACTIONS (%d) ===\n", len(txs))
	if len(txs) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}

	shown := txs
	if len(shown) > 10 {
		shown = shown[:10]
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Type", "Symbol", "Qty", "Price", "Total")
	for _, tx := range shown {
		table.Append(
			tx.Timestamp.Format("2006-01-02 15:04"),
			string(tx.Type),
			tx.Symbol,
			fmt.Sprintf("%.6f", tx.Quantity),
			fmt.Sprintf("$%.2f", tx.Price),
			fmt.Sprintf("$%.2f", tx.Total),
		)
	}
	table.Render()
}

// printAccuracy imprime la rejilla (modelo × horizonte) de métricas.
func (c *Console) printAccuracy(cells []ports.AccuracyCell) {
	fmt.Fprintln(c.out, "\n=== MODEL ACCURACY ===")

	table := tablewriter.NewWriter(c.out)
	table.Header("Model", "Horizon", "MAE", "RMSE", "MAPE")
	for _, cell := range cells {
		if cell.Metrics == nil {
			table.Append(string(cell.Model), cell.Horizon, "—", "—", "—")
			continue
		}
		mape := "undef"
		if !math.IsNaN(cell.Metrics.MAPE) {
			mape = fmt.Sprintf("%.2f%%", cell.Metrics.MAPE)
		}
		table.Append(
			string(cell.Model),
			cell.Horizon,
			fmt.Sprintf("%.2f", cell.Metrics.MAE),
			fmt.Sprintf("%.2f", cell.Metrics.RMSE),
			mape,
		)
	}
	table.Render()
}

// printVersions imprime la última versión entrenada de cada modelo.
func (c *Console) printVersions(versions []domain.ModelVersion) {
	if len(versions) == 0 {
		return
	}
	fmt.Fprintln(c.out, "\n=== MODEL VERSIONS ===")

	table := tablewriter.NewWriter(c.out)
	table.Header("Model", "Trained at", "Data range", "MAE")
	for _, v := range versions {
		table.Append(
			string(v.Type),
			v.TrainedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%s → %s",
				v.DataRange.From.Format("2006-01-02"),
				v.DataRange.To.Format("2006-01-02")),
			fmt.Sprintf("%.2f", v.InitialMetrics.MAE),
		)
	}
	table.Render()
}
