package model

// subprocess.go runs the external model tooling. Training and inference are
// out of scope for the controller: each model type maps to one command
// (typically a python entrypoint) invoked with a "train" or "forecast"
// subcommand. The call is blocking by contract — a long training run simply
// delays the owning job, never unrelated ones.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/ports"
)

// Runner implements ports.Trainer and ports.Forecaster over external
// per-model commands.
type Runner struct {
	commands map[domain.ModelType]string
	registry ports.ModelRegistry
}

// NewRunner creates a Runner. commands maps model type → base command line
// (e.g. "python3 model/arima_model.py"). registry may be nil if version
// bookkeeping is not wanted (backtests).
func NewRunner(commands map[string]string, registry ports.ModelRegistry) *Runner {
	cmds := make(map[domain.ModelType]string, len(commands))
	for k, v := range commands {
		cmds[domain.ModelType(k)] = v
	}
	return &Runner{commands: cmds, registry: registry}
}

// trainOutput is the optional metadata the training command may emit as its
// last stdout line. Missing metadata records a bare version.
type trainOutput struct {
	DataRangeFrom  time.Time         `json:"data_range_from"`
	DataRangeTo    time.Time         `json:"data_range_to"`
	Hyperparams    map[string]string `json:"hyperparameters"`
	InitialMetrics struct {
		MAE  float64 `json:"mae"`
		RMSE float64 `json:"rmse"`
		MAPE float64 `json:"mape"`
	} `json:"initial_metrics"`
}

// Retrain runs the training command for the given model type, blocking until
// it exits. On success a new model version is catalogued.
func (r *Runner) Retrain(ctx context.Context, model domain.ModelType) error {
	base, ok := r.commands[model]
	if !ok {
		return fmt.Errorf("model.Retrain: no training command configured for %q", model)
	}

	slog.Info("starting model retraining", "model", model)
	start := time.Now()

	stdout, err := r.run(ctx, base, "train")
	if err != nil {
		return fmt.Errorf("model.Retrain: %s: %w", model, err)
	}

	slog.Info("model retraining complete",
		"model", model,
		"duration", time.Since(start).Round(time.Second),
	)

	if r.registry == nil {
		return nil
	}

	version := domain.ModelVersion{
		ID:        fmt.Sprintf("%s_%s", model, uuid.New().String()),
		Type:      model,
		TrainedAt: time.Now().UTC(),
	}
	if meta, ok := parseTrainOutput(stdout); ok {
		version.DataRange = domain.DataRange{From: meta.DataRangeFrom, To: meta.DataRangeTo}
		version.Hyperparams = meta.Hyperparams
		version.InitialMetrics = domain.MetricSet{
			MAE:  meta.InitialMetrics.MAE,
			RMSE: meta.InitialMetrics.RMSE,
			MAPE: meta.InitialMetrics.MAPE,
		}
	}

	if err := r.registry.SaveVersion(ctx, version); err != nil {
		// Version bookkeeping failing must not undo a successful training run.
		slog.Error("failed to record model version", "model", model, "err", err)
	}
	return nil
}

// Forecast runs the inference subcommand and decodes its JSON output:
// an array of {"timestamp": unixSeconds, "value": float}.
func (r *Runner) Forecast(ctx context.Context, model domain.ModelType, horizon, symbol string) ([]ports.PredictedPoint, error) {
	base, ok := r.commands[model]
	if !ok {
		return nil, fmt.Errorf("model.Forecast: no command configured for %q", model)
	}

	stdout, err := r.run(ctx, base, "forecast", "--horizon", horizon, "--symbol", symbol)
	if err != nil {
		return nil, fmt.Errorf("model.Forecast: %s: %w", model, err)
	}

	var points []ports.PredictedPoint
	if err := json.Unmarshal(lastJSONLine(stdout), &points); err != nil {
		return nil, fmt.Errorf("model.Forecast: decode output: %w", err)
	}
	return points, nil
}

// run executes "base args..." and returns its stdout. Stderr goes to the
// error on failure so the operator sees what the script complained about.
func (r *Runner) run(ctx context.Context, base string, args ...string) ([]byte, error) {
	parts := strings.Fields(base)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, parts[0], append(parts[1:], args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w (stderr: %s)", parts[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// parseTrainOutput decodes the optional metadata line from a training run.
func parseTrainOutput(stdout []byte) (trainOutput, bool) {
	var meta trainOutput
	line := lastJSONLine(stdout)
	if len(line) == 0 {
		return trainOutput{}, false
	}
	if err := json.Unmarshal(line, &meta); err != nil {
		return trainOutput{}, false
	}
	return meta, true
}

// lastJSONLine returns the last non-empty stdout line that looks like JSON.
// Training scripts tend to log progress before printing their result.
func lastJSONLine(stdout []byte) []byte {
	lines := bytes.Split(stdout, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}
		if line[0] == '{' || line[0] == '[' {
			return line
		}
	}
	return nil
}
