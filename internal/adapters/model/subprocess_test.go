package model_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/forecastbot/internal/adapters/model"
	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRegistry struct {
	saved []domain.ModelVersion
}

func (m *mockRegistry) SaveVersion(_ context.Context, v domain.ModelVersion) error {
	m.saved = append(m.saved, v)
	return nil
}

func (m *mockRegistry) LatestVersion(_ context.Context, _ domain.ModelType) (domain.ModelVersion, bool, error) {
	return domain.ModelVersion{}, false, nil
}

// writeScript drops an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRetrainRecordsVersionWithMetadata(t *testing.T) {
	script := writeScript(t, `
echo "loading data..."
echo "fitting model..."
echo '{"data_range_from":"2026-01-01T00:00:00Z","data_range_to":"2026-03-01T00:00:00Z","hyperparameters":{"order":"(2,1,2)"},"initial_metrics":{"mae":90,"rmse":120,"mape":1.1}}'
`)
	registry := &mockRegistry{}
	runner := model.NewRunner(map[string]string{"arima": script}, registry)

	err := runner.Retrain(context.Background(), domain.ModelARIMA)
	require.NoError(t, err)

	require.Len(t, registry.saved, 1)
	v := registry.saved[0]
	assert.Equal(t, domain.ModelARIMA, v.Type)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "(2,1,2)", v.Hyperparams["order"])
	assert.InDelta(t, 90, v.InitialMetrics.MAE, 1e-9)
	assert.Equal(t, 2026, v.DataRange.From.Year())
}

func TestRetrainWithoutMetadataRecordsBareVersion(t *testing.T) {
	script := writeScript(t, `echo "done"`)
	registry := &mockRegistry{}
	runner := model.NewRunner(map[string]string{"arima": script}, registry)

	require.NoError(t, runner.Retrain(context.Background(), domain.ModelARIMA))
	require.Len(t, registry.saved, 1)
	assert.Empty(t, registry.saved[0].Hyperparams)
}

func TestRetrainFailureSurfacesStderr(t *testing.T) {
	script := writeScript(t, `
echo "could not converge" >&2
exit 1
`)
	registry := &mockRegistry{}
	runner := model.NewRunner(map[string]string{"arima": script}, registry)

	err := runner.Retrain(context.Background(), domain.ModelARIMA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not converge")
	assert.Empty(t, registry.saved)
}

func TestRetrainUnknownModel(t *testing.T) {
	runner := model.NewRunner(map[string]string{"arima": "true"}, nil)
	err := runner.Retrain(context.Background(), domain.ModelLSTM)
	assert.Error(t, err)
}

func TestForecastDecodesLastJSONLine(t *testing.T) {
	script := writeScript(t, `
echo "loading model..."
echo '[{"timestamp":1767225600,"value":50100.5},{"timestamp":1767229200,"value":50200.0}]'
`)
	runner := model.NewRunner(map[string]string{"lstm": script}, nil)

	points, err := runner.Forecast(context.Background(), domain.ModelLSTM, "24h", "BTC-USD")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1767225600), points[0].Timestamp)
	assert.InDelta(t, 50100.5, points[0].Value, 1e-9)
}

func TestForecastGarbageOutput(t *testing.T) {
	script := writeScript(t, `echo "no json here"`)
	runner := model.NewRunner(map[string]string{"lstm": script}, nil)

	_, err := runner.Forecast(context.Background(), domain.ModelLSTM, "24h", "BTC-USD")
	assert.Error(t, err)
}
