package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodcal/internal/config"
	"moodcal/internal/export"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := SetupLogger("debug")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Same(t, logger.Handler(), slog.Default().Handler())

	logger = SetupLogger("warn")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestExportTargets(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	targets, err := ExportTargets(ctx, &config.Config{})
	require.NoError(t, err)
	assert.Empty(t, targets)

	path := filepath.Join(t.TempDir(), "moods.csv")
	targets, err = ExportTargets(ctx, &config.Config{ExportCSVPath: path})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, export.CSVFile{Path: path}, targets[0])

	_, err = ExportTargets(ctx, &config.Config{GoogleSpreadsheetID: "sheet", GoogleSheetName: "Moods"})
	assert.Error(t, err, "sheets without credentials must fail")
}

func TestOpenBackend(t *testing.T) {
	res, err := OpenBackend(context.Background(), slog.Default(), &config.Config{DataBackend: "memory", MemoryDataDir: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, res.Cleanup())

	_, err = OpenBackend(context.Background(), slog.Default(), &config.Config{DataBackend: "nope"})
	assert.Error(t, err)
}
