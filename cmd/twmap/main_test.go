package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jchantrell/twmap/internal/config"
	"github.com/jchantrell/twmap/internal/export"
	"github.com/jchantrell/twmap/internal/format"
	"github.com/jchantrell/twmap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a fresh empty config file. Flag values
// persist between calls, so tests reset the flags they rely on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "twmap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--no-progress", "--log-level", "error"}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeMaps(t *testing.T) (good, bad string) {
	t.Helper()
	dir := t.TempDir()

	good = filepath.Join(dir, "dm1.map")
	require.NoError(t, os.WriteFile(good, testutil.NewBuilder(format.Version4).
		AddItem(0, 0, 1).AddItem(4, 0).AddItem(4, 1).
		AddData([]byte("first")).AddData([]byte("second")).Bytes(), 0o644))

	bad = filepath.Join(dir, "bad.map")
	image := testutil.Minimal(format.Version3)
	copy(image, "XXXX")
	require.NoError(t, os.WriteFile(bad, image, 0o644))

	return good, bad
}

func TestInfo(t *testing.T) {
	good, _ := writeMaps(t)

	out, err := execute(t, "info", good)
	require.NoError(t, err)
	assert.Contains(t, out, "version: v4\n")
	assert.Contains(t, out, "item types: 2\n")
	assert.Contains(t, out, "items: 3\n")
	assert.Contains(t, out, "data: 2 (11 B)\n")
	assert.Contains(t, out, "4          1          2")
}

func TestInfo_Invalid(t *testing.T) {
	_, bad := writeMaps(t)

	_, err := execute(t, "info", bad)
	assert.ErrorContains(t, err, "wrong magic")
}

func TestDump(t *testing.T) {
	good, _ := writeMaps(t)

	out, err := execute(t, "dump", good)
	require.NoError(t, err)
	assert.Contains(t, out, "num_items: 3")
	assert.Contains(t, out, "second")
}

func TestExtract(t *testing.T) {
	good, _ := writeMaps(t)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := execute(t, "extract", good, "-o", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, export.FileName(1)))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestStatsAndQuery(t *testing.T) {
	good, bad := writeMaps(t)
	dbFile := filepath.Join(t.TempDir(), "results.db")

	out, err := execute(t, "stats", "-j", "2", "-d", dbFile, good, bad, good)
	require.NoError(t, err)
	assert.Contains(t, out, bad+": datafile format error: wrong magic")
	assert.Contains(t, out, "wrong magic: \"XXXX\": 1\n")
	assert.Contains(t, out, "ok: 2\n--------\n")
	assert.Contains(t, out, "  v4: 2\n")

	out, err = execute(t, "query", "-d", dbFile, "--runs")
	require.NoError(t, err)
	assert.Contains(t, out, "Started")

	out, err = execute(t, "query", "-d", dbFile, "--runs=false", "--run", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "wrong magic")

	out, err = execute(t, "query", "-d", dbFile, "--runs=false", "--run", "0", "SELECT status, COUNT(*) AS n FROM files GROUP BY status ORDER BY status")
	require.NoError(t, err)
	assert.Equal(t, "status\tn\n------\t-\nformat\t1\nok\t1\n", out)
}

func TestStats_NoArgs(t *testing.T) {
	_, err := execute(t, "stats")
	assert.Error(t, err)
}

func TestOpenMap_S3WithoutEndpoint(t *testing.T) {
	cfg = &config.Config{}

	_, err := openMap(context.Background(), "s3://maps/dm1.map")
	assert.ErrorContains(t, err, "endpoint")
}
