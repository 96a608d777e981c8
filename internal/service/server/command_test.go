package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/logger"
)

// TestResolveListenAddress prefers the override and keeps only the config port.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("panel.local:7000", "")
	require.NoError(t, err)
	require.Equal(t, ":7000", addr)

	addr, err = resolveListenAddress("panel.local:7000", "127.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

// TestRun_InvalidConfig fails before starting anything.
func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_addr: 127.0.0.1:7000\n"), 0o600))

	err := Run(context.Background(), &Options{ConfigPath: path})
	require.ErrorContains(t, err, "load settings")

	err = Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorContains(t, err, "load settings")
}

// captureStdout redirects os.Stdout into a pipe until the returned function
// is called, which restores it and returns everything written.
func captureStdout(t *testing.T) func() []byte {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	original := os.Stdout
	os.Stdout = w

	output := make(chan []byte, 1)

	go func() {
		data, _ := io.ReadAll(r)
		output <- data
	}()

	return func() []byte {
		os.Stdout = original

		require.NoError(t, w.Close())

		return <-output
	}
}

// TestRun_JSONLogFormat writes every server log line as JSON.
// It swaps os.Stdout and the global logger, so it does not run in parallel.
func TestRun_JSONLogFormat(t *testing.T) {
	previous := logger.Logger()
	t.Cleanup(func() { logger.SetLogger(previous) })

	// Unreachable vendor: login only warns, through the server's named logger.
	vendor := httptest.NewServer(http.NotFoundHandler())
	vendorURL := vendor.URL
	vendor.Close()

	// Occupied port: Run stops right after the first logs.
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = busy.Close() })

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	require.NoError(t, config.Save(path, &config.Config{
		ServerAddress: busy.Addr().String(),
		StateFile:     filepath.Join(dir, "state.json"),
		LogFormat:     string(logger.FormatJSON),
		Entry:         config.EntryConfig{Name: "Front Door", Code: "1234"},
		Yale: config.YaleConfig{
			BaseURL:          vendorURL + "/yapi",
			Username:         "owner@example.com",
			Password:         "secret",
			ClientCredential: "dGVzdC1jbGllbnQ6dGVzdC1zZWNyZXQ=",
		},
	}))

	stop := captureStdout(t)

	err = Run(context.Background(), &Options{ConfigPath: path, ListenAddress: busy.Addr().String()})

	output := stop()

	require.ErrorContains(t, err, "listen on")

	var lines int

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry), string(line))

		if entry["message"] == "Yale login failed, will retry on first refresh" {
			require.Equal(t, "alarm-panel", entry["logger"])
			require.Equal(t, "front_door", entry["entry"])
		}

		lines++
	}

	require.NoError(t, scanner.Err())
	require.Positive(t, lines)
	require.Contains(t, string(output), "Yale login failed")
}
