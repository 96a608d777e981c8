package integration

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/service/adapter"
	"github.com/oshokin/alarm-panel/internal/service/checker"
	"github.com/oshokin/alarm-panel/internal/service/client"
	"github.com/oshokin/alarm-panel/internal/service/common"
	"github.com/oshokin/alarm-panel/internal/service/server"
)

// freeAddress reserves a local port and releases it for the server.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// startServer runs server.Run until the returned stop function is called.
func startServer(t *testing.T, yaleURL, code, statePath string) (grpcAddr, httpAddr string, stop func()) {
	t.Helper()

	grpcAddr, httpAddr = freeAddress(t), freeAddress(t)
	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")

	require.NoError(t, config.Save(cfgPath, &config.Config{
		ServerAddress: grpcAddr,
		HTTPAddress:   httpAddr,
		StateFile:     statePath,
		Timeout:       3 * time.Second,
		PollInterval:  200 * time.Millisecond,
		Entry:         config.EntryConfig{Name: "Front Door", Code: code},
		Yale: config.YaleConfig{
			BaseURL:          yaleURL,
			Username:         "owner@example.com",
			Password:         "secret",
			ClientCredential: yaleClientCredential,
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	return grpcAddr, httpAddr, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func waitAvailable(t *testing.T, c *common.Client) {
	t.Helper()

	require.Eventually(t, func() bool {
		info, err := c.GetPanel(context.Background())

		return err == nil && info.Available
	}, 5*time.Second, 50*time.Millisecond)
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(body)
}

func ptr(s string) *string {
	return &s
}

// TestPanel_ArmAwayThenDisarm drives a full arm and disarm cycle through gRPC.
func TestPanel_ArmAwayThenDisarm(t *testing.T) {
	t.Parallel()

	yale, yaleURL := newFakeYale(t, "disarm")
	statePath := filepath.Join(t.TempDir(), "state.json")

	grpcAddr, httpAddr, stop := startServer(t, yaleURL, "9999", statePath)
	defer stop()

	c := dial(t, grpcAddr)
	waitAvailable(t, c)

	ctx := context.Background()

	info, err := c.GetPanel(ctx)
	require.NoError(t, err)
	require.Equal(t, "front_door", info.UniqueID)
	require.Equal(t, "Front Door", info.Name)
	require.Equal(t, "disarmed", info.State)
	require.Equal(t, "number", info.CodeFormat)
	require.False(t, info.CodeArmRequired)

	info, err = c.Command(ctx, adapter.CommandArmAway, nil)
	require.NoError(t, err)
	require.Equal(t, "armed_away", info.State)

	_, err = c.Command(ctx, adapter.CommandDisarm, ptr("0000"))
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	info, err = c.Command(ctx, adapter.CommandDisarm, ptr("9999"))
	require.NoError(t, err)
	require.Equal(t, "disarmed", info.State)

	require.Equal(t, []string{"arm", "disarm"}, yale.Commands())

	_, err = os.Stat(statePath)
	require.NoError(t, err)

	code, _ := httpGet(t, "http://"+httpAddr+"/ready")
	require.Equal(t, http.StatusOK, code)

	code, body := httpGet(t, "http://"+httpAddr+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `alarm_panel_commands_total{command="disarm",result="invalid_code"} 1`)
	require.Contains(t, body, `alarm_panel_commands_total{command="arm_away",result="ok"} 1`)
}

// TestPanel_UnknownStatusIsUnavailable degrades availability on unknown modes.
func TestPanel_UnknownStatusIsUnavailable(t *testing.T) {
	t.Parallel()

	yale, yaleURL := newFakeYale(t, "home")

	grpcAddr, httpAddr, stop := startServer(t, yaleURL, "abcd", filepath.Join(t.TempDir(), "state.json"))
	defer stop()

	c := dial(t, grpcAddr)
	waitAvailable(t, c)

	info, err := c.GetPanel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "armed_home", info.State)
	require.Equal(t, "text", info.CodeFormat)

	yale.SetMode("maintenance")

	require.Eventually(t, func() bool {
		info, err := c.GetPanel(context.Background())

		return err == nil && !info.Available && info.State == ""
	}, 5*time.Second, 50*time.Millisecond)

	code, _ := httpGet(t, "http://"+httpAddr+"/ready")
	require.Equal(t, http.StatusServiceUnavailable, code)
}

// TestCLI_StatusAndCommand runs the client and checker services against the server.
func TestCLI_StatusAndCommand(t *testing.T) {
	t.Parallel()

	_, yaleURL := newFakeYale(t, "disarm")

	grpcAddr, _, stop := startServer(t, yaleURL, "1234", filepath.Join(t.TempDir(), "state.json"))
	defer stop()

	waitAvailable(t, dial(t, grpcAddr))

	var out bytes.Buffer

	require.NoError(t, client.Run(context.Background(), &client.Options{
		ServerAddress: grpcAddr,
		Command:       adapter.CommandArmHome,
		Out:           &out,
	}))
	require.Contains(t, out.String(), "Front Door: armed_home, available")

	out.Reset()

	require.NoError(t, checker.Run(context.Background(), &checker.Options{
		ServerAddress: grpcAddr,
		Out:           &out,
	}))
	require.Contains(t, out.String(), "Front Door: armed_home, available")

	err := client.Run(context.Background(), &client.Options{
		ServerAddress: grpcAddr,
		Command:       adapter.CommandDisarm,
	})
	require.Equal(t, codes.PermissionDenied, status.Code(err))
}

// TestPanel_RestoresSnapshot reports the last status after a restart.
func TestPanel_RestoresSnapshot(t *testing.T) {
	t.Parallel()

	yale, yaleURL := newFakeYale(t, "arm")
	statePath := filepath.Join(t.TempDir(), "state.json")

	grpcAddr, _, stop := startServer(t, yaleURL, "1234", statePath)
	c := dial(t, grpcAddr)
	waitAvailable(t, c)

	first, err := c.GetPanel(context.Background())
	require.NoError(t, err)
	stop()

	yale.SetMode("arm")

	grpcAddr, _, stop = startServer(t, yaleURL, "1234", statePath)
	defer stop()

	c = dial(t, grpcAddr)
	waitAvailable(t, c)

	second, err := c.GetPanel(context.Background())
	require.NoError(t, err)
	require.Equal(t, "armed_away", second.State)
	require.True(t, first.ChangedAt.Equal(second.ChangedAt))
}
