package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	panelapi "github.com/oshokin/alarm-panel/internal/api/grpc/panel"
	"github.com/oshokin/alarm-panel/internal/api/httpapi"
	"github.com/oshokin/alarm-panel/internal/api/mqtt/hassio"
	"github.com/oshokin/alarm-panel/internal/config"
	"github.com/oshokin/alarm-panel/internal/coordinator"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/metrics"
	repository "github.com/oshokin/alarm-panel/internal/repository/state"
	"github.com/oshokin/alarm-panel/internal/service/adapter"
	"github.com/oshokin/alarm-panel/internal/vendors/yale"
	"github.com/oshokin/alarm-panel/internal/version"
	"github.com/oshokin/alarm-panel/internal/worker"
)

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

// Options controls the alarm-panel server process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address.
	ListenAddress string
	// HTTPAddress overrides the metrics and health listen address.
	HTTPAddress string
	// StateFile overrides the status snapshot path.
	StateFile string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts every component and blocks until ctx is canceled or one of them fails.
//
//nolint:funlen // Linear wiring of the process.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Before any logger is bound to ctx, or it keeps the previous format.
	applyLogSettings(settings)

	ctx = logger.WithName(ctx, "alarm-panel")

	stateFile := settings.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	ctx = logger.WithKV(ctx, "entry", settings.Entry.ID)

	client, err := yale.New(
		settings.Yale.BaseURL,
		settings.Yale.Username,
		settings.Yale.Password,
		yale.WithClientCredential(settings.Yale.ClientCredential),
		yale.WithTimeout(settings.Yale.Timeout),
		yale.WithUserAgent(version.UserAgent()),
	)
	if err != nil {
		return fmt.Errorf("create yale client: %w", err)
	}

	if err = login(ctx, client); err != nil {
		return err
	}

	pool, err := worker.NewPool(ctx, settings.Workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}

	defer pool.Release()

	observer := metrics.New()

	coord := coordinator.New(
		ctx,
		coordinator.Entry{
			ID:   settings.Entry.ID,
			Name: settings.Entry.Name,
			Code: settings.Entry.Code,
		},
		client,
		pool,
		coordinator.WithRepository(repository.NewFileRepository(stateFile)),
		coordinator.WithPollInterval(settings.PollInterval),
		coordinator.WithRefreshObserver(observer.ObserveRefresh),
	)

	panel := adapter.New(coord, pool, adapter.WithCommandObserver(observer.ObserveCommand))

	gauge := metrics.NewPanelGauge(observer, panel)
	panel.AddPublisher(gauge)
	coord.AddListener(gauge.OnStatus)

	if settings.MQTT.Enabled() {
		stopBridge, bridgeErr := startBridge(ctx, settings, panel, coord)
		if bridgeErr != nil {
			return bridgeErr
		}

		defer stopBridge()
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	panelapi.RegisterAlarmPanelServer(grpcServer, panelapi.NewServer(panel))

	logger.InfoKV(ctx, "Alarm panel server listening",
		"listen_address", listenAddress,
		"http_address", httpAddress,
		"state_file", stateFile,
		"version", version.Short(),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return coord.Run(groupCtx)
	})

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	if httpAddress != "" {
		startHTTP(ctx, groupCtx, group, httpapi.NewServer(httpAddress, httpapi.NewHandler(observer.Handler(), panel)))
	}

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Alarm panel server stopped")

	return nil
}

// login fails fast on refused credentials; other failures are retried by the coordinator.
func login(ctx context.Context, client *yale.Client) error {
	err := client.Login()
	if err == nil {
		return nil
	}

	if kind, ok := yale.KindOf(err); ok && kind == yale.KindAuthentication {
		return fmt.Errorf("log in to yale: %w", err)
	}

	logger.WarnKV(ctx, "Yale login failed, will retry on first refresh", "error", err)

	return nil
}

// startBridge connects to the broker and announces the panel to Home Assistant.
func startBridge(
	ctx context.Context,
	settings *config.Config,
	panel *adapter.Adapter,
	coord *coordinator.Coordinator,
) (func(), error) {
	topics := hassio.NewTopics(settings.MQTT.DiscoveryPrefix, settings.MQTT.NodeID, settings.Entry.ID)

	var current atomic.Pointer[hassio.Bridge]

	broker, err := hassio.Connect(ctx, hassio.BrokerOptions{
		URL:         settings.MQTT.URL,
		Username:    settings.MQTT.Username,
		Password:    settings.MQTT.Password,
		ClientID:    settings.MQTT.ClientID,
		QoS:         settings.MQTT.QoS,
		WillTopic:   topics.Availability,
		WillPayload: hassio.PayloadOffline,
		OnConnect: func() {
			if bridge := current.Load(); bridge != nil {
				if announceErr := bridge.Announce(ctx); announceErr != nil {
					logger.ErrorKV(ctx, "Failed to announce panel after reconnect", "error", announceErr)
				}
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", err)
	}

	bridge := hassio.NewBridge(panel, broker, topics, version.Short())

	if err = bridge.Start(ctx); err != nil {
		broker.Disconnect()

		return nil, fmt.Errorf("start home assistant bridge: %w", err)
	}

	current.Store(bridge)
	panel.AddPublisher(bridge)
	coord.AddListener(bridge.OnStatus)

	return func() {
		bridge.Stop(context.WithoutCancel(ctx))
		broker.Disconnect()
	}, nil
}

// startHTTP serves the operational endpoints until groupCtx is done.
func startHTTP(ctx, groupCtx context.Context, group *errgroup.Group, srv *http.Server) {
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}

		return nil
	})
}

// applyLogSettings sets the global level and format from the settings.
func applyLogSettings(settings *config.Config) {
	if format, ok := logger.ParseFormat(settings.LogFormat); ok && format != logger.FormatConsole {
		logger.Configure(format)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}
}

// resolveListenAddress returns override when set, otherwise ":<port>" of configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return ":" + port, nil
}
