//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	panelapi "github.com/oshokin/alarm-panel/internal/api/grpc/panel"
	"github.com/oshokin/alarm-panel/internal/config"
	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/service/adapter"
)

// Client wraps the AlarmPanelService stub with timeouts and caller identity.
type Client struct {
	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn
	// api is the service stub.
	api panelapi.AlarmPanelClient
	// actor is sent with every call when set.
	actor *domain.Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the caller to the server.
func WithActor(actor *domain.Actor) Option {
	return func(c *Client) {
		c.actor = actor.Clone()
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errUnknownCommand is returned by Command for names other than disarm, arm_home and arm_away.
	errUnknownCommand = errors.New("unknown command")
)

// Dial creates a client for the alarm-panel server at address.
// The connection uses insecure transport credentials.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm panel server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         panelapi.NewAlarmPanelClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetPanel returns the current panel snapshot.
func (c *Client) GetPanel(ctx context.Context) (panelapi.PanelInfo, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetPanel(callCtx, new(emptypb.Empty))
	if err != nil {
		return panelapi.PanelInfo{}, fmt.Errorf("get panel: %w", err)
	}

	return panelapi.PanelInfoFromStruct(resp)
}

// Command sends disarm, arm_home or arm_away with an optional code.
func (c *Client) Command(ctx context.Context, command string, code *string) (panelapi.PanelInfo, error) {
	var call func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

	switch command {
	case adapter.CommandDisarm:
		call = c.api.Disarm
	case adapter.CommandArmHome:
		call = c.api.ArmHome
	case adapter.CommandArmAway:
		call = c.api.ArmAway
	default:
		return panelapi.PanelInfo{}, fmt.Errorf("%w: %q", errUnknownCommand, command)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := call(callCtx, panelapi.NewCommandRequest(code))
	if err != nil {
		return panelapi.PanelInfo{}, fmt.Errorf("%s: %w", command, err)
	}

	return panelapi.PanelInfoFromStruct(resp)
}

// callContext applies the call timeout and the caller identity.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = panelapi.WithActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// ResolveServer returns the server address and call timeout.
// The settings file is only read when no override is given.
func ResolveServer(configPath, override string) (string, time.Duration, error) {
	if override != "" {
		return override, config.DefaultTimeout, nil
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return "", 0, fmt.Errorf("load settings: %w", err)
	}

	return settings.ServerAddress, settings.Timeout, nil
}

// FormatPanel renders a snapshot as one human-readable line.
func FormatPanel(info panelapi.PanelInfo) string {
	state := info.State
	if state == "" {
		state = "unknown"
	}

	availability := "unavailable"
	if info.Available {
		availability = "available"
	}

	changedAt := "<never>"
	if !info.ChangedAt.IsZero() {
		changedAt = info.ChangedAt.Local().Format(time.RFC3339)
	}

	return fmt.Sprintf("%s: %s, %s, changed at %s", info.Name, state, availability, changedAt)
}
