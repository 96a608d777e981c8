package hassio

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
)

// Bridge keeps one panel in sync with Home Assistant.
type Bridge struct {
	// panel is the published panel.
	panel domain.Panel
	// broker carries the messages.
	broker Broker
	// topics are derived from the discovery prefix and the entry id.
	topics Topics
	// swVersion is reported in the device block.
	swVersion string

	// ctxMu guards ctx.
	ctxMu sync.RWMutex
	// ctx is the context handlers run with, set by Start.
	ctx context.Context //nolint:containedctx // Broker callbacks carry no context.
}

// NewBridge creates a bridge for panel. Call Start once the broker is connected.
func NewBridge(panel domain.Panel, broker Broker, topics Topics, swVersion string) *Bridge {
	return &Bridge{
		panel:     panel,
		broker:    broker,
		topics:    topics,
		swVersion: swVersion,
		ctx:       context.Background(),
	}
}

// Topics returns the topics of the bridged panel.
func (b *Bridge) Topics() Topics {
	return b.topics
}

// Start subscribes to commands and Home Assistant restarts and announces the panel.
func (b *Bridge) Start(ctx context.Context) error {
	ctx = logger.WithKV(logger.WithName(ctx, "hassio"), "entry", b.panel.UniqueID())

	b.ctxMu.Lock()
	b.ctx = ctx
	b.ctxMu.Unlock()

	if err := b.broker.Subscribe(b.topics.Command, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}

	if err := b.broker.Subscribe(b.topics.Status, b.handleStatus); err != nil {
		return fmt.Errorf("subscribe to home assistant status: %w", err)
	}

	return b.Announce(ctx)
}

// Stop marks the panel offline.
func (b *Bridge) Stop(ctx context.Context) {
	if err := b.broker.Publish(b.topics.Availability, true, []byte(PayloadOffline)); err != nil {
		logger.WarnKV(ctx, "Failed to publish offline availability", "error", err)
	}
}

// Announce publishes the discovery message followed by the current state.
func (b *Bridge) Announce(ctx context.Context) error {
	payload, err := json.Marshal(NewDiscoveryMessage(b.panel, b.topics, b.swVersion))
	if err != nil {
		return fmt.Errorf("encode discovery message: %w", err)
	}

	if err = b.broker.Publish(b.topics.Config, true, payload); err != nil {
		return fmt.Errorf("publish discovery message: %w", err)
	}

	logger.InfoKV(ctx, "Announced panel to Home Assistant", "topic", b.topics.Config)

	return b.PublishState(ctx)
}

// PublishState publishes availability and, when known, the panel state.
func (b *Bridge) PublishState(ctx context.Context) error {
	availability := PayloadOffline
	if b.panel.Available() {
		availability = PayloadOnline
	}

	if err := b.broker.Publish(b.topics.Availability, true, []byte(availability)); err != nil {
		return fmt.Errorf("publish availability: %w", err)
	}

	state, ok := b.panel.State()
	if !ok {
		return nil
	}

	if err := b.broker.Publish(b.topics.State, true, []byte(state.String())); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}

	logger.DebugKV(ctx, "Published panel state", "state", state, "availability", availability)

	return nil
}

// OnStatus publishes the panel after a coordinator refresh.
func (b *Bridge) OnStatus(ctx context.Context, _ domain.Status) {
	if err := b.PublishState(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to publish panel state", "error", err)
	}
}

func (b *Bridge) handlerContext() context.Context {
	b.ctxMu.RLock()
	defer b.ctxMu.RUnlock()

	return b.ctx
}

func (b *Bridge) handleCommand(_ string, payload []byte) {
	ctx := b.handlerContext()

	cmd, err := ParseCommand(payload)
	if err != nil {
		logger.WarnKV(ctx, "Ignoring malformed command", "error", err)

		return
	}

	ctx = logger.WithKV(ctx, "action", cmd.Action)
	logger.Info(ctx, "Received command from Home Assistant")

	switch cmd.Action {
	case ActionDisarm:
		err = b.panel.Disarm(ctx, cmd.Code)
	case ActionArmHome:
		err = b.panel.ArmHome(ctx, cmd.Code)
	case ActionArmAway:
		err = b.panel.ArmAway(ctx, cmd.Code)
	}

	if err == nil {
		return
	}

	logger.ErrorKV(ctx, "Command failed", "error", err)

	// Home Assistant shows the pending state until it hears back.
	if err = b.PublishState(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to publish panel state", "error", err)
	}
}

func (b *Bridge) handleStatus(_ string, payload []byte) {
	if string(payload) != PayloadOnline {
		return
	}

	ctx := b.handlerContext()

	logger.Info(ctx, "Home Assistant came online, announcing panel")

	if err := b.Announce(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to announce panel", "error", err)
	}
}
