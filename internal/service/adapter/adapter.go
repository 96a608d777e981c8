package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/alarm-panel/internal/coordinator"
	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
	"github.com/oshokin/alarm-panel/internal/logger"
	"github.com/oshokin/alarm-panel/internal/vendors/yale"
	"github.com/oshokin/alarm-panel/internal/worker"
)

// Command names used in logs and metrics.
const (
	CommandDisarm  = "disarm"
	CommandArmHome = "arm_home"
	CommandArmAway = "arm_away"
)

// Coordinator is the part of the coordinator the adapter depends on.
type Coordinator interface {
	Entry() coordinator.Entry
	Client() coordinator.Client
	Status() domain.Status
	SetStatus(ctx context.Context, keyword string) domain.Status
	LastUpdateSuccess() bool
}

// StatePublisher pushes the current panel state to the host platform.
type StatePublisher interface {
	PublishState(ctx context.Context) error
}

// Adapter implements domain.Panel for one configured entry.
type Adapter struct {
	// coordinator owns the vendor client and the status cell.
	coordinator Coordinator
	// executor runs the blocking vendor calls.
	executor worker.Executor
	// uniqueID is the config entry id.
	uniqueID string
	// code is the stored authorization code, empty when unset.
	code string
	// onCommand observes every command outcome, optional.
	onCommand func(command string, err error)

	// publishersMu guards publishers.
	publishersMu sync.RWMutex
	publishers   []StatePublisher
}

var _ domain.Panel = (*Adapter)(nil)

// Option configures the adapter.
type Option func(*Adapter)

// WithCommandObserver is called with the outcome of every command.
func WithCommandObserver(observer func(command string, err error)) Option {
	return func(a *Adapter) {
		a.onCommand = observer
	}
}

// WithPublisher registers a state publisher at construction.
func WithPublisher(p StatePublisher) Option {
	return func(a *Adapter) {
		a.publishers = append(a.publishers, p)
	}
}

// New creates the adapter. The code is read from the entry once.
func New(c Coordinator, executor worker.Executor, opts ...Option) *Adapter {
	entry := c.Entry()

	a := &Adapter{
		coordinator: c,
		executor:    executor,
		uniqueID:    entry.ID,
		code:        entry.Code,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// AddPublisher registers p for state publication after successful commands.
func (a *Adapter) AddPublisher(p StatePublisher) {
	a.publishersMu.Lock()
	defer a.publishersMu.Unlock()

	a.publishers = append(a.publishers, p)
}

// UniqueID returns the config entry id.
func (a *Adapter) UniqueID() string {
	return a.uniqueID
}

// Name returns the configured device name.
func (a *Adapter) Name() string {
	return a.coordinator.Entry().Name
}

// CodeFormat reports number for an all-digit code and text otherwise.
func (a *Adapter) CodeFormat() domain.CodeFormat {
	return domain.DetectCodeFormat(a.code)
}

// SupportedFeatures returns arm home and arm away.
func (a *Adapter) SupportedFeatures() domain.Feature {
	return domain.FeatureArmHome | domain.FeatureArmAway
}

// CodeArmRequired is always false.
func (a *Adapter) CodeArmRequired() bool {
	return false
}

// Available reports whether the last refresh succeeded and the status is known.
func (a *Adapter) Available() bool {
	_, ok := a.State()

	return ok && a.coordinator.LastUpdateSuccess()
}

// State maps the last known vendor status.
func (a *Adapter) State() (domain.State, bool) {
	return domain.LookupState(a.coordinator.Status().Keyword)
}

// Status returns the last known vendor status.
func (a *Adapter) Status() domain.Status {
	return a.coordinator.Status()
}

// Disarm checks the code and disarms the panel.
func (a *Adapter) Disarm(ctx context.Context, code *string) error {
	if code == nil || *code != a.code {
		logger.WarnKV(ctx, "Rejected disarm with an invalid code", "entry", a.uniqueID)
		a.observe(CommandDisarm, domain.ErrInvalidCode)

		return domain.ErrInvalidCode
	}

	return a.run(ctx, CommandDisarm, yale.ModeDisarm)
}

// ArmHome arms the panel partially. The code is accepted and ignored.
func (a *Adapter) ArmHome(ctx context.Context, _ *string) error {
	return a.run(ctx, CommandArmHome, yale.ModeArmPartial)
}

// ArmAway arms the panel fully. The code is accepted and ignored.
func (a *Adapter) ArmAway(ctx context.Context, _ *string) error {
	return a.run(ctx, CommandArmAway, yale.ModeArmFull)
}

func (a *Adapter) run(ctx context.Context, command, target string) error {
	ctx = logger.WithKV(ctx, "entry", a.uniqueID, "command", command)

	err := a.setAlarm(ctx, target)
	a.observe(command, err)

	if err != nil {
		logger.ErrorKV(ctx, "Alarm command failed", "error", err)

		return err
	}

	logger.InfoKV(ctx, "Alarm command succeeded", "status", target)

	return nil
}

// setAlarm sends target to the vendor on the worker pool and records the result.
func (a *Adapter) setAlarm(ctx context.Context, target string) error {
	client := a.coordinator.Client()

	var call func() (bool, error)

	switch target {
	case yale.ModeArmFull:
		call = client.ArmFull
	case yale.ModeArmPartial:
		call = client.ArmPartial
	case yale.ModeDisarm:
		call = client.Disarm
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, target)
	}

	future, err := worker.Submit(ctx, a.executor, call)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", target, err)
	}

	success, err := future.Await()
	if err != nil {
		if yale.IsVendorError(err) {
			return &domain.CommandError{Device: a.Name(), Err: err}
		}

		return fmt.Errorf("run %s: %w", target, err)
	}

	if !success {
		return domain.ErrCommandRejected
	}

	a.coordinator.SetStatus(ctx, target)
	a.publish(ctx)

	return nil
}

func (a *Adapter) publish(ctx context.Context) {
	a.publishersMu.RLock()
	publishers := make([]StatePublisher, len(a.publishers))
	copy(publishers, a.publishers)
	a.publishersMu.RUnlock()

	for _, p := range publishers {
		if err := p.PublishState(ctx); err != nil {
			logger.ErrorKV(ctx, "Failed to publish panel state", "error", err)
		}
	}
}

func (a *Adapter) observe(command string, err error) {
	if a.onCommand != nil {
		a.onCommand(command, err)
	}
}
