package alarm

import "context"

// Panel is the alarm control panel capability exposed to the platform surfaces.
type Panel interface {
	// UniqueID is the stable identifier of the panel.
	UniqueID() string
	// Name is the configured device name.
	Name() string
	// CodeFormat reports the format of the stored code.
	CodeFormat() CodeFormat
	// SupportedFeatures reports the optional capabilities.
	SupportedFeatures() Feature
	// CodeArmRequired reports whether arming needs a code.
	CodeArmRequired() bool
	// Available reports whether the panel state is known and fresh.
	Available() bool
	// State returns the current state; false means unknown.
	State() (State, bool)
	// Status returns the raw last known vendor status.
	Status() Status

	Disarm(ctx context.Context, code *string) error
	ArmHome(ctx context.Context, code *string) error
	ArmAway(ctx context.Context, code *string) error
}
