package alarm

import "unicode"

// State is the platform-level alarm panel state.
type State string

const (
	// StateDisarmed means the panel is not armed.
	StateDisarmed State = "disarmed"
	// StateArmedHome means the panel is partially armed (perimeter only).
	StateArmedHome State = "armed_home"
	// StateArmedAway means the panel is fully armed.
	StateArmedAway State = "armed_away"
)

// Status keywords reported by the Yale cloud.
const (
	KeywordDisarm  = "disarm"
	KeywordArmHome = "home"
	KeywordArmAway = "arm"
)

// stateMap translates vendor status keywords into platform states.
//
//nolint:gochecknoglobals // Fixed translation table.
var stateMap = map[string]State{
	KeywordDisarm:  StateDisarmed,
	KeywordArmHome: StateArmedHome,
	KeywordArmAway: StateArmedAway,
}

// LookupState maps a vendor keyword to a platform state.
// The second result is false when the keyword is not part of the table.
func LookupState(keyword string) (State, bool) {
	state, ok := stateMap[keyword]

	return state, ok
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// CodeFormat describes what kind of code the panel expects.
type CodeFormat string

const (
	// CodeFormatNumber is a code made of digits only.
	CodeFormatNumber CodeFormat = "number"
	// CodeFormatText is any other code.
	CodeFormatText CodeFormat = "text"
)

// DetectCodeFormat returns CodeFormatNumber if code is a non-empty string of
// decimal digits in any script and CodeFormatText otherwise.
func DetectCodeFormat(code string) CodeFormat {
	if code == "" {
		return CodeFormatText
	}

	for _, r := range code {
		if !unicode.IsDigit(r) {
			return CodeFormatText
		}
	}

	return CodeFormatNumber
}

// Feature is a bit set of optional panel capabilities.
type Feature uint32

const (
	// FeatureArmHome allows arming in home (partial) mode.
	FeatureArmHome Feature = 1 << iota
	// FeatureArmAway allows arming in away (full) mode.
	FeatureArmAway
	// FeatureArmNight allows arming in night mode.
	FeatureArmNight
	// FeatureTrigger allows triggering the alarm remotely.
	FeatureTrigger
)

// Has reports whether all bits of other are set.
func (f Feature) Has(other Feature) bool {
	return f&other == other
}

// Names returns the lower-case names of the set features in bit order.
func (f Feature) Names() []string {
	names := make([]string, 0, 4)

	for _, item := range []struct {
		flag Feature
		name string
	}{
		{FeatureArmHome, "arm_home"},
		{FeatureArmAway, "arm_away"},
		{FeatureArmNight, "arm_night"},
		{FeatureTrigger, "trigger"},
	} {
		if f.Has(item.flag) {
			names = append(names, item.name)
		}
	}

	return names
}
