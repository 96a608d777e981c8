package hassio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
)

// Payloads understood by Home Assistant.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"

	ActionDisarm  = "DISARM"
	ActionArmHome = "ARM_HOME"
	ActionArmAway = "ARM_AWAY"

	// remoteCode asks Home Assistant to forward the numeric code to us.
	remoteCode = "REMOTE_CODE"
	// remoteCodeText is remoteCode with a text keypad.
	remoteCodeText = "REMOTE_CODE_TEXT"

	// commandTemplate lets Home Assistant JSON-encode the code; no code renders as null.
	commandTemplate = `{"action":"{{ action }}","code":{{ code | tojson }}}`

	manufacturer = "Yale"
	model        = "Smart Alarm"
)

var (
	errEmptyCommand   = errors.New("empty command payload")
	errUnknownCommand = errors.New("unknown command action")
)

// Topics are the MQTT topics of one panel.
type Topics struct {
	// Config receives the retained discovery message.
	Config string
	// State receives the panel state.
	State string
	// Command is where Home Assistant sends actions.
	Command string
	// Availability receives online or offline.
	Availability string
	// Status is where Home Assistant announces its own restarts.
	Status string
}

// NewTopics builds the topics for entryID under the discovery prefix.
func NewTopics(prefix, nodeID, entryID string) Topics {
	base := fmt.Sprintf("%s/alarm_control_panel/%s/%s", prefix, nodeID, entryID)

	return Topics{
		Config:       base + "/config",
		State:        base + "/state",
		Command:      base + "/set",
		Availability: base + "/availability",
		Status:       prefix + "/status",
	}
}

// Device is the device block of a discovery message.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// DiscoveryMessage is the alarm_control_panel discovery payload.
type DiscoveryMessage struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	StateTopic          string   `json:"state_topic"`
	CommandTopic        string   `json:"command_topic"`
	CommandTemplate     string   `json:"command_template"`
	AvailabilityTopic   string   `json:"availability_topic"`
	PayloadAvailable    string   `json:"payload_available"`
	PayloadNotAvailable string   `json:"payload_not_available"`
	Code                string   `json:"code"`
	CodeArmRequired     bool     `json:"code_arm_required"`
	CodeDisarmRequired  bool     `json:"code_disarm_required"`
	SupportedFeatures   []string `json:"supported_features"`
	PayloadDisarm       string   `json:"payload_disarm"`
	PayloadArmHome      string   `json:"payload_arm_home"`
	PayloadArmAway      string   `json:"payload_arm_away"`
	Device              *Device  `json:"device"`
}

// NewDiscoveryMessage describes panel for Home Assistant.
func NewDiscoveryMessage(panel domain.Panel, topics Topics, swVersion string) DiscoveryMessage {
	code := remoteCode
	if panel.CodeFormat() == domain.CodeFormatText {
		code = remoteCodeText
	}

	return DiscoveryMessage{
		Name:                panel.Name(),
		UniqueID:            panel.UniqueID(),
		StateTopic:          topics.State,
		CommandTopic:        topics.Command,
		CommandTemplate:     commandTemplate,
		AvailabilityTopic:   topics.Availability,
		PayloadAvailable:    PayloadOnline,
		PayloadNotAvailable: PayloadOffline,
		Code:                code,
		CodeArmRequired:     panel.CodeArmRequired(),
		CodeDisarmRequired:  true,
		SupportedFeatures:   panel.SupportedFeatures().Names(),
		PayloadDisarm:       ActionDisarm,
		PayloadArmHome:      ActionArmHome,
		PayloadArmAway:      ActionArmAway,
		Device: &Device{
			Identifiers:  []string{panel.UniqueID()},
			Name:         panel.Name(),
			Manufacturer: manufacturer,
			Model:        model,
			SWVersion:    swVersion,
		},
	}
}

// Command is an action received on the command topic.
type Command struct {
	// Action is one of ActionDisarm, ActionArmHome or ActionArmAway.
	Action string `json:"action"`
	// Code is the entered code; nil when none was sent.
	Code *string `json:"code,omitempty"`
}

// ParseCommand accepts the templated JSON form or a bare action.
func ParseCommand(payload []byte) (Command, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Command{}, errEmptyCommand
	}

	var cmd Command

	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return Command{}, fmt.Errorf("decode command: %w", err)
		}
	} else {
		cmd.Action = text
	}

	cmd.Action = strings.ToUpper(strings.TrimSpace(cmd.Action))

	switch cmd.Action {
	case ActionDisarm, ActionArmHome, ActionArmAway:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", errUnknownCommand, cmd.Action)
	}
}
