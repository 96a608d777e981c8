package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of one alarm-panel process.
type Config struct {
	// ServerAddress is the gRPC address clients connect to; the server listens on its port.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the listen address for metrics and health checks, empty to disable.
	HTTPAddress string `yaml:"http_addr,omitempty"`
	// StateFile is the path to the JSON file storing the last known panel status.
	StateFile string `yaml:"state_file"`
	// Timeout is the duration for client RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the delay between two status refreshes.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Workers bounds the number of concurrent vendor calls.
	Workers int `yaml:"workers"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFormat is console or json.
	LogFormat string `yaml:"log_format,omitempty"`

	// Entry describes the configured panel.
	Entry EntryConfig `yaml:"entry"`
	// Yale holds the vendor cloud credentials.
	Yale YaleConfig `yaml:"yale"`
	// MQTT configures Home Assistant discovery; disabled when URL is empty.
	MQTT MQTTConfig `yaml:"mqtt,omitempty"`
}

// EntryConfig describes one configured alarm panel.
type EntryConfig struct {
	// ID is the stable unique identifier; derived from Name when empty.
	ID string `yaml:"id"`
	// Name is the device name shown to users and used in error messages.
	Name string `yaml:"name"`
	// Code is the code required to disarm.
	Code string `yaml:"code"`
}

// YaleConfig holds the Yale cloud API settings.
type YaleConfig struct {
	// BaseURL overrides the API root, mostly for tests.
	BaseURL string `yaml:"base_url,omitempty"`
	// Username is the account login.
	Username string `yaml:"username"`
	// Password is the account password.
	Password string `yaml:"password"`
	// ClientCredential is the base64 Basic credential of the API client application.
	ClientCredential string `yaml:"client_credential"`
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTConfig holds the broker settings for Home Assistant discovery.
type MQTTConfig struct {
	// URL is the broker address, e.g. tcp://broker:1883.
	URL string `yaml:"url"`
	// Username and Password authenticate against the broker.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	// ClientID identifies the connection; derived from the entry ID when empty.
	ClientID string `yaml:"client_id,omitempty"`
	// DiscoveryPrefix is the Home Assistant discovery prefix.
	DiscoveryPrefix string `yaml:"discovery_prefix,omitempty"`
	// NodeID groups the entities of this bridge under the prefix.
	NodeID string `yaml:"node_id,omitempty"`
	// QoS is the MQTT quality of service for publishes and subscriptions.
	QoS byte `yaml:"qos,omitempty"`
}

// Enabled reports whether MQTT discovery is configured.
func (m MQTTConfig) Enabled() bool {
	return m.URL != ""
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-panel-settings.yaml"

	// DefaultStateFilename is the default filename for the status snapshot.
	DefaultStateFilename = "alarm-panel-state.json"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultPollInterval matches the refresh cadence of the Yale mobile app.
	DefaultPollInterval = 15 * time.Second

	// DefaultWorkers is the default number of concurrent vendor calls.
	DefaultWorkers = 4

	// DefaultDiscoveryPrefix is the Home Assistant default discovery prefix.
	DefaultDiscoveryPrefix = "homeassistant"

	// DefaultNodeID is the default discovery node id.
	DefaultNodeID = "alarm_panel"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	maxQoS = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errEntryNameRequired is returned when the panel has no name.
	errEntryNameRequired = errors.New("entry name must be provided")
	// errCredentialsRequired is returned when Yale credentials are missing.
	errCredentialsRequired = errors.New("yale username and password must be provided")
	// errClientCredentialRequired is returned when the Yale client credential is missing.
	errClientCredentialRequired = errors.New("yale client credential must be provided")
	// errInvalidQoS is returned for QoS values above 2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")

	// slugPattern matches runs of characters not allowed in identifiers.
	//nolint:gochecknoglobals // Compiled once.
	slugPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file carries credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and applies defaults.
//
//nolint:cyclop // A flat list of independent checks.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http socket: %w", err)
		}
	}

	if strings.TrimSpace(settings.Entry.Name) == "" {
		return errEntryNameRequired
	}

	if settings.Entry.ID == "" {
		settings.Entry.ID = Slug(settings.Entry.Name)
	}

	if settings.Yale.Username == "" || settings.Yale.Password == "" {
		return errCredentialsRequired
	}

	if settings.Yale.ClientCredential == "" {
		return errClientCredentialRequired
	}

	if settings.Yale.BaseURL != "" {
		if _, err := url.ParseRequestURI(settings.Yale.BaseURL); err != nil {
			return fmt.Errorf("invalid yale base URL: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}

	if settings.Workers <= 0 {
		settings.Workers = DefaultWorkers
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	return validateMQTT(&settings.MQTT, settings.Entry.ID)
}

func validateMQTT(settings *MQTTConfig, entryID string) error {
	if !settings.Enabled() {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.URL); err != nil {
		return fmt.Errorf("invalid mqtt URL: %w", err)
	}

	if settings.QoS > maxQoS {
		return errInvalidQoS
	}

	if settings.ClientID == "" {
		settings.ClientID = "alarm-panel-" + entryID
	}

	if settings.DiscoveryPrefix == "" {
		settings.DiscoveryPrefix = DefaultDiscoveryPrefix
	}

	if settings.NodeID == "" {
		settings.NodeID = DefaultNodeID
	}

	return nil
}

// Slug lower-cases s and replaces every run of other characters with "_".
func Slug(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
