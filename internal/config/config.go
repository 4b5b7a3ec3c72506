// Package config holds LoGrok's command-line and preset configuration: a
// single flag-populated Args struct that downstream packages read
// directly, transformed once right after flag.Parse.
//
// Custom LogFormat presets are loaded from an optional TOML file via
// BurntSushi/toml, a human-editable format for the one user-facing
// config artifact LoGrok has: a small named-preset table.
package config

const (
	// DefaultLogType is used when neither -t/--type nor -f/--format is given.
	DefaultLogType = "apache-common"
	// DefaultLogLevel is the default logrus level name.
	DefaultLogLevel = "info"
)

// Args holds every CLI flag in one plain struct that downstream packages
// read directly, rather than threading individual flag values through
// constructors.
type Args struct {
	Type          string
	Format        string
	ConfigFile    string
	ConfigType    string
	Processes     int
	Lines         int
	Interactive   bool
	Query         string
	Debug         bool
	LogLevel      string
	PresetsFile   string
	MetricsAddr   string
	LogFiles      []string
}

// Presets is the set of custom, TOML-loaded LogFormat presets, keyed by
// name, taking precedence over the built-in table.
type Presets map[string]string
