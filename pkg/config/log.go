package config

// DefaultLogFile is where hook runs write diagnostics.
const DefaultLogFile = "~/.desgate/desgate.log"

// LogConfig configures the diagnostic log.
type LogConfig struct {
	// File is the log file path. Default: "~/.desgate/desgate.log"
	File string `json:"file,omitempty" koanf:"file" toml:"file,omitempty"`
}

// GetFile returns the log file path.
func (l *LogConfig) GetFile() string {
	if l == nil || l.File == "" {
		return DefaultLogFile
	}

	return l.File
}
