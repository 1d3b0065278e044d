package log

import "fmt"

// Config declaratively describes a logger.
type Config struct {
	// Level is the minimum level: debug|info|warn|error|fatal.
	Level string `json:"level" yaml:"level" toml:"level"`
	// Format is the output format: text|json.
	Format string `json:"format" yaml:"format" toml:"format"`
}

// ApplyConfig builds a logger from a Config. Empty fields fall back to
// info/text.
func ApplyConfig(cfg *Config) (Logger, error) {
	level := InfoLevel
	if cfg.Level != "" {
		parsed, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return NewLogger(
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	), nil
}
