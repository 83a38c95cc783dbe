package render

import "fmt"

// ConfigError reports an unknown or unsupported request value.
// It is raised before any external process is started.
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unsupported %s: %q", e.Field, e.Value)
}
