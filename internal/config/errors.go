package config

import "fmt"

// Error reports a missing or invalid configuration value. It is fatal for
// the command that hits it.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}
