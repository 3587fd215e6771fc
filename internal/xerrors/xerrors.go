// Package xerrors defines the small sentinel-error taxonomy shared by every
// follower: a source either fails at construction time (ConfigurationError,
// StartupTimeout) or it doesn't fail again until it is stopped. Runtime
// errors are logged through the output lane's trace helpers instead of
// being returned, so this package stays deliberately small.
package xerrors

import "fmt"

// ConfigurationError means a source's configuration is malformed in a way
// that cannot be waited out: a root-drive recursive tail, an empty provider
// list after name resolution, a channel with no name, and similar.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Component, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the named component.
func NewConfigurationError(component, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Reason: reason}
}

// StartupTimeout means a source waited its configured startup budget (e.g.
// a watched directory that never appeared) without becoming ready.
type StartupTimeout struct {
	Component string
	Waited    string
}

func (e *StartupTimeout) Error() string {
	return fmt.Sprintf("%s: startup timed out after %s", e.Component, e.Waited)
}

// NewStartupTimeout builds a StartupTimeout for the named component.
func NewStartupTimeout(component, waited string) *StartupTimeout {
	return &StartupTimeout{Component: component, Waited: waited}
}
