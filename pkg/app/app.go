// Package app defines the runtime contract shared by the cmd/* binaries.
package app

// Runner represents a runnable application component.
// Run blocks until the component is done and reports whether it failed.
type Runner interface {
	Run() error
}
