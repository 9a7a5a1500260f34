// SPDX-License-Identifier: MPL-2.0

package cmd

// ExitError carries a process exit code through the fang/cobra error path.
// Execute unwraps it and exits with the embedded code.
type ExitError struct {
	// Code is the process exit code.
	Code int
	// Err is the underlying error (must not be nil).
	Err error
}

// Error implements the error interface.
func (e *ExitError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ExitError) Unwrap() error { return e.Err }
