// SPDX-License-Identifier: MPL-2.0

// Package tui provides the small interactive surface of aagl-sync: a
// yes/no confirmation prompt shown before local files are rewritten.
package tui

import (
	"github.com/charmbracelet/huh"
)

// ConfirmOptions configures the Confirm prompt.
type ConfirmOptions struct {
	// Title is the question to display.
	Title string
	// Description provides additional context below the title.
	Description string
	// Affirmative is the text for the affirmative option (default: "Yes").
	Affirmative string
	// Negative is the text for the negative option (default: "No").
	Negative string
}

// Confirm shows a yes/no prompt and returns the selection. Cancelling the
// prompt (ctrl-c, esc) returns an error.
func Confirm(opts ConfirmOptions) (bool, error) {
	if opts.Affirmative == "" {
		opts.Affirmative = "Yes"
	}
	if opts.Negative == "" {
		opts.Negative = "No"
	}

	var confirmed bool

	prompt := huh.NewConfirm().
		Title(opts.Title).
		Description(opts.Description).
		Affirmative(opts.Affirmative).
		Negative(opts.Negative).
		Value(&confirmed)

	if err := prompt.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
