package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/TheMichaelB/enpass/internal/models"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	hintColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
)

const wrongPassphraseHint = "The master password may be wrong, or the vault uses a keyfile."

// printFailure writes the error and every cause it wraps.
func printFailure(w io.Writer, err error) {
	chain := models.CauseChain(err)
	errorColor.Fprintf(w, "Error: %s\n", chain[0])
	for _, cause := range chain[1:] {
		warningColor.Fprintf(w, "  Caused by: %s\n", cause)
	}
	if models.LikelyWrongPassphrase(err) {
		hintColor.Fprintln(w, wrongPassphraseHint)
	}
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// printLines writes one tab separated line per value.
func printLines[T fmt.Stringer](w io.Writer, values []T) {
	for _, v := range values {
		fmt.Fprintln(w, v.String())
	}
}
