// Package main provides the homebase CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/homebase-sh/homebase/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the CLI exit code: user errors exit 1,
// system errors exit 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrBackendEmpty),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrPathEmpty):
		return exitUserError
	default:
		return exitSysError
	}
}
