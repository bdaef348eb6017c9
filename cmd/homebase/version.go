// Version command for the homebase CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homebase-sh/homebase/pkg/homebase"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the homebase version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("homebase", homebase.Version)
	},
}
