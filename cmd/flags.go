package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/docchat/chatmarkup/internal/config"
)

// AddFormatFlag adds the --format/-f flag with completion
func AddFormatFlag(cmd *cobra.Command, dest *string, formats []string) {
	cmd.Flags().StringVarP(dest, "format", "f", "", "Output format: "+strings.Join(formats, "|")+" (default from config)")
	if err := cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formats, cobra.ShellCompDirectiveNoFileComp
	}); err != nil {
		panic("failed to register format completion: " + err.Error())
	}
}

// AddWidthFlag adds the --width/-w flag
func AddWidthFlag(cmd *cobra.Command, dest *int) {
	cmd.Flags().IntVarP(dest, "width", "w", 0, "Wrap width for terminal and blocks output (default: terminal width)")
}

// streamFormats are the formats a snapshot can be printed in.
var streamFormats = []string{"json", "markup", "text", "blocks"}

var renderFormats = config.Formats
