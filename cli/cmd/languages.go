package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/anubis-ocr/gateway/cli/output"
)

var languagesCmd = &cobra.Command{
	Use:     "languages",
	Aliases: []string{"langs"},
	Short:   "Show OCR languages",
	Long: `Show the gateway's default OCR language spec and the language packs
installed on the gateway host.`,
	PreRunE: initializeClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		info, err := apiClient.Languages(ctx)
		if err != nil {
			return err
		}

		if formatter.Format != output.FormatTable {
			return formatter.Print(info)
		}

		formatter.PrintKeyValue("Default", info.Default)
		formatter.PrintList(info.Available)
		return nil
	},
}
