package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/anubis-ocr/gateway/cli/client"
	"github.com/anubis-ocr/gateway/cli/output"
)

var (
	healthWait     bool
	healthInterval time.Duration
	healthTimeout  time.Duration
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show gateway health",
	Long: `Query the gateway health endpoint.

With --wait the command polls until the gateway answers, then reports its
health. The poll interval is never shorter than 200ms.

Examples:
  ocrctl health
  ocrctl health --wait --timeout 2m`,
	PreRunE: initializeClient,
	RunE:    runHealth,
}

func init() {
	healthCmd.Flags().BoolVarP(&healthWait, "wait", "w", false,
		"wait until the gateway is ready")
	healthCmd.Flags().DurationVar(&healthInterval, "interval", time.Second,
		"poll interval for --wait")
	healthCmd.Flags().DurationVar(&healthTimeout, "wait-timeout", time.Minute,
		"maximum time to wait for --wait")
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if healthWait {
		if err := apiClient.WaitReady(ctx, healthInterval, healthTimeout); err != nil {
			return err
		}
	}

	status, err := apiClient.Health(ctx)
	if status != nil {
		printHealth(formatter, status)
	}
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && status != nil {
			return fmt.Errorf("gateway is %s", status.Status)
		}
		return err
	}
	return nil
}

func printHealth(f *output.Formatter, status *client.HealthStatus) {
	if f.Format != output.FormatTable {
		_ = f.Print(status)
		return
	}

	f.PrintKeyValue("Status", status.Status)
	if status.Detail != "" {
		f.PrintKeyValue("Detail", status.Detail)
	}

	names := make([]string, 0, len(status.Services))
	for name := range status.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	data := output.TableData{Headers: []string{"SERVICE", "AVAILABLE"}}
	for _, name := range names {
		data.Rows = append(data.Rows, []string{name, strconv.FormatBool(status.Services[name])})
	}
	f.PrintTable(data)
}
