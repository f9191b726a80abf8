// Package cmd provides the Cobra commands for the OCR gateway CLI.
package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anubis-ocr/gateway/cli/client"
	"github.com/anubis-ocr/gateway/cli/output"
)

const defaultServer = "http://localhost:4101"

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	serverURL string
	timeout   time.Duration
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	apiClient *client.Client
	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ocrctl",
	Short: "ocrctl - Talk to an OCR gateway",
	Long: `ocrctl sends documents to an OCR gateway and prints the recognized text.

Get started:
  ocrctl health --wait          Wait until the gateway is ready
  ocrctl recognize scan.pdf     Extract text from a document
  ocrctl languages              Show the gateway's OCR languages

The gateway URL comes from --server, OCR_GATEWAY_URL or the "server" key of
~/.ocr-gateway/cli.yaml.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ~/.ocr-gateway/cli.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "",
		"gateway URL (default "+defaultServer+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute,
		"HTTP request timeout")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "",
		"output format: table, json, yaml (default table on a terminal, json otherwise)")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	// Bind environment variables
	_ = viper.BindEnv("server", "OCR_GATEWAY_URL")
	_ = viper.BindEnv("debug", "OCR_GATEWAY_DEBUG")
	viper.SetDefault("server", defaultServer)

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(languagesCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(defaultConfigDir())
		viper.SetConfigName("cli")
		viper.SetConfigType("yaml")
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ocr-gateway"
	}
	return filepath.Join(home, ".ocr-gateway")
}

// resolveServer picks the gateway URL: flag, then environment or config file,
// then the default.
func resolveServer() string {
	if serverURL != "" {
		return serverURL
	}
	return viper.GetString("server")
}

// initializeClient sets up the API client for commands that need it
func initializeClient(cmd *cobra.Command, args []string) error {
	// Override debug from environment if set
	if viper.GetBool("debug") {
		debug = true
	}

	apiClient = client.NewClient(resolveServer(),
		client.WithDebug(debug),
		client.WithTimeout(timeout),
	)

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}
	formatter = output.NewFormatter(format, noHeaders, quiet)
	formatter.Writer = cmd.OutOrStdout()
	formatter.ErrWriter = cmd.ErrOrStderr()

	return nil
}
