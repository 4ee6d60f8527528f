// Package cmd provides the CLI commands for the Shopcore webhook service.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// verbose enables verbose output
	verbose bool
	// outputFormat specifies the output format (json, plain)
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shopcore",
	Short: "Shopcore webhook subscription and delivery service",
	Long: `Shopcore delivers storefront events to merchant-registered webhook
endpoints. It manages per-store subscriptions, signs every delivery, and
retries failed attempts with backoff.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// NewRootCmd creates a fresh root command tree for tests.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "shopcore",
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}

	addPersistentFlags(cmd)
	addSubcommands(cmd)
	return cmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "plain", "output format (json|plain)")
}

func addSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServerCmd())
}

func init() {
	addPersistentFlags(rootCmd)
	addSubcommands(rootCmd)
}

// envOr returns the environment variable's value, or fallback if unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
