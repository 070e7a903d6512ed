// Command sherisectl manages the SheRise database and fixture files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sherisectl",
	Short:         "SheRise operations CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)

	// Fixtures
	rootCmd.AddCommand(mergeDataCmd)
	rootCmd.AddCommand(eventsCmd)
}
