package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/billing"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/cache"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/database"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/metrics/counter"
)

var Version = "dev"

func main() {
	rootCmd := newRootCmd(openService, openCounters)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService connects to the configured database. Provider clients are not
// needed for read-only operator commands.
func openService() (*billing.Service, error) {
	env.SetupEnvFile()
	database.SetupDatabase()
	return billing.NewServiceFromDB(database.GetDB(), billing.NewProviders()), nil
}

// openCounters connects to the cache holding the billing outcome counters.
func openCounters() (*counter.Counters, error) {
	env.SetupEnvFile()
	if !cache.Available(2 * time.Second) {
		return nil, errors.New("cache is not reachable")
	}
	return counter.New(cache.GetClient()), nil
}

func newRootCmd(open func() (*billing.Service, error), openCounters func() (*counter.Counters, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "photoai-admin",
		Short:         "Operator tooling for PhotoAI billing",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(creditsCmd(open))
	rootCmd.AddCommand(transactionsCmd(open))
	rootCmd.AddCommand(pendingCmd(open))
	rootCmd.AddCommand(statsCmd(openCounters))

	return rootCmd
}
