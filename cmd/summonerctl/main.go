package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/awsconf"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

var Version = "dev"

// storeOpener connects to the balance store named by the environment.
type storeOpener func(ctx context.Context) (credits.Store, error)

func openStoreFromEnv(ctx context.Context) (credits.Store, error) {
	cfg, err := credits.LoadConfig()
	if err != nil {
		return nil, err
	}
	awsCfg, err := awsconf.LoadFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return credits.OpenStore(ctx, cfg, awsCfg)
}

func main() {
	env.SetupEnvFile()

	if err := newRootCmd(openStoreFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open storeOpener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "summonerctl",
		Short:         "Operator tooling for Summoner credit accounts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(creditsCmd(open))
	return rootCmd
}
