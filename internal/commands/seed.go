package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graylake-systems/graylake/internal/seeder"
)

var (
	seedProfile string
	seedAPIKey  string
	seedCount   int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Send generated events to a running ingest endpoint",
	Long: `Generate realistic background traffic plus scripted brute-force
bursts and post it to the ingest API. Requires a valid API key.

Examples:
  graylake seed --api-key gl_live_...
  graylake seed --profile ./seed.yaml --count 1000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := seeder.LoadProfile(seedProfile)
		if err != nil {
			return err
		}
		if seedAPIKey != "" {
			profile.APIKey = seedAPIKey
		}
		if seedCount > 0 {
			profile.Count = seedCount
		}
		if profile.APIKey == "" {
			return fmt.Errorf("an api key is required (--api-key or profile api_key)")
		}

		sent, err := seeder.New(profile).Run(cmd.Context())
		fmt.Printf("sent %d events to %s\n", sent, profile.Endpoint)
		return err
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedProfile, "profile", "", "YAML profile file")
	seedCmd.Flags().StringVar(&seedAPIKey, "api-key", "", "ingest API key")
	seedCmd.Flags().IntVar(&seedCount, "count", 0, "number of background events")
	rootCmd.AddCommand(seedCmd)
}
