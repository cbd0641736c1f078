package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tablesync",
	Short: "Shared restaurant floor state for terminals, kitchen displays and guest devices",
	Long: `tablesync runs one peer of a restaurant point-of-sale floor. Every peer holds
the full state of tables, menu, orders, reservations and inventory, applies
local changes immediately and broadcasts them to the other peers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("bootstrap", "demo", "initial data source: demo, fixture or sqlite")
	rootCmd.PersistentFlags().String("bootstrap-path", "", "fixture or database path for the bootstrap source")

	rootCmd.AddCommand(serveCmd, relayCmd, seedCmd)
}

// bindFlags maps command line flags onto config keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) func(*viper.Viper) error {
	return func(v *viper.Viper) error {
		for key, name := range keys {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				return fmt.Errorf("unknown flag %q", name)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return err
			}
		}
		return nil
	}
}

var commonFlags = map[string]string{
	"log_level":        "log-level",
	"bootstrap.source": "bootstrap",
	"bootstrap.path":   "bootstrap-path",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
