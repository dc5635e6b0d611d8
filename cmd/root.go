package cmd

import (
	"fmt"
	"os"

	"github.com/hearthchat/hearth/cmd/conn"
	"github.com/hearthchat/hearth/cmd/serve"
	"github.com/hearthchat/hearth/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.2"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hearth",
		Short: "federated chat sync engine",
		Long: fmt.Sprintf(`hearth (v%s)

The incremental sync engine of the hearth chat server: per-session
connection cache, extension delta collectors and change-driven long
polling over an ordered event log.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hearth",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hearth v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(conn.ConnCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer for persisted connection records (json, gob)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
