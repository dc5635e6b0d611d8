package conn

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	cmdUtil "github.com/hearthchat/hearth/cmd/util"
	"github.com/hearthchat/hearth/engine"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	eng *engine.Engine

	// ConnCommands groups the administrative connection commands. They
	// operate on the engine built from the local configuration; a remote
	// admin transport is not part of this layer.
	ConnCommands = &cobra.Command{
		Use:   "conn",
		Short: "Inspect and manage sync connections",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmdUtil.BindCommandFlags(cmd); err != nil {
				return err
			}
			cfg, err := cmdUtil.GetSyncConfig()
			if err != nil {
				return err
			}
			common.InitLoggers(cfg)
			eng = engine.New(cfg)
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all sync connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := eng.Cache.ListStoredConnections()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("no connections")
				return nil
			}
			for _, key := range keys {
				fmt.Printf("%s %s %s\n",
					color.CyanString(key.UserID),
					color.YellowString(key.DeviceID),
					key.SessionID,
				)
			}
			return nil
		},
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect [user] [device] [session]",
		Short: "Show the cursors and sticky state of one sync connection",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := common.SessionKey{UserID: args[0], DeviceID: args[1], SessionID: args[2]}
			conn, ok := eng.Cache.Inspect(key)
			if !ok {
				return fmt.Errorf("no connection for %s", key)
			}
			printConnection(key, conn)
			return nil
		},
	}

	dropCmd = &cobra.Command{
		Use:   "drop",
		Short: "Drop sync connections matching the selector",
		Long:  "Drop sync connections matching the selector flags. Empty selector fields match everything; without any flags all connections are dropped.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := eng.Cache.Drop(
				viper.GetString("user"),
				viper.GetString("device"),
				viper.GetString("session"),
			)
			if err != nil {
				return err
			}
			fmt.Printf("dropped %d connection(s)\n", n)
			return nil
		},
	}
)

func init() {
	ConnCommands.AddCommand(listCmd)
	ConnCommands.AddCommand(inspectCmd)
	ConnCommands.AddCommand(dropCmd)

	key := "user"
	dropCmd.Flags().String(key, "", cmdUtil.WrapString("Only drop connections of this user"))
	key = "device"
	dropCmd.Flags().String(key, "", cmdUtil.WrapString("Only drop connections of this device"))
	key = "session"
	dropCmd.Flags().String(key, "", cmdUtil.WrapString("Only drop this session"))
}

// printConnection renders one connection record for the terminal
func printConnection(key common.SessionKey, conn *common.Connection) {
	header := color.New(color.Bold)
	header.Printf("connection %s\n", key)

	fmt.Printf("  global since : %d\n", conn.GlobalSince)
	fmt.Printf("  next batch   : %d\n", conn.NextBatch)

	if len(conn.Lists) > 0 {
		lists := make([]string, 0, len(conn.Lists))
		for l := range conn.Lists {
			lists = append(lists, l)
		}
		sort.Strings(lists)
		fmt.Printf("  lists        : %v\n", lists)
	}

	if len(conn.Rooms) > 0 {
		rooms := make([]string, 0, len(conn.Rooms))
		for r := range conn.Rooms {
			rooms = append(rooms, r)
		}
		sort.Strings(rooms)
		header.Println("  rooms")
		for _, r := range rooms {
			fmt.Printf("    %s since %d\n", color.GreenString(r), conn.Rooms[r].RoomSince)
		}
	}

	header.Println("  extensions")
	fmt.Printf("    account data : %v\n", conn.Extensions.AccountData.On())
	fmt.Printf("    receipts     : %v\n", conn.Extensions.Receipts.On())
	fmt.Printf("    typing       : %v\n", conn.Extensions.Typing.On())
	fmt.Printf("    to device    : %v\n", conn.Extensions.ToDevice.On())
}
