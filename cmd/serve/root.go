package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/hearthchat/hearth/cmd/util"
	"github.com/hearthchat/hearth/engine"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var (
	serveCmdConfig common.SyncConfig
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the hearth sync engine",
		Long:    `Start the hearth sync engine with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is HEARTH_<flag> (e.g. HEARTH_TIMEOUT_MAX=30s)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnvConfig)

	// add flags
	cmdUtil.SetupSyncFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the engine configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	cfg, err := cmdUtil.GetSyncConfig()
	if err != nil {
		return err
	}
	serveCmdConfig = cfg
	return nil
}

// run starts the sync engine and blocks until interrupted
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(serveCmdConfig)
	log := logger.GetLogger("cmd")

	fmt.Println(serveCmdConfig.String())

	eng := engine.New(serveCmdConfig)
	log.Infof("sync engine ready (tail cursor %d)", eng.Log.Tail())

	// The transport layer attaches to eng.Cache.Poll; until it does, the
	// engine idles here.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig

	log.Infof("received %s, shutting down", s)
	return nil
}
