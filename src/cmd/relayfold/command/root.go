package command

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

// RootCmd is the root command for relayfold
var RootCmd = &cobra.Command{
	Use:              "relayfold",
	Short:            "relay event ingestion",
	TraverseChildren: true,
}

func init() {
	RootCmd.AddCommand(
		NewRunCmd(),
		NewKeygenCmd(),
		NewRelaysCmd(),
		NewVersionCmd(),
	)
}
