package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/roombot/internal/model"
	"github.com/rcliao/roombot/internal/plugins/quote"
)

func init() {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade stored quotes to the current version",
		Long:  "Reparse legacy quotes into lines. Quotes that cannot be parsed keep their version and are counted as failed.",
		Run:   runUpgrade,
	}

	RootCmd.AddCommand(cmd)
}

func runUpgrade(cmd *cobra.Command, args []string) {
	s := getSettings()
	reg := openRegistry(s, newLogger(s))

	res, err := quote.Upgrade(mustPlugin(reg, quote.Name).Store())
	if err != nil {
		exitErr("upgrade", err)
	}
	if !res.Saved {
		exitErr("upgrade", fmt.Errorf("could not save quotes"))
	}

	if formatFlag == "text" {
		fmt.Printf("upgraded %d of %d quotes to version %d, %d failed\n", res.Upgraded, res.Total, model.CurrentQuoteVersion, res.Failed)
	} else {
		printJSON(os.Stdout, map[string]any{
			"upgraded": res.Upgraded,
			"failed":   res.Failed,
			"total":    res.Total,
			"version":  model.CurrentQuoteVersion,
		})
	}
	if !res.Complete() {
		os.Exit(1)
	}
}
