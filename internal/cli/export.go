package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a plugin's records as JSON",
		Long:  "Print every record of a plugin's store as one JSON object keyed by record name.",
		Run:   runExport,
	}

	cmd.Flags().StringP("plugin", "p", "quote", "Plugin whose records to export")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("plugin")

	s := getSettings()
	reg := openRegistry(s, newLogger(s))
	printJSON(os.Stdout, mustPlugin(reg, name).Store().Export())
}
