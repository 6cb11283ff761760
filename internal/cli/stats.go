package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rcliao/roombot/internal/plugins/quote"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show quote statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s := getSettings()
	reg := openRegistry(s, newLogger(s))

	stats, err := quote.ReadStats(mustPlugin(reg, quote.Name).Store())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		writeStatsText(os.Stdout, stats)
		return
	}
	printJSON(os.Stdout, stats)
}

func writeStatsText(w io.Writer, stats quote.Stats) {
	fmt.Fprintf(w, "quotes:        %d\n", stats.Total)
	fmt.Fprintf(w, "active:        %d\n", stats.Active)
	fmt.Fprintf(w, "deleted:       %d\n", stats.Deleted)
	fmt.Fprintf(w, "reactions:     %d\n", stats.Reactions)
	fmt.Fprintf(w, "tracked:       %d\n", stats.Tracked)
	fmt.Fprintf(w, "store version: %d\n", stats.StoreVersion)
	fmt.Fprintf(w, "nick links:    %t\n", stats.NickLinks)

	versions := make([]int, 0, len(stats.ByVersion))
	for v := range stats.ByVersion {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	for _, v := range versions {
		fmt.Fprintf(w, "version %d:     %d\n", v, stats.ByVersion[v])
	}
}
