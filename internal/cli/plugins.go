package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/roombot/internal/plugin"
)

func init() {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List loaded plugins and their commands",
		Run:   runPlugins,
	}

	RootCmd.AddCommand(cmd)
}

type pluginInfo struct {
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Rooms       []string      `json:"rooms,omitempty"`
	Commands    []commandInfo `json:"commands"`
	Timers      int           `json:"timers"`
}

type commandInfo struct {
	Trigger string   `json:"trigger"`
	Help    string   `json:"help"`
	Rooms   []string `json:"rooms,omitempty"`
}

func runPlugins(cmd *cobra.Command, args []string) {
	s := getSettings()
	infos := describePlugins(openRegistry(s, newLogger(s)))

	if formatFlag == "text" {
		writePluginsText(os.Stdout, infos, s.CommandPrefix)
		return
	}
	printJSON(os.Stdout, infos)
}

func describePlugins(reg *plugin.Registry) []pluginInfo {
	var infos []pluginInfo
	for _, p := range reg.Plugins() {
		info := pluginInfo{
			Name:        p.Name(),
			Category:    p.Category(),
			Description: p.Description(),
			Rooms:       p.Rooms(),
			Commands:    []commandInfo{},
			Timers:      len(p.Timers()),
		}
		for _, c := range p.Commands() {
			info.Commands = append(info.Commands, commandInfo{Trigger: c.Trigger, Help: c.Help, Rooms: c.Rooms})
		}
		infos = append(infos, info)
	}
	return infos
}

func writePluginsText(w io.Writer, infos []pluginInfo, prefix string) {
	for _, info := range infos {
		fmt.Fprintf(w, "%s (%s): %s\n", info.Name, info.Category, info.Description)
		for _, c := range info.Commands {
			fmt.Fprintf(w, "  %s%-16s %s\n", prefix, c.Trigger, c.Help)
		}
	}
}
