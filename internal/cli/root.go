// Package cli implements the roombot CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/roombot/internal/config"
	"github.com/rcliao/roombot/internal/logging"
	"github.com/rcliao/roombot/internal/plugin"
	"github.com/rcliao/roombot/internal/plugins/help"
	"github.com/rcliao/roombot/internal/plugins/meter"
	"github.com/rcliao/roombot/internal/plugins/quote"
)

var (
	dataDir    string
	configDir  string
	backend    string
	logLevel   string
	prefix     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "roombot",
	Short: "Chat bot built from plugins",
	Long:  "A chat bot whose commands, hooks and timers come from plugins. Each plugin keeps its own record store and YAML config.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Plugin record directory (default: $ROOMBOT_DATA_DIR or ./plugins)")
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Plugin config directory (default: $ROOMBOT_CONFIG_DIR or ./plugins)")
	RootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Record store backend: file or sqlite (default: $ROOMBOT_STORE_BACKEND or file)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $ROOMBOT_LOG_LEVEL or info)")
	RootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "Command prefix (default: $ROOMBOT_COMMAND_PREFIX or !)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// getSettings reads the environment and applies flag overrides.
func getSettings() config.Settings {
	s, err := config.LoadSettings()
	if err != nil {
		exitErr("load settings", err)
	}
	return applyFlags(s)
}

func applyFlags(s config.Settings) config.Settings {
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{dataDir, &s.DataDir},
		{configDir, &s.ConfigDir},
		{backend, &s.StoreBackend},
		{logLevel, &s.LogLevel},
		{prefix, &s.CommandPrefix},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	return s
}

func newLogger(s config.Settings) *slog.Logger {
	return logging.New(s.LogLevel, os.Stderr)
}

func pluginOptions(s config.Settings, logger *slog.Logger) plugin.Options {
	return plugin.Options{
		DataDir:   s.DataDir,
		ConfigDir: s.ConfigDir,
		Backend:   s.StoreBackend,
		Logger:    logger,
	}
}

// openRegistry loads every built-in plugin. Plugins that fail to load are
// logged and left out.
func openRegistry(s config.Settings, logger *slog.Logger) *plugin.Registry {
	reg := plugin.NewRegistry(logger)
	reg.Load(pluginOptions(s, logger), help.New(reg, s.CommandPrefix), quote.New, meter.New)
	return reg
}

func mustPlugin(reg *plugin.Registry, name string) *plugin.Plugin {
	p, ok := reg.Plugin(name)
	if !ok {
		exitErr("open plugin", fmt.Errorf("plugin %s is not loaded", name))
	}
	return p
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
