// Package configcmder provides the config command for managing persistent
// memhandler configuration stored in the .memhandler/ directory.
package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/Sakibyash/infinoz-bot1/pkg/cliui"
	"github.com/Sakibyash/infinoz-bot1/pkg/config"
)

const configLongDesc string = `Manage persistent memhandler configuration.

Configuration is stored as config.toml in the .memhandler/ directory and
provides default values for command flags. CLI flags and MEMHANDLER_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, e.g.
  api.listen, memory.provider, memory.top_k, llm.model,
  embedder.provider, vector_store.provider, events.brokers

Use subcommands to get, set, or list configuration values:
  memhandler config set <key> <value>    Set a configuration value
  memhandler config get <key>            Get a configuration value
  memhandler config list                 List all configuration values

Examples:
  memhandler config set memory.provider platform
  memhandler config set llm.provider ollama
  memhandler config get memory.top_k
  memhandler config list`

const configShortDesc string = "Manage persistent memhandler configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// display masks secret values.
func display(key, value string) string {
	if config.IsSecretConfigKey(key) {
		return cliui.Mask(value)
	}
	return value
}
