// Package memhandlercmder is the root memhandler command.
package memhandlercmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/auth"
	configcmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/config"
	contextcmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/context"
	initcmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/init"
	memoriescmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/memories"
	remembercmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/remember"
	servecmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler/serve"
	versioncmder "github.com/Sakibyash/infinoz-bot1/cmd/version"
)

const memhandlerLongDesc string = `memhandler is a long-term memory gateway for workflow automations.

It sits between an n8n workflow and a mem0 memory store: before the model
answers, the workflow fetches a system prompt built from the user's memories;
after it answers, the workflow stores the exchange.

Run the gateway:
  memhandler serve

Talk to a running gateway:
  memhandler context <user_id> <message>
  memhandler remember <user_id> <user_message> <ai_response>
  memhandler memories <user_id>`

const memhandlerShortDesc string = "memhandler - long-term memory gateway"

func NewMemhandlerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "memhandler",
		Short:        memhandlerShortDesc,
		Long:         memhandlerLongDesc,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .memhandler/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(contextcmder.NewContextCmd())
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(memoriescmder.NewMemoriesCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
