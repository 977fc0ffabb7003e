// Package remembercmder provides the remember command, which stores a
// user/assistant exchange through a running gateway.
package remembercmder

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
	"github.com/Sakibyash/infinoz-bot1/pkg/client"
	"github.com/Sakibyash/infinoz-bot1/pkg/cliui"
	"github.com/Sakibyash/infinoz-bot1/pkg/config"
)

type rememberCommander struct {
	apiTarget string
	timeout   time.Duration
}

const rememberLongDesc string = `Store a conversation turn for a user.

Calls POST /add-memory on a running gateway with the user's message and the
assistant's reply. The memory store decides which facts to keep.

Examples:
  memhandler remember user-42 "I'm vegetarian" "Noted, no meat recipes then."`

const rememberShortDesc string = "Store a conversation turn for a user"

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <user_id> <user_message> <ai_response>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(3),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForCommand(cmd, config.Flags, []string{config.FlagAPITarget})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(cmder.apiTarget, cmder.timeout)
			in := gateway.MemoryInput{UserID: args[0], UserMessage: args[1], AIResponse: args[2]}

			var out *gateway.AddOutput
			store := func() error {
				var err error
				out, err = c.AddMemory(cmd.Context(), in)
				return err
			}

			if term.IsTerminal(int(os.Stderr.Fd())) {
				if err := cliui.Step(os.Stderr, "Storing memory for "+in.UserID, store); err != nil {
					return err
				}
			} else if err := store(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cliui.SuccessMark, out.Status)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 60*time.Second, "Request timeout")

	return cmd
}
