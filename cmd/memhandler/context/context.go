// Package contextcmder provides the context command, which fetches the
// memory-backed system prompt for a user from a running gateway.
package contextcmder

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Sakibyash/infinoz-bot1/pkg/client"
	"github.com/Sakibyash/infinoz-bot1/pkg/cliui"
	"github.com/Sakibyash/infinoz-bot1/pkg/config"
)

type contextCommander struct {
	apiTarget string
	raw       bool
	timeout   time.Duration
}

const contextLongDesc string = `Fetch the system prompt the gateway builds for a user.

Calls POST /get-context on a running gateway and prints the prompt. On a
terminal the prompt is rendered as markdown; use --raw for the exact text
an n8n workflow receives.

Examples:
  memhandler context user-42 "what should I cook tonight?"
  memhandler context user-42 "hello" --raw
  memhandler context user-42 "hello" --api-target http://gateway:8000`

const contextShortDesc string = "Fetch the memory-backed system prompt for a user"

func NewContextCmd() *cobra.Command {
	cmder := &contextCommander{}

	cmd := &cobra.Command{
		Use:   "context <user_id> <message>",
		Short: contextShortDesc,
		Long:  contextLongDesc,
		Args:  cobra.ExactArgs(2),
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

			prompt, err := c.GetContext(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			return cmder.print(cmd.OutOrStdout(), prompt)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the prompt exactly as returned")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 30*time.Second, "Request timeout")

	return cmd
}

func (c *contextCommander) print(w io.Writer, prompt string) error {
	if c.raw || !isTerminal(w) {
		_, err := fmt.Fprintln(w, prompt)
		return err
	}

	rendered, err := cliui.RenderMarkdown(cliui.PromptMarkdown(prompt))
	if err != nil {
		rendered = prompt + "\n"
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
