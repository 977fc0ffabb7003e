// Package memoriescmder provides the memories command for inspecting and
// pruning what the gateway remembers about a user.
package memoriescmder

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sakibyash/infinoz-bot1/pkg/client"
	"github.com/Sakibyash/infinoz-bot1/pkg/cliui"
	"github.com/Sakibyash/infinoz-bot1/pkg/config"
	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
	"github.com/Sakibyash/infinoz-bot1/pkg/utils"
)

const previewLen = 72

type memoriesCommander struct {
	apiTarget string
	limit     int
	quiet     bool
	timeout   time.Duration
}

const memoriesLongDesc string = `List the memories stored for a user.

Calls GET /memories on a running gateway. Subcommands show the change log
of a single memory or delete it.

Use --quiet to print only memory IDs, one per line.

Examples:
  memhandler memories user-42
  memhandler memories user-42 --limit 10
  memhandler memories history 3f1c9a2e-...
  memhandler memories delete 3f1c9a2e-...`

const memoriesShortDesc string = "List and manage a user's memories"

func NewMemoriesCmd() *cobra.Command {
	cmder := &memoriesCommander{}

	cmd := &cobra.Command{
		Use:   "memories <user_id>",
		Short: memoriesShortDesc,
		Long:  memoriesLongDesc,
		Args:  cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForCommand(cmd, config.Flags, []string{config.FlagAPITarget})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := cmder.client().ListMemories(cmd.Context(), args[0], cmder.limit)
			if err != nil {
				return err
			}
			cmder.printEntries(cmd.OutOrStdout(), args[0], entries)
			return nil
		},
	}

	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.PersistentFlags().DurationVar(&cmder.timeout, "timeout", 30*time.Second, "Request timeout")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum number of memories to list")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only memory IDs")

	cmd.AddCommand(cmder.newHistoryCmd())
	cmd.AddCommand(cmder.newDeleteCmd())

	return cmd
}

func (c *memoriesCommander) client() *client.Client {
	return client.New(c.apiTarget, c.timeout)
}

func (c *memoriesCommander) newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <memory_id>",
		Short: "Show the change log of a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := c.client().MemoryHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), args[0], recs)
			return nil
		},
	}
}

func (c *memoriesCommander) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <memory_id>",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().DeleteMemory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(args[0]))
			return nil
		},
	}
}

func (c *memoriesCommander) printEntries(w io.Writer, userID string, entries []memory.Entry) {
	if c.quiet {
		for _, e := range entries {
			fmt.Fprintln(w, e.ID)
		}
		return
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "No memories stored for %s.\n", userID)
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Memories for"),
		cliui.NameStyle.Render(userID),
	)

	for i, e := range entries {
		fmt.Fprintf(w, "  %s  %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.DimStyle.Render(e.ID),
		)
		fmt.Fprintf(w, "      %s\n", cliui.ValueStyle.Render(preview(e.Memory)))
	}
	fmt.Fprintln(w)
}

func printHistory(w io.Writer, memoryID string, recs []history.Record) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "No history for %s.\n", memoryID)
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n", cliui.HeaderStyle.Render("History of"), cliui.NameStyle.Render(memoryID))

	for _, r := range recs {
		line := preview(r.NewMemory)
		if r.Event == history.EventUpdate && r.OldMemory != "" {
			line = preview(r.OldMemory) + " → " + line
		}
		if r.Event == history.EventDelete {
			line = preview(r.OldMemory)
		}

		fmt.Fprintf(w, "  %s  %-6s  %s\n",
			cliui.DimStyle.Render(r.CreatedAt.Format(time.DateTime)),
			cliui.KeyStyle.Render(string(r.Event)),
			line,
		)
	}
	fmt.Fprintln(w)
}

func preview(s string) string {
	return utils.Truncate(strings.ReplaceAll(s, "\n", " "), previewLen)
}
