// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sakibyash/infinoz-bot1/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the memhandler version",
		Long:  "Display the version, commit and build time of this memhandler binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "memhandler %s\nSha: %s\nBuilt at: %s\n",
				utils.Version, utils.Sha, utils.Buildtime)
			return err
		},
	}
}
