package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

func (c *cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the appplane CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			format := c.output()
			if format != constants.FormatTable {
				return render(cmd.OutOrStdout(), format, c.info)
			}

			return renderTable(cmd.OutOrStdout(), []string{"Property", "Value"}, [][]string{
				{"Version", c.info.Version},
				{"Commit", c.info.Commit},
				{"Built", c.info.Built},
			})
		},
	}
}
