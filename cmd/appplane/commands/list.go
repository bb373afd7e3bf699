package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appclient"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

func (c *cli) newListCommand() *cobra.Command {
	var (
		columns  []string
		maxPages int
	)

	flags := &callFlags{}

	cmd := &cobra.Command{
		Use:   "list PATH",
		Short: "List a paginated collection",
		Long:  "Follow next_page_token cursors and print every item of a listing",
		Example: `  appplane list /widgets -o table --columns id,name
  appplane list /widgets --max-pages 5 -q owner=me`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.callOptions(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			client, release, err := c.newClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer release()

			fetch := appclient.ListPages[interface{}](client, args[0], opts...)

			items, err := appplane.Collect(ctx, fetch, appplane.WithMaxPages(maxPages))
			if err != nil {
				return err
			}

			if items == nil {
				items = []interface{}{}
			}

			format := c.output()
			if format == constants.FormatTable {
				return renderRows(cmd.OutOrStdout(), items, columns)
			}

			return render(cmd.OutOrStdout(), format, items)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "table columns (default: every item key)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 for no limit)")

	return cmd
}
