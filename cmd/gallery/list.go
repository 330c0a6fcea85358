package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List gallery images, newest first",
		Long: `Fetch the image feed one page at a time.

Stops after --pages pages or when the feed is exhausted. Use --pages 0 to fetch everything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 0 {
				return fmt.Errorf("--pages must not be negative")
			}
			session, err := a.newSession(cmd, nil)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			if err := session.Load(ctx); err != nil {
				return err
			}
			for loaded := 1; session.HasMore() && (pages == 0 || loaded < pages); loaded++ {
				appended, err := session.LoadMore(ctx)
				if err != nil {
					return err
				}
				if !appended {
					break
				}
			}

			items := session.Items()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tADDED\tURL")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.Title, it.CreatedAt.Local().Format(time.DateTime), it.URL)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if session.HasMore() {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d image(s) shown, more available.\n", len(items))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d image(s).\n", len(items))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch (0 for all)")
	return cmd
}
