package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/brogergvhs/noveld/internal/providers"

	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List built-in site profiles and their selectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tHOSTS\tTITLE\tCONTENT\tPARAGRAPH\tNEXT")

		for _, s := range providers.All() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.Name, strings.Join(s.Hosts, ","), s.Title, s.Content, s.Paragraph, s.Next)
		}

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
