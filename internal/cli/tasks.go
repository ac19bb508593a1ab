package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvtools/dvbatch/internal/action"
)

// newTasksCmd lists the available tasks and their default delays.
func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List available tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tDELAY\tDESCRIPTION")
			for _, t := range action.Tasks() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.DefaultDelay, t.Description)
			}
			return w.Flush()
		},
	}
}
