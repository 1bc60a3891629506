package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlopt/internal/optimize"
)

// PassInfo describes one optimizer pass.
type PassInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List optimizer passes in default order",
		Long: `List every optimizer pass in the order it runs by default. These are the
names accepted by --passes and the passes key of the configuration file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			passes := optimize.Passes()
			infos := make([]PassInfo, len(passes))
			for i, p := range passes {
				infos[i] = PassInfo{Name: p.Name, Description: p.Description}
			}
			if formatter.Format == "json" {
				return formatter.Success(infos)
			}

			tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
			for i, p := range infos {
				fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, p.Name, p.Description)
			}
			return tw.Flush()
		},
	}
}
