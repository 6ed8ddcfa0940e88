package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFieldsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the field identifiers known to a protocol variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := root.codec()
			if err != nil {
				return err
			}

			reg := codec.Registry()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tUNIT\tBYTES")
			for _, id := range reg.IDs() {
				d, _ := reg.Lookup(id)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", id, d.Name, d.Unit, d.Width)
			}

			return tw.Flush()
		},
	}
}
