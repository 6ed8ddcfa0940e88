package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-dlt645/dlt645"
)

type parseFlags struct {
	output      string
	payloadOnly bool
}

func newParseCmd(root *rootFlags) *cobra.Command {
	flags := &parseFlags{}

	cmd := &cobra.Command{
		Use:   "parse <hex>...",
		Short: "Validate and decode a frame",
		Long: `Validate a frame given as hex (spaces allowed, or split over several
arguments) and print its header and decoded fields.

With --payload-only the input is a bare payload of identifier/value pairs.`,
		Example: `  dlt645ctl parse --variant 1997 68 69 BD 9F B7 FF FF 01 04 00 00 01 00 F8 16`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != "text" && flags.output != "yaml" {
				return fmt.Errorf("unknown output format %q (text|yaml)", flags.output)
			}

			codec, err := root.codec()
			if err != nil {
				return err
			}

			buf, err := dlt645.ParseHex(strings.Join(args, " "))
			if err != nil {
				return err
			}

			var out frameOutput
			if flags.payloadOnly {
				fields, order, skipped := codec.DecodePayload(buf)
				values := make([]dlt645.FieldValue, len(order))
				for i, id := range order {
					values[i] = fields[id]
				}
				out = frameOutput{
					Length:  len(buf),
					Fields:  newFieldOutputs(values),
					Skipped: skippedStrings(skipped),
				}
			} else {
				pf, err := codec.Parse(buf)
				if err != nil {
					return err
				}
				out = newFrameOutput(pf)
			}

			if flags.output == "yaml" {
				return writeYAML(cmd.OutOrStdout(), out)
			}

			return writeFrameText(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "text", "Output format: text|yaml")
	cmd.Flags().BoolVar(&flags.payloadOnly, "payload-only", false, "Decode the input as a bare payload")

	return cmd
}
