package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-dlt645/dlt645"
)

type fieldOutput struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
	Unit  string  `yaml:"unit,omitempty"`
	Text  string  `yaml:"text,omitempty"`
	Raw   uint64  `yaml:"raw"`

	custom bool
}

type frameOutput struct {
	Address  string        `yaml:"address,omitempty"`
	Control  string        `yaml:"control,omitempty"`
	Length   int           `yaml:"length"`
	Checksum string        `yaml:"checksum,omitempty"`
	Fields   []fieldOutput `yaml:"fields"`
	Skipped  []string      `yaml:"skipped,omitempty"`
}

func newFieldOutputs(values []dlt645.FieldValue) []fieldOutput {
	out := make([]fieldOutput, len(values))
	for i, v := range values {
		out[i] = fieldOutput{
			ID:    string(v.ID),
			Name:  v.Name,
			Value: v.Scaled,
			Unit:  v.Unit,
			Text:  v.Text,
			Raw:   v.Raw,

			custom: v.IsText(),
		}
	}

	return out
}

func skippedStrings(ids []dlt645.FieldID) []string {
	if len(ids) == 0 {
		return nil
	}

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}

	return out
}

func newFrameOutput(pf *dlt645.ParsedFrame) frameOutput {
	return frameOutput{
		Address:  pf.Address,
		Control:  fmt.Sprintf("%s (0x%02X)", pf.Control, byte(pf.Control)),
		Length:   int(pf.Length),
		Checksum: fmt.Sprintf("0x%02X", pf.Checksum),
		Fields:   newFieldOutputs(pf.Values()),
		Skipped:  skippedStrings(pf.Skipped),
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

func writeFrameText(w io.Writer, out frameOutput) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if out.Address != "" {
		fmt.Fprintf(tw, "address:\t%s\n", out.Address)
		fmt.Fprintf(tw, "control:\t%s\n", out.Control)
		fmt.Fprintf(tw, "checksum:\t%s\n", out.Checksum)
	}
	fmt.Fprintf(tw, "length:\t%d\n", out.Length)

	if len(out.Fields) > 0 {
		fmt.Fprintln(tw, "fields:")
		for _, f := range out.Fields {
			value := f.Text
			if !f.custom {
				value = fmt.Sprintf("%g %s", f.Value, f.Unit)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.ID, f.Name, value)
		}
	}

	for _, id := range out.Skipped {
		fmt.Fprintf(tw, "skipped:\t%s\n", id)
	}

	return tw.Flush()
}
