package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-dlt645/dlt645"
)

type buildFlags struct {
	address string
	fields  []string
	value   string
	control string
	payload string
	command string
}

func newBuildCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a request frame and print it as hex",
		Long: `Build a request frame for the selected protocol variant and print it as
space separated uppercase hex, ready to be sent to a meter.`,
	}

	cmd.AddCommand(newBuildReadCmd(root))
	cmd.AddCommand(newBuildMultiReadCmd(root))
	cmd.AddCommand(newBuildWriteCmd(root))
	cmd.AddCommand(newBuildBroadcastCmd(root))
	cmd.AddCommand(newBuildSwitchCmd(root))
	cmd.AddCommand(newBuildProtectCmd(root))

	return cmd
}

// buildCmd wraps a frame constructor into a command that prints the frame.
func buildCmd(root *rootFlags, use, short string, flags *buildFlags,
	build func(*dlt645.Codec, *buildFlags) (dlt645.Frame, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := root.codec()
			if err != nil {
				return err
			}

			frame, err := build(codec, flags)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), frame.Hex())

			return err
		},
	}
}

func newBuildReadCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := buildCmd(root, "read", "Build a READ frame for one field", flags,
		func(c *dlt645.Codec, f *buildFlags) (dlt645.Frame, error) {
			if len(f.fields) != 1 {
				return dlt645.Frame{}, fmt.Errorf("read takes exactly one --field, got %d", len(f.fields))
			}

			return c.BuildRead(f.address, dlt645.FieldID(f.fields[0]))
		})

	addressFlag(cmd, flags)
	cmd.Flags().StringSliceVar(&flags.fields, "field", nil, "Field identifier in hex")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func newBuildMultiReadCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := buildCmd(root, "multi-read", "Build a READ frame for several fields", flags,
		func(c *dlt645.Codec, f *buildFlags) (dlt645.Frame, error) {
			ids := make([]dlt645.FieldID, len(f.fields))
			for i, s := range f.fields {
				ids[i] = dlt645.FieldID(s)
			}

			return c.BuildMultiRead(f.address, ids)
		})

	addressFlag(cmd, flags)
	cmd.Flags().StringSliceVar(&flags.fields, "field", nil, "Field identifiers in hex (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func newBuildWriteCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := buildCmd(root, "write", "Build a WRITE frame", flags,
		func(c *dlt645.Codec, f *buildFlags) (dlt645.Frame, error) {
			if len(f.fields) != 1 {
				return dlt645.Frame{}, fmt.Errorf("write takes exactly one --field, got %d", len(f.fields))
			}

			value, err := dlt645.ParseHex(f.value)
			if err != nil {
				return dlt645.Frame{}, fmt.Errorf("--value: %w", err)
			}

			id := dlt645.FieldID(f.fields[0])
			if f.control == "" {
				return c.BuildWrite(f.address, id, value)
			}

			control, err := parseControl(f.control)
			if err != nil {
				return dlt645.Frame{}, err
			}

			return c.BuildWriteControl(control, f.address, id, value)
		})

	addressFlag(cmd, flags)
	cmd.Flags().StringSliceVar(&flags.fields, "field", nil, "Field identifier in hex")
	cmd.Flags().StringVar(&flags.value, "value", "", "Value bytes in hex, as sent on the wire")
	cmd.Flags().StringVar(&flags.control, "control", "", "Control code in hex (default WRITE 0x02)")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}

func newBuildBroadcastCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := buildCmd(root, "broadcast", "Build a frame addressed to every meter", flags,
		func(c *dlt645.Codec, f *buildFlags) (dlt645.Frame, error) {
			control, err := parseControl(f.control)
			if err != nil {
				return dlt645.Frame{}, err
			}

			payload, err := dlt645.ParseHex(f.payload)
			if err != nil {
				return dlt645.Frame{}, fmt.Errorf("--payload: %w", err)
			}

			return c.BuildBroadcast(control, payload)
		})

	cmd.Flags().StringVar(&flags.control, "control", "", "Control code in hex, e.g. 08 for time sync")
	cmd.Flags().StringVar(&flags.payload, "payload", "", "Payload bytes in hex")
	_ = cmd.MarkFlagRequired("control")

	return cmd
}

var switchCommands = map[string]dlt645.SwitchCommand{
	"query": dlt645.SwitchQuery,
	"close": dlt645.SwitchClose,
	"open":  dlt645.SwitchOpen,
}

var protectCommands = map[string]dlt645.PowerProtectCommand{
	"query":   dlt645.PowerProtectQuery,
	"enable":  dlt645.PowerProtectEnable,
	"disable": dlt645.PowerProtectDisable,
}

func newBuildSwitchCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := buildCmd(root, "switch", "Build a relay switch command", flags,
		func(c *dlt645.Codec, f *buildFlags) (dlt645.Frame, error) {
			sc, ok := switchCommands[strings.ToLower(f.command)]
			if !ok {
				return dlt645.Frame{}, fmt.Errorf("unknown switch command %q (query|close|open)", f.command)
			}

			return c.BuildSwitch(f.address, sc)
		})

	addressFlag(cmd, flags)
	cmd.Flags().StringVar(&flags.command, "command", "query", "Switch command: query|close|open")

	return cmd
}

func newBuildProtectCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := buildCmd(root, "protect", "Build a power-protect command", flags,
		func(c *dlt645.Codec, f *buildFlags) (dlt645.Frame, error) {
			pc, ok := protectCommands[strings.ToLower(f.command)]
			if !ok {
				return dlt645.Frame{}, fmt.Errorf("unknown power-protect command %q (query|enable|disable)", f.command)
			}

			return c.BuildPowerProtect(f.address, pc)
		})

	addressFlag(cmd, flags)
	cmd.Flags().StringVar(&flags.command, "command", "query", "Power-protect command: query|enable|disable")

	return cmd
}

func addressFlag(cmd *cobra.Command, flags *buildFlags) {
	cmd.Flags().StringVar(&flags.address, "address", "", "Meter address, 12 hex digits")
	_ = cmd.MarkFlagRequired("address")
}

// parseControl accepts "08", "0x08" or "0X08".
func parseControl(s string) (dlt645.ControlCode, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid control code %q: %w", s, err)
	}

	return dlt645.ControlCode(v), nil
}
