package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "legacy read",
			args: []string{"build", "read", "--variant", "1997", "--address", "000048604296", "--field", "00000100"},
			want: "68 69 BD 9F B7 FF FF 01 04 00 00 01 00 F8 16",
		},
		{
			name: "revised read",
			args: []string{"build", "read", "--address", "1234567890AB", "--field", "0001010000FF"},
			want: "68 54 6F 87 A9 CB ED 01 06 00 01 01 00 00 FF CB 16",
		},
		{
			name: "revised switch open",
			args: []string{"build", "switch", "--address", "1234567890AB", "--command", "open"},
			want: "68 54 6F 87 A9 CB ED 0F 07 00 0F 01 00 00 FF 02 C8 16",
		},
		{
			name: "revised broadcast",
			args: []string{"build", "broadcast", "--control", "0x08", "--payload", "25 08 12 05 06 24"},
			want: "68 00 00 00 00 00 00 08 06 25 08 12 05 06 24 16 16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestBuild_MultiReadAndWrite(t *testing.T) {
	out, err := execute(t, "build", "multi-read", "--address", "1234567890AB",
		"--field", "0001010000FF,0002010000FF")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "68 54 6F 87 A9 CB ED 01 0C 00 01 01 00 00 FF 00 02 01 00 00 FF"), out)

	out, err = execute(t, "build", "write", "--variant", "legacy", "--address", "1234567890AB",
		"--field", "00110100", "--value", "01")
	require.NoError(t, err)
	assert.Contains(t, out, " 02 05 00 11 01 00 01 ")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing address", []string{"build", "read", "--field", "0001010000FF"}, `required flag(s) "address" not set`},
		{"bad address", []string{"build", "read", "--address", "XYZ", "--field", "0001010000FF"}, "invalid meter address"},
		{"legacy field on revised", []string{"build", "read", "--address", "1234567890AB", "--field", "00010100"}, "invalid field"},
		{"broadcast on legacy", []string{"build", "broadcast", "--variant", "1997", "--control", "08"}, "control code"},
		{"bad switch command", []string{"build", "switch", "--address", "1234567890AB", "--command", "toggle"}, "unknown switch command"},
		{"unknown variant", []string{"build", "read", "--variant", "2013", "--address", "1234567890AB", "--field", "00"}, "unknown protocol variant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_Text(t *testing.T) {
	out, err := execute(t, "parse", "--variant", "1997",
		"68 54 6F 87 A9 CB ED 81 05 00 11 01 00 01 A6 16")
	require.NoError(t, err)

	assert.Contains(t, out, "1234567890AB")
	assert.Contains(t, out, "READ_RESP (0x81)")
	assert.Contains(t, out, "power protect state")
	assert.Contains(t, out, "enabled")
}

func TestParse_YAML(t *testing.T) {
	out, err := execute(t, "parse", "-o", "yaml",
		"68", "54", "6F", "87", "A9", "CB", "ED", "81", "08",
		"00", "01", "01", "00", "00", "FF", "01", "09", "4D", "16")
	require.NoError(t, err)

	var got frameOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "1234567890AB", got.Address)
	assert.Equal(t, 8, got.Length)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "0001010000FF", got.Fields[0].ID)
	assert.InDelta(t, 230.5, got.Fields[0].Value, 1e-9)
	assert.Equal(t, "V", got.Fields[0].Unit)
}

func TestParse_PayloadOnly(t *testing.T) {
	out, err := execute(t, "parse", "--variant", "1997", "--payload-only", "-o", "yaml", "00 11 01 00 01")
	require.NoError(t, err)

	var got frameOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "enabled", got.Fields[0].Text)
}

func TestParse_Errors(t *testing.T) {
	_, err := execute(t, "parse", "68 54 6F 87 A9 CB ED 81 01 00 11 01 00 01 94 16")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length")

	_, err = execute(t, "parse", "6G")
	require.Error(t, err)

	_, err = execute(t, "parse", "-o", "json", "68")
	require.Error(t, err)

	_, err = execute(t, "parse")
	require.Error(t, err)
}

func TestFields(t *testing.T) {
	out, err := execute(t, "fields", "--variant", "legacy")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 16, "header plus 15 fields")
	assert.Contains(t, out, "00010100")
	assert.Contains(t, out, "phase A voltage")
}

func TestConfigInitAndCheck(t *testing.T) {
	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "device: /dev/ttyUSB0")

	path := filepath.Join(t.TempDir(), "poll.yaml")
	_, err = execute(t, "config", "init", "--output", path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", "--output", path)
	require.Error(t, err, "existing file must not be overwritten")

	_, err = execute(t, "config", "init", "--output", path, "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "check", path)
	require.NoError(t, err)
	assert.Equal(t, "ok: 1 meters, variant 2007, device /dev/ttyUSB0\n", out)

	require.NoError(t, os.WriteFile(path, []byte("variant: 2013\n"), 0o600))
	_, err = execute(t, "config", "check", path)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dlt645ctl dev (commit unknown, built unknown)\n", out)
}

func TestLogFlags(t *testing.T) {
	_, err := execute(t, "version", "--log-level", "loud")
	require.Error(t, err)

	_, err = execute(t, "version", "--log-format", "xml")
	require.Error(t, err)
}
