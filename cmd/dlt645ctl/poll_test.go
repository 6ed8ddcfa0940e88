package main

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-dlt645/dlt645"
	"github.com/arloliu/go-dlt645/internal/config"
	"github.com/arloliu/go-dlt645/transport"
)

const pollYAML = `
variant: "2007"
serial:
  device: /dev/ttyTEST
  reply_timeout: 100ms
meters:
  - name: main
    address: "1234567890AB"
    fields: ["0001010000FF", "0002010000FF"]
  - name: silent
    address: "000000000001"
    fields: ["0001010000FF"]
`

// serveMeter answers every READ addressed to addr with resp and ignores
// other meters. It stops when conn is closed.
func serveMeter(conn net.Conn, codec *dlt645.Codec, addr string, resp []byte) {
	go func() {
		header := make([]byte, dlt645.HeaderLen)
		for {
			if _, err := io.ReadFull(conn, header); err != nil {
				return
			}
			rest := make([]byte, int(header[dlt645.HeaderLen-1])+dlt645.TrailerLen)
			if _, err := io.ReadFull(conn, rest); err != nil {
				return
			}

			req, err := codec.Parse(append(header, rest...))
			if err != nil || req.Address != addr {
				continue
			}
			if _, err := conn.Write(resp); err != nil {
				return
			}
		}
	}()
}

func TestRunPoll_Once(t *testing.T) {
	cfg, err := config.Parse([]byte(pollYAML))
	require.NoError(t, err)

	local, remote := net.Pipe()
	t.Cleanup(func() { _ = remote.Close() })

	codec := dlt645.MustNewCodec(dlt645.Revised)
	resp, err := codec.BuildFrame("1234567890AB", dlt645.ControlReadResp, []byte{
		0x00, 0x01, 0x01, 0x00, 0x00, 0xFF, 0x01, 0x09,
		0x00, 0x02, 0x01, 0x00, 0x00, 0xFF, 0x03, 0x14,
	})
	require.NoError(t, err)
	serveMeter(remote, codec, "1234567890AB", resp.Bytes())

	var out bytes.Buffer
	err = runPoll(t.Context(), &out, cfg, true, transport.WithPort(local))
	require.NoError(t, err)

	var got pollResult
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Meters, 2)
	assert.WithinDuration(t, time.Now(), got.Time, time.Minute)

	first := got.Meters[0]
	assert.Equal(t, "main", first.Name)
	assert.Empty(t, first.Error)
	require.Len(t, first.Fields, 2)
	assert.InDelta(t, 230.5, first.Fields[0].Value, 1e-9)
	assert.InDelta(t, 5.123, first.Fields[1].Value, 1e-9)
	assert.Equal(t, "A", first.Fields[1].Unit)

	silent := got.Meters[1]
	assert.Equal(t, "000000000001", silent.Address)
	assert.Contains(t, silent.Error, "reply timeout")
}

func TestRunPoll_NoMeterAnswers(t *testing.T) {
	cfg, err := config.Parse([]byte(pollYAML))
	require.NoError(t, err)

	local, remote := net.Pipe()
	t.Cleanup(func() { _ = remote.Close() })
	serveMeter(remote, dlt645.MustNewCodec(dlt645.Revised), "AAAAAAAAAAAA", nil)

	var out bytes.Buffer
	err = runPoll(t.Context(), &out, cfg, true, transport.WithPort(local))
	require.Error(t, err)
	assert.Contains(t, out.String(), "reply timeout")
}

func TestPollCmd_RequiresConfig(t *testing.T) {
	_, err := execute(t, "poll")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "config" not set`)
}
