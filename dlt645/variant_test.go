package dlt645

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_Properties(t *testing.T) {
	assert.Equal(t, "legacy", Legacy.Name())
	assert.Equal(t, "DL/T645-1997", Legacy.String())
	assert.Equal(t, 4, Legacy.IDWidth())
	assert.Equal(t, 13, Legacy.MinFrameLen())
	assert.Equal(t, ControlWrite, Legacy.CommandCode())

	assert.Equal(t, "revised", Revised.Name())
	assert.Equal(t, "DL/T645-2007", Revised.String())
	assert.Equal(t, 6, Revised.IDWidth())
	assert.Equal(t, 14, Revised.MinFrameLen())
	assert.Equal(t, ControlCommand, Revised.CommandCode())
}

func TestVariant_ControlCodes(t *testing.T) {
	shared := []ControlCode{ControlRead, ControlReadResp, ControlWrite, ControlWriteResp}
	revisedOnly := []ControlCode{
		ControlBroadcast, ControlCommand,
		ControlReadParam, ControlReadParamResp,
		ControlWriteParam, ControlWriteParamResp,
	}

	for _, c := range shared {
		assert.True(t, Legacy.Supports(c), "legacy %s", c)
		assert.True(t, Revised.Supports(c), "revised %s", c)
	}
	for _, c := range revisedOnly {
		assert.False(t, Legacy.Supports(c), "legacy %s", c)
		assert.True(t, Revised.Supports(c), "revised %s", c)
	}

	codes := Revised.ControlCodes()
	codes[0] = 0xEE
	assert.True(t, Revised.Supports(ControlRead), "ControlCodes returns a copy")
}

func TestVariantByName(t *testing.T) {
	for _, name := range []string{"legacy", "1997", "DLT645-1997", " Legacy "} {
		v, err := VariantByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, Legacy.Name(), v.Name())
	}
	for _, name := range []string{"revised", "2007", "dlt645-2007"} {
		v, err := VariantByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, Revised.Name(), v.Name())
	}

	_, err := VariantByName("2013")
	assert.Error(t, err)
}

func TestControlCode_String(t *testing.T) {
	assert.Equal(t, "READ_RESP", ControlReadResp.String())
	assert.Equal(t, "CONTROL", ControlCommand.String())
	assert.Equal(t, "0xC1", ControlCode(0xC1).String())
	assert.True(t, ControlCode(0xC1).IsResponse())
	assert.False(t, ControlWrite.IsResponse())
}

func TestNewCodec_Options(t *testing.T) {
	_, err := NewCodec(Variant{})
	require.Error(t, err)

	_, err = NewCodec(Legacy, WithRegistry(Revised.Registry()))
	require.Error(t, err, "registry width must match the variant")

	_, err = NewCodec(Legacy, WithRegistry(nil))
	require.Error(t, err)

	_, err = NewCodec(Legacy, WithLogger(nil))
	require.Error(t, err)

	c := MustNewCodec(Revised)
	assert.Equal(t, Revised.Name(), c.Variant().Name())
	assert.Same(t, Revised.Registry(), c.Registry())

	assert.Panics(t, func() { MustNewCodec(Variant{}) })
}
