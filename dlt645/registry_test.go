package dlt645

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRegistries(t *testing.T) {
	for _, v := range []Variant{Legacy, Revised} {
		t.Run(v.String(), func(t *testing.T) {
			reg := v.Registry()
			require.NotNil(t, reg)
			assert.Equal(t, v.IDWidth(), reg.IDWidth())

			ids := reg.IDs()
			assert.Len(t, ids, reg.Len())
			assert.IsIncreasing(t, ids)

			for _, id := range ids {
				assert.Equal(t, v.IDWidth(), id.Width(), "id %s", id)
				d, ok := reg.Lookup(id)
				require.True(t, ok)
				assert.NotEmpty(t, d.Name)
			}

			for _, target := range []ControlTarget{SwitchTarget, PowerProtectTarget} {
				id, ok := v.TargetID(target)
				require.True(t, ok)
				_, ok = reg.Lookup(id)
				assert.True(t, ok, "%s target %s must be registered", v, target)
			}
		})
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		entries map[FieldID]Descriptor
	}{
		{"zero id width", 0, nil},
		{"id width mismatch", 4, map[FieldID]Descriptor{
			"0000010000FF": {Name: "x", Width: 1, Rule: Linear{Scale: 1}},
		}},
		{"value width zero", 4, map[FieldID]Descriptor{
			"00000100": {Name: "x", Width: 0, Rule: Linear{Scale: 1}},
		}},
		{"value width too large", 4, map[FieldID]Descriptor{
			"00000100": {Name: "x", Width: 9, Rule: Linear{Scale: 1}},
		}},
		{"missing rule", 4, map[FieldID]Descriptor{
			"00000100": {Name: "x", Width: 2},
		}},
		{"zero scale", 4, map[FieldID]Descriptor{
			"00000100": {Name: "x", Width: 2, Rule: Linear{}},
		}},
		{"custom without func", 4, map[FieldID]Descriptor{
			"00000100": {Name: "x", Width: 1, Rule: Custom{}},
		}},
		{"pointer custom rule", 4, map[FieldID]Descriptor{
			"0A0B0C0D": {Name: "x", Width: 1, Rule: &Custom{}},
		}},
		{"pointer linear rule", 4, map[FieldID]Descriptor{
			"00000100": {Name: "x", Width: 2, Rule: &Linear{Scale: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.width, tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestNewRegistry_CanonicalizesAndCopies(t *testing.T) {
	entries := map[FieldID]Descriptor{
		"0a0b0c0d": {Name: "vendor counter", Width: 3, Order: BigEndian, Rule: Linear{Scale: 1}},
	}

	reg, err := NewRegistry(4, entries)
	require.NoError(t, err)

	entries["00000100"] = Descriptor{Name: "late", Width: 1, Rule: Linear{Scale: 1}}
	assert.Equal(t, 1, reg.Len())

	d, ok := reg.Lookup("0A0B0C0D")
	require.True(t, ok)
	assert.Equal(t, "vendor counter", d.Name)
}

func TestCustomRegistry_ClosesSkipGap(t *testing.T) {
	reg, err := NewRegistry(4, map[FieldID]Descriptor{
		"0A0B0C0D":          {Name: "vendor", Width: 2, Rule: Linear{Scale: 1}},
		LegacyPhaseAVoltage: {Name: "phase A voltage", Unit: "V", Width: 2, Rule: Linear{Scale: 0.1}},
	})
	require.NoError(t, err)

	c, err := NewCodec(Legacy, WithRegistry(reg))
	require.NoError(t, err)

	// Without the vendor entry its two value bytes would be read as part of
	// the next identifier.
	fields, order, skipped := c.DecodePayload(mustHex(t, "0A 0B 0C 0D 01 00 00 01 01 00 01 09"))
	assert.Empty(t, skipped)
	assert.Equal(t, []FieldID{"0A0B0C0D", LegacyPhaseAVoltage}, order)
	assert.Equal(t, uint64(0x0001), fields["0A0B0C0D"].Raw)
	assert.InDelta(t, 230.5, fields[LegacyPhaseAVoltage].Scaled, 1e-9)
}

func TestDecodeUint(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, uint64(0x04030201), decodeUint(b, LittleEndian))
	assert.Equal(t, uint64(0x01020304), decodeUint(b, BigEndian))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), decodeUint([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, LittleEndian))
}

func TestEnum(t *testing.T) {
	labels := map[uint64]string{1: "a"}
	rule := Enum(labels, "other")
	labels[2] = "b"

	assert.Equal(t, "a", rule.Decode(1))
	assert.Equal(t, "other", rule.Decode(2), "labels are copied")
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 230.5, round3(2305*0.1))
	assert.Equal(t, 0.003, round3(3*0.001))
	assert.Equal(t, 12345.678, round3(12345678*0.001))
}
