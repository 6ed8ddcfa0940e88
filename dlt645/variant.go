package dlt645

import (
	"fmt"
	"slices"
	"strings"
)

// ControlCode is the frame control byte. Bit 7 is set on meter responses.
type ControlCode byte

// Control codes. The first four are shared by both variants; the rest exist
// only in the revised (2007) variant.
const (
	ControlRead      ControlCode = 0x01
	ControlReadResp  ControlCode = 0x81
	ControlWrite     ControlCode = 0x02
	ControlWriteResp ControlCode = 0x82

	ControlBroadcast      ControlCode = 0x08
	ControlCommand        ControlCode = 0x0F
	ControlReadParam      ControlCode = 0x03
	ControlReadParamResp  ControlCode = 0x83
	ControlWriteParam     ControlCode = 0x04
	ControlWriteParamResp ControlCode = 0x84
)

var controlNames = map[ControlCode]string{
	ControlRead:           "READ",
	ControlReadResp:       "READ_RESP",
	ControlWrite:          "WRITE",
	ControlWriteResp:      "WRITE_RESP",
	ControlBroadcast:      "BROADCAST",
	ControlCommand:        "CONTROL",
	ControlReadParam:      "READ_PARAM",
	ControlReadParamResp:  "READ_PARAM_RESP",
	ControlWriteParam:     "WRITE_PARAM",
	ControlWriteParamResp: "WRITE_PARAM_RESP",
}

// String returns the symbolic name of the control code, or its hex value if
// the code is not a known one.
func (c ControlCode) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}

	return fmt.Sprintf("0x%02X", byte(c))
}

// IsResponse reports whether the code marks a meter-to-master frame.
func (c ControlCode) IsResponse() bool {
	return c&0x80 != 0
}

// ControlTarget selects the controllable quantity addressed by a control
// command.
type ControlTarget int

const (
	SwitchTarget ControlTarget = iota
	PowerProtectTarget
)

func (t ControlTarget) String() string {
	switch t {
	case SwitchTarget:
		return "switch"
	case PowerProtectTarget:
		return "power-protect"
	default:
		return fmt.Sprintf("ControlTarget(%d)", int(t))
	}
}

// Variant describes one protocol generation. A Variant is immutable; the two
// supported generations are exposed as Legacy and Revised.
type Variant struct {
	name        string
	year        string
	idWidth     int
	minFrameLen int
	controls    []ControlCode
	commandCode ControlCode
	switchID    FieldID
	protectID   FieldID
	registry    *Registry
}

// Legacy is the DL/T 645-1997 variant: 4-byte field identifiers.
var Legacy = Variant{
	name:        "legacy",
	year:        "1997",
	idWidth:     4,
	minFrameLen: 13,
	controls: []ControlCode{
		ControlRead, ControlReadResp,
		ControlWrite, ControlWriteResp,
	},
	commandCode: ControlWrite,
	switchID:    LegacySwitchControl,
	protectID:   LegacyPowerProtect,
	registry:    legacyRegistry,
}

// Revised is the DL/T 645-2007 variant: 6-byte field identifiers and an
// extended control-code set.
var Revised = Variant{
	name:        "revised",
	year:        "2007",
	idWidth:     6,
	minFrameLen: 14,
	controls: []ControlCode{
		ControlRead, ControlReadResp,
		ControlWrite, ControlWriteResp,
		ControlBroadcast, ControlCommand,
		ControlReadParam, ControlReadParamResp,
		ControlWriteParam, ControlWriteParamResp,
	},
	commandCode: ControlCommand,
	switchID:    RevisedSwitchControl,
	protectID:   RevisedPowerProtect,
	registry:    revisedRegistry,
}

// VariantByName resolves a variant from its name or publication year:
// "legacy", "1997", "revised" or "2007" (case-insensitive).
func VariantByName(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Legacy.name, Legacy.year, "dlt645-1997":
		return Legacy, nil
	case Revised.name, Revised.year, "dlt645-2007":
		return Revised, nil
	default:
		return Variant{}, fmt.Errorf("dlt645: unknown protocol variant %q", name)
	}
}

// Name returns the short variant name ("legacy" or "revised").
func (v Variant) Name() string { return v.name }

// String returns the standard designation, e.g. "DL/T645-2007".
func (v Variant) String() string { return "DL/T645-" + v.year }

// IDWidth returns the field identifier width in bytes.
func (v Variant) IDWidth() int { return v.idWidth }

// MinFrameLen returns the shortest buffer the parser accepts.
func (v Variant) MinFrameLen() int { return v.minFrameLen }

// CommandCode returns the control code used for switch and power-protect
// commands.
func (v Variant) CommandCode() ControlCode { return v.commandCode }

// Registry returns the built-in field registry for the variant.
func (v Variant) Registry() *Registry { return v.registry }

// Supports reports whether the control code belongs to the variant.
func (v Variant) Supports(c ControlCode) bool {
	return slices.Contains(v.controls, c)
}

// ControlCodes returns a copy of the variant's control-code set.
func (v Variant) ControlCodes() []ControlCode {
	return slices.Clone(v.controls)
}

// TargetID returns the field identifier addressed by a control command.
func (v Variant) TargetID(t ControlTarget) (FieldID, bool) {
	switch t {
	case SwitchTarget:
		return v.switchID, true
	case PowerProtectTarget:
		return v.protectID, true
	default:
		return "", false
	}
}

func (v Variant) isZero() bool { return v.idWidth == 0 }
