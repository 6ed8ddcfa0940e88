package dlt645

import (
	"encoding/hex"
	"strings"
)

// FieldID names a measurable or controllable quantity. Its canonical form is
// uppercase hex: 8 digits for the legacy variant, 12 for the revised one.
type FieldID string

// Legacy (DL/T 645-1997) field identifiers.
const (
	LegacyForwardActiveEnergy FieldID = "00000100"
	LegacyReverseActiveEnergy FieldID = "00000200"
	LegacyPhaseAVoltage       FieldID = "00010100"
	LegacyPhaseBVoltage       FieldID = "00010200"
	LegacyPhaseCVoltage       FieldID = "00010300"
	LegacyPhaseACurrent       FieldID = "00020100"
	LegacyPhaseBCurrent       FieldID = "00020200"
	LegacyPhaseCCurrent       FieldID = "00020300"
	LegacyTotalActivePower    FieldID = "00030100"
	LegacyPhaseAActivePower   FieldID = "00030200"
	LegacyPhaseBActivePower   FieldID = "00030300"
	LegacyPhaseCActivePower   FieldID = "00030400"
	LegacyMeterBalance        FieldID = "00100100"
	LegacyPowerProtect        FieldID = "00110100"
	LegacySwitchControl       FieldID = "000F0100"
)

// Revised (DL/T 645-2007) field identifiers.
const (
	RevisedForwardActiveEnergy FieldID = "0000010000FF"
	RevisedReverseActiveEnergy FieldID = "0000020000FF"
	RevisedPhaseAVoltage       FieldID = "0001010000FF"
	RevisedPhaseBVoltage       FieldID = "0001020000FF"
	RevisedPhaseCVoltage       FieldID = "0001030000FF"
	RevisedPhaseACurrent       FieldID = "0002010000FF"
	RevisedPhaseBCurrent       FieldID = "0002020000FF"
	RevisedPhaseCCurrent       FieldID = "0002030000FF"
	RevisedTotalActivePower    FieldID = "0003010000FF"
	RevisedPhaseAActivePower   FieldID = "0004010000FF"
	RevisedPhaseBActivePower   FieldID = "0004020000FF"
	RevisedPhaseCActivePower   FieldID = "0004030000FF"
	RevisedPhaseAReactivePower FieldID = "0005010000FF"
	RevisedPhaseBReactivePower FieldID = "0005020000FF"
	RevisedPhaseCReactivePower FieldID = "0005030000FF"
	RevisedPhaseAApparentPower FieldID = "0006010000FF"
	RevisedPhaseBApparentPower FieldID = "0006020000FF"
	RevisedPhaseCApparentPower FieldID = "0006030000FF"
	RevisedPhaseAPowerFactor   FieldID = "0007010000FF"
	RevisedPhaseBPowerFactor   FieldID = "0007020000FF"
	RevisedPhaseCPowerFactor   FieldID = "0007030000FF"
	RevisedFrequency           FieldID = "0008010000FF"
	RevisedPowerProtect        FieldID = "0011010000FF"
	RevisedSwitchControl       FieldID = "000F010000FF"
)

// ParseFieldID validates s as an identifier of width bytes and returns it in
// canonical (uppercase) form.
func ParseFieldID(s string, width int) (FieldID, error) {
	if width <= 0 || !isHex(s, width*2) {
		return "", buildErr("field", s, ErrInvalidFieldID)
	}

	return FieldID(strings.ToUpper(s)), nil
}

// Bytes returns the wire bytes of the identifier. It returns nil if the
// identifier is not valid hex.
func (id FieldID) Bytes() []byte {
	b, err := hex.DecodeString(string(id))
	if err != nil {
		return nil
	}

	return b
}

// Width returns the identifier width in bytes.
func (id FieldID) Width() int { return len(id) / 2 }

func (id FieldID) String() string { return string(id) }

func fieldIDFromBytes(b []byte) FieldID {
	return FieldID(strings.ToUpper(hex.EncodeToString(b)))
}
