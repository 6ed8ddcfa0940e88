package dlt645

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// ByteOrder is the wire order of a field value.
type ByteOrder uint8

const (
	// LittleEndian values are sent least significant byte first. Most meter
	// quantities use this order.
	LittleEndian ByteOrder = iota
	BigEndian
)

// Rule turns the raw unsigned value of a field into its user-facing form.
// It is implemented by Linear and Custom only.
type Rule interface {
	apply(raw uint64) (scaled float64, text string)
}

// Linear scales the raw value by a decimal multiplier. The result is rounded
// to three decimal places.
type Linear struct {
	Scale float64
}

func (r Linear) apply(raw uint64) (float64, string) {
	return round3(float64(raw) * r.Scale), ""
}

// Custom maps the raw value to a label, for status fields that are not
// numeric.
type Custom struct {
	Decode func(raw uint64) string
}

func (r Custom) apply(raw uint64) (float64, string) {
	return float64(raw), r.Decode(raw)
}

// Enum returns a Custom rule that looks raw values up in labels, falling back
// to fallback for values not listed.
func Enum(labels map[uint64]string, fallback string) Custom {
	labels = maps.Clone(labels)

	return Custom{Decode: func(raw uint64) string {
		if s, ok := labels[raw]; ok {
			return s
		}

		return fallback
	}}
}

// Descriptor holds the decode metadata of one field.
type Descriptor struct {
	Name  string
	Unit  string
	Width int // value width in bytes, 1..8
	Order ByteOrder
	Rule  Rule
}

// Registry is an immutable table of field descriptors keyed by identifier.
type Registry struct {
	idWidth int
	entries map[FieldID]Descriptor
}

// NewRegistry validates entries and returns a registry for identifiers of
// idWidth bytes. The entries map is copied.
func NewRegistry(idWidth int, entries map[FieldID]Descriptor) (*Registry, error) {
	if idWidth <= 0 {
		return nil, fmt.Errorf("dlt645: invalid identifier width %d", idWidth)
	}

	reg := &Registry{
		idWidth: idWidth,
		entries: make(map[FieldID]Descriptor, len(entries)),
	}

	for raw, desc := range entries {
		id, err := ParseFieldID(string(raw), idWidth)
		if err != nil {
			return nil, err
		}
		if err := desc.validate(); err != nil {
			return nil, fmt.Errorf("dlt645: field %s: %w", id, err)
		}
		reg.entries[id] = desc
	}

	return reg, nil
}

func (d Descriptor) validate() error {
	if d.Width < 1 || d.Width > 8 {
		return fmt.Errorf("value width %d out of range [1, 8]", d.Width)
	}

	switch r := d.Rule.(type) {
	case Linear:
		if r.Scale <= 0 || math.IsInf(r.Scale, 0) || math.IsNaN(r.Scale) {
			return fmt.Errorf("invalid scale %v", r.Scale)
		}
	case Custom:
		if r.Decode == nil {
			return errors.New("custom rule without decode function")
		}
	case nil:
		return errors.New("missing decode rule")
	default:
		return fmt.Errorf("unsupported rule type %T", d.Rule)
	}

	return nil
}

// IDWidth returns the identifier width the registry was built for.
func (r *Registry) IDWidth() int { return r.idWidth }

// Len returns the number of registered fields.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the descriptor registered for id.
func (r *Registry) Lookup(id FieldID) (Descriptor, bool) {
	d, ok := r.entries[id]
	return d, ok
}

// IDs returns the registered identifiers in ascending order.
func (r *Registry) IDs() []FieldID {
	return slices.Sorted(maps.Keys(r.entries))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Status labels of the built-in custom fields.
const (
	StatusUnknown  = "unknown"
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
	StatusClosed   = "closed"
	StatusOpen     = "open"
)

var (
	powerProtectRule = Enum(map[uint64]string{
		0x01: StatusEnabled,
		0x02: StatusDisabled,
	}, StatusUnknown)

	switchStateRule = Enum(map[uint64]string{
		0x01: StatusClosed,
		0x02: StatusOpen,
	}, StatusUnknown)
)

func energy(name string) Descriptor {
	return Descriptor{Name: name, Unit: "kWh", Width: 4, Rule: Linear{Scale: 0.001}}
}

func voltage(name string) Descriptor {
	return Descriptor{Name: name, Unit: "V", Width: 2, Rule: Linear{Scale: 0.1}}
}

func current(name string) Descriptor {
	return Descriptor{Name: name, Unit: "A", Width: 2, Rule: Linear{Scale: 0.001}}
}

func power(name, unit string) Descriptor {
	return Descriptor{Name: name, Unit: unit, Width: 4, Rule: Linear{Scale: 0.1}}
}

func status(name string, rule Rule) Descriptor {
	return Descriptor{Name: name, Width: 1, Order: BigEndian, Rule: rule}
}

var legacyRegistry = mustRegistry(4, map[FieldID]Descriptor{
	LegacyForwardActiveEnergy: energy("forward active energy"),
	LegacyReverseActiveEnergy: energy("reverse active energy"),
	LegacyPhaseAVoltage:       voltage("phase A voltage"),
	LegacyPhaseBVoltage:       voltage("phase B voltage"),
	LegacyPhaseCVoltage:       voltage("phase C voltage"),
	LegacyPhaseACurrent:       current("phase A current"),
	LegacyPhaseBCurrent:       current("phase B current"),
	LegacyPhaseCCurrent:       current("phase C current"),
	LegacyTotalActivePower:    power("total active power", "kW"),
	LegacyPhaseAActivePower:   power("phase A active power", "kW"),
	LegacyPhaseBActivePower:   power("phase B active power", "kW"),
	LegacyPhaseCActivePower:   power("phase C active power", "kW"),
	LegacyMeterBalance:        {Name: "meter balance", Unit: "CNY", Width: 4, Rule: Linear{Scale: 0.01}},
	LegacyPowerProtect:        status("power protect state", powerProtectRule),
	LegacySwitchControl:       status("switch state", switchStateRule),
})

var revisedRegistry = mustRegistry(6, map[FieldID]Descriptor{
	RevisedForwardActiveEnergy: energy("forward active energy"),
	RevisedReverseActiveEnergy: energy("reverse active energy"),
	RevisedPhaseAVoltage:       voltage("phase A voltage"),
	RevisedPhaseBVoltage:       voltage("phase B voltage"),
	RevisedPhaseCVoltage:       voltage("phase C voltage"),
	RevisedPhaseACurrent:       current("phase A current"),
	RevisedPhaseBCurrent:       current("phase B current"),
	RevisedPhaseCCurrent:       current("phase C current"),
	RevisedTotalActivePower:    power("total active power", "kW"),
	RevisedPhaseAActivePower:   power("phase A active power", "kW"),
	RevisedPhaseBActivePower:   power("phase B active power", "kW"),
	RevisedPhaseCActivePower:   power("phase C active power", "kW"),
	RevisedPhaseAReactivePower: power("phase A reactive power", "kvar"),
	RevisedPhaseBReactivePower: power("phase B reactive power", "kvar"),
	RevisedPhaseCReactivePower: power("phase C reactive power", "kvar"),
	RevisedPhaseAApparentPower: power("phase A apparent power", "kVA"),
	RevisedPhaseBApparentPower: power("phase B apparent power", "kVA"),
	RevisedPhaseCApparentPower: power("phase C apparent power", "kVA"),
	RevisedPhaseAPowerFactor:   {Name: "phase A power factor", Width: 2, Rule: Linear{Scale: 0.001}},
	RevisedPhaseBPowerFactor:   {Name: "phase B power factor", Width: 2, Rule: Linear{Scale: 0.001}},
	RevisedPhaseCPowerFactor:   {Name: "phase C power factor", Width: 2, Rule: Linear{Scale: 0.001}},
	RevisedFrequency:           {Name: "grid frequency", Unit: "Hz", Width: 2, Rule: Linear{Scale: 0.01}},
	RevisedPowerProtect:        status("power protect state", powerProtectRule),
	RevisedSwitchControl:       status("switch state", switchStateRule),
})

func mustRegistry(idWidth int, entries map[FieldID]Descriptor) *Registry {
	reg, err := NewRegistry(idWidth, entries)
	if err != nil {
		panic(err)
	}

	return reg
}
