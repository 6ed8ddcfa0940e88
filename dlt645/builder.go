package dlt645

import "fmt"

// SwitchCommand is the command byte of a switch (relay) control frame.
type SwitchCommand byte

const (
	SwitchQuery SwitchCommand = 0x00
	SwitchClose SwitchCommand = 0x01 // restore supply
	SwitchOpen  SwitchCommand = 0x02 // cut supply
)

// PowerProtectCommand is the command byte of a power-protect control frame.
// While power protection is enabled the meter must not open its switch.
type PowerProtectCommand byte

const (
	PowerProtectQuery   PowerProtectCommand = 0x00
	PowerProtectEnable  PowerProtectCommand = 0x01
	PowerProtectDisable PowerProtectCommand = 0x02
)

// BuildRead builds a READ frame requesting a single field.
func (c *Codec) BuildRead(addr string, id FieldID) (Frame, error) {
	return c.BuildMultiRead(addr, []FieldID{id})
}

// BuildMultiRead builds a READ frame requesting several fields. The payload
// carries the identifiers in the order given; the response is self-describing
// and need not follow the same order.
func (c *Codec) BuildMultiRead(addr string, ids []FieldID) (Frame, error) {
	wire, err := EncodeAddress(addr)
	if err != nil {
		return Frame{}, err
	}

	if len(ids) == 0 {
		return Frame{}, buildErr("field", "", ErrInvalidFieldID)
	}

	payload := make([]byte, 0, len(ids)*c.variant.idWidth)
	for _, id := range ids {
		b, err := c.fieldBytes(id)
		if err != nil {
			return Frame{}, err
		}
		payload = append(payload, b...)
	}

	return newFrame(wire, ControlRead, payload)
}

// BuildWrite builds a WRITE frame: payload = identifier followed by value.
func (c *Codec) BuildWrite(addr string, id FieldID, value []byte) (Frame, error) {
	return c.BuildWriteControl(ControlWrite, addr, id, value)
}

// BuildWriteControl is like BuildWrite with an explicit control code, for
// instance ControlWriteParam on the revised variant.
func (c *Codec) BuildWriteControl(control ControlCode, addr string, id FieldID, value []byte) (Frame, error) {
	wire, err := EncodeAddress(addr)
	if err != nil {
		return Frame{}, err
	}

	if err := c.checkControl(control); err != nil {
		return Frame{}, err
	}

	idBytes, err := c.fieldBytes(id)
	if err != nil {
		return Frame{}, err
	}

	payload := make([]byte, 0, len(idBytes)+len(value))
	payload = append(payload, idBytes...)
	payload = append(payload, value...)

	return newFrame(wire, control, payload)
}

// BuildFrame builds a frame with an arbitrary payload addressed to addr.
// It is intended for meter simulators and test fixtures that need to produce
// response frames such as ControlReadResp.
//
// A payload too short to reach the variant's MinFrameLen (under 2 bytes on
// Legacy, 3 on Revised) is accepted, but Parse rejects the resulting frame
// with ErrFrameTooShort.
func (c *Codec) BuildFrame(addr string, control ControlCode, payload []byte) (Frame, error) {
	wire, err := EncodeAddress(addr)
	if err != nil {
		return Frame{}, err
	}

	if err := c.checkControl(control); err != nil {
		return Frame{}, err
	}

	return newFrame(wire, control, append([]byte(nil), payload...))
}

// BuildBroadcast builds a frame for every meter on the bus, such as a time
// synchronization. The wire address is all zero.
//
// As with BuildFrame, a short payload gives a frame that Parse rejects with
// ErrFrameTooShort.
func (c *Codec) BuildBroadcast(control ControlCode, payload []byte) (Frame, error) {
	if err := c.checkControl(control); err != nil {
		return Frame{}, err
	}

	return newFrame(broadcastWire, control, append([]byte(nil), payload...))
}

// BuildControl builds a control command frame for target. The payload is the
// target identifier followed by the command byte, sent with the variant's
// command code.
func (c *Codec) BuildControl(addr string, target ControlTarget, command byte) (Frame, error) {
	wire, err := EncodeAddress(addr)
	if err != nil {
		return Frame{}, err
	}

	id, ok := c.variant.TargetID(target)
	if !ok {
		return Frame{}, buildErr("target", target.String(), ErrInvalidFieldID)
	}

	payload := append(id.Bytes(), command)

	return newFrame(wire, c.variant.commandCode, payload)
}

// BuildSwitch builds a switch open/close/query command.
func (c *Codec) BuildSwitch(addr string, cmd SwitchCommand) (Frame, error) {
	return c.BuildControl(addr, SwitchTarget, byte(cmd))
}

// BuildPowerProtect builds a power-protect enable/disable/query command.
func (c *Codec) BuildPowerProtect(addr string, cmd PowerProtectCommand) (Frame, error) {
	return c.BuildControl(addr, PowerProtectTarget, byte(cmd))
}

func (c *Codec) fieldBytes(id FieldID) ([]byte, error) {
	canon, err := ParseFieldID(string(id), c.variant.idWidth)
	if err != nil {
		return nil, err
	}

	return canon.Bytes(), nil
}

func (c *Codec) checkControl(control ControlCode) error {
	if !c.variant.Supports(control) {
		return buildErr("control", fmt.Sprintf("0x%02X", byte(control)), ErrInvalidControlCode)
	}

	return nil
}
