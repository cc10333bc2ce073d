package plugin

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message is a tagged-variant MIDI message. Each concrete type below
// implements it; callers exhaustively type-switch rather than probing for
// optional fields.
type Message interface {
	messageType() MessageType
}

// MessageType identifies which concrete Message variant a value holds.
type MessageType string

const (
	TypeNoteOn        MessageType = "note_on"
	TypeNoteOff       MessageType = "note_off"
	TypeControlChange MessageType = "control_change"
	TypeProgramChange MessageType = "program_change"
	TypeSysEx         MessageType = "sysex"
	TypeAftertouch    MessageType = "aftertouch"
	TypePolytouch     MessageType = "polytouch"
	TypePitchBend     MessageType = "pitchwheel"
)

// NoteOn is a note-on message.
type NoteOn struct {
	Channel, Note, Velocity uint8
}

func (NoteOn) messageType() MessageType { return TypeNoteOn }

// NoteOff is a note-off message.
type NoteOff struct {
	Channel, Note, Velocity uint8
}

func (NoteOff) messageType() MessageType { return TypeNoteOff }

// ControlChange is a CC message.
type ControlChange struct {
	Channel, Control, Value uint8
}

func (ControlChange) messageType() MessageType { return TypeControlChange }

// ProgramChange is a program change message.
type ProgramChange struct {
	Channel, Program uint8
}

func (ProgramChange) messageType() MessageType { return TypeProgramChange }

// SysEx is a system exclusive message (without the leading/trailing F0/F7 framing bytes).
type SysEx struct {
	Data []byte
}

func (SysEx) messageType() MessageType { return TypeSysEx }

// Aftertouch is a channel (monophonic) aftertouch message.
type Aftertouch struct {
	Channel, Value uint8
}

func (Aftertouch) messageType() MessageType { return TypeAftertouch }

// Polytouch is a polyphonic aftertouch message.
type Polytouch struct {
	Channel, Note, Value uint8
}

func (Polytouch) messageType() MessageType { return TypePolytouch }

// PitchBend is a pitch wheel message, Pitch in [-8192, 8191].
type PitchBend struct {
	Channel uint8
	Pitch   int16
}

func (PitchBend) messageType() MessageType { return TypePitchBend }

// FromGoMidi converts a gomidi/v2 wire message into our tagged-variant
// Message, mirroring the accessor-switch style the teacher's
// StartListening dispatch uses. ok is false for message types we don't model.
func FromGoMidi(msg gomidi.Message) (Message, bool) {
	var ch, key, val, ctrl, prog uint8
	var pitch int16

	switch {
	case msg.GetNoteOn(&ch, &key, &val):
		return NoteOn{Channel: ch, Note: key, Velocity: val}, true
	case msg.GetNoteOff(&ch, &key, &val):
		return NoteOff{Channel: ch, Note: key, Velocity: val}, true
	case msg.GetControlChange(&ch, &ctrl, &val):
		return ControlChange{Channel: ch, Control: ctrl, Value: val}, true
	case msg.GetProgramChange(&ch, &prog):
		return ProgramChange{Channel: ch, Program: prog}, true
	case msg.GetAfterTouch(&ch, &val):
		return Aftertouch{Channel: ch, Value: val}, true
	case msg.GetPolyAfterTouch(&ch, &key, &val):
		return Polytouch{Channel: ch, Note: key, Value: val}, true
	case msg.GetPitchBend(&ch, &pitch):
		return PitchBend{Channel: ch, Pitch: pitch}, true
	}

	if bytes, ok := msg.SysEx(); ok {
		return SysEx{Data: bytes}, true
	}

	return nil, false
}

// ToGoMidi converts a tagged-variant Message back into a gomidi/v2 wire
// message, for sending.
func ToGoMidi(m Message) gomidi.Message {
	switch v := m.(type) {
	case NoteOn:
		return gomidi.NoteOn(v.Channel, v.Note, v.Velocity)
	case NoteOff:
		return gomidi.NoteOff(v.Channel, v.Note)
	case ControlChange:
		return gomidi.ControlChange(v.Channel, v.Control, v.Value)
	case ProgramChange:
		return gomidi.ProgramChange(v.Channel, v.Program)
	case SysEx:
		return gomidi.SysEx(v.Data)
	case Aftertouch:
		return gomidi.AfterTouch(v.Channel, v.Value)
	case Polytouch:
		return gomidi.PolyAfterTouch(v.Channel, v.Note, v.Value)
	case PitchBend:
		return gomidi.Pitchbend(v.Channel, v.Pitch)
	}
	return gomidi.Message{}
}
