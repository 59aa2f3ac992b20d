package main

import (
	"errors"
	"fmt"
)

const ParamCount = 17 // 6 setup parameters in bank 0, 11 controller parameters in bank 2

var (
	ErrOutOfRange        = errors.New("value out of range")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrNotFound          = errors.New("parameter not found")
	ErrMalformedFrame    = errors.New("malformed sysex frame")
	ErrIO                = errors.New("i/o error")
)

// Parameter is one addressable setting of the instrument.
type Parameter struct {
	Name    string `json:"name"`
	Bank    byte   `json:"bank"`
	Offset  byte   `json:"offset"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Default int    `json:"default"`
	Value   int    `json:"value"`
}

func (p Parameter) check(v int) error {
	if v < p.Min || v > p.Max {
		return fmt.Errorf("%w: %s must be %d-%d, got %d", ErrOutOfRange, p.Name, p.Min, p.Max, v)
	}
	return nil
}

// Entry is one (bank, offset, value) triple of a table snapshot.
type Entry struct {
	Bank   byte
	Offset byte
	Value  byte
}

// Indexes into the table, in address order.
const (
	idxBreathGain = iota
	idxBiteGain
	idxBiteACGain
	idxPitchBendGain
	idxKeyDelay
	idxReserved
	idxMIDIChannel
	idxFingering
	idxTranspose
	idxVelocity
	idxBreathCC1
	idxBreathCC2
	idxReserved2
	idxBiteCC1
	idxBiteCC2
	idxPitchBendUp
	idxPitchBendDown
)

var factoryParams = [ParamCount]Parameter{
	{Name: "breath_gain", Bank: 0, Offset: 0, Min: 0, Max: 127, Default: 64},
	{Name: "bite_gain", Bank: 0, Offset: 1, Min: 0, Max: 127, Default: 64},
	{Name: "bite_ac_gain", Bank: 0, Offset: 2, Min: 0, Max: 127, Default: 64},
	{Name: "pitch_bend_gain", Bank: 0, Offset: 3, Min: 0, Max: 127, Default: 64},
	{Name: "key_delay", Bank: 0, Offset: 4, Min: 0, Max: 15, Default: 8},
	{Name: "reserved", Bank: 0, Offset: 5, Min: 0, Max: 127, Default: 127},
	{Name: "midi_channel", Bank: 2, Offset: 0, Min: 0, Max: 15, Default: 0},
	{Name: "fingering", Bank: 2, Offset: 1, Min: 0, Max: 5, Default: 0},
	{Name: "transpose", Bank: 2, Offset: 2, Min: 34, Max: 93, Default: 64}, // 64 = middle C
	{Name: "velocity", Bank: 2, Offset: 3, Min: 0, Max: 127, Default: 32},  // 32 = fixed
	{Name: "breath_cc1", Bank: 2, Offset: 4, Min: 0, Max: 127, Default: 2},
	{Name: "breath_cc2", Bank: 2, Offset: 5, Min: 0, Max: 127, Default: 0},
	{Name: "reserved2", Bank: 2, Offset: 6, Min: 0, Max: 127, Default: 0},
	{Name: "bite_cc1", Bank: 2, Offset: 7, Min: 0, Max: 127, Default: 127},
	{Name: "bite_cc2", Bank: 2, Offset: 8, Min: 0, Max: 127, Default: 0},
	{Name: "pitch_bend_up", Bank: 2, Offset: 9, Min: 0, Max: 127, Default: 127},
	{Name: "pitch_bend_down", Bank: 2, Offset: 10, Min: 0, Max: 127, Default: 127},
}

// bankLayout describes where each bank's parameters sit in the table.
var bankLayout = []struct {
	id    byte
	first int
	size  int
}{
	{id: 0, first: idxBreathGain, size: 6},
	{id: 2, first: idxMIDIChannel, size: 11},
}

// indexOf maps a (bank, offset) address to a table index.
func indexOf(bank, offset int) (int, error) {
	for _, b := range bankLayout {
		if int(b.id) != bank {
			continue
		}
		if offset < 0 || offset >= b.size {
			return -1, fmt.Errorf("%w: bank %d offset %d", ErrAddressOutOfRange, bank, offset)
		}
		return b.first + offset, nil
	}
	return -1, fmt.Errorf("%w: bank %d", ErrAddressOutOfRange, bank)
}

// Table is the instrument configuration. It is not safe for concurrent
// use; callers that apply frames from a transport must serialize access
// (see Receiver).
type Table struct {
	params [ParamCount]Parameter
}

// NewTable returns a table holding the factory defaults.
func NewTable() *Table {
	t := &Table{}
	t.Reset()
	return t
}

// Reset restores every parameter to its factory default.
func (t *Table) Reset() {
	t.params = factoryParams
	for i := range t.params {
		t.params[i].Value = t.params[i].Default
	}
}

func (t *Table) Count() int {
	return len(t.params)
}

// Name returns the name of the parameter at index.
func (t *Table) Name(index int) (string, error) {
	if index < 0 || index >= len(t.params) {
		return "", fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return t.params[index].Name, nil
}

func (t *Table) Get(index int) (int, error) {
	if index < 0 || index >= len(t.params) {
		return 0, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return t.params[index].Value, nil
}

func (t *Table) GetByName(name string) (int, error) {
	for _, p := range t.params {
		if p.Name == name {
			return p.Value, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (t *Table) GetAt(bank, offset int) (int, error) {
	i, err := indexOf(bank, offset)
	if err != nil {
		return 0, fmt.Errorf("%w: bank %d offset %d", ErrNotFound, bank, offset)
	}
	return t.params[i].Value, nil
}

func (t *Table) Set(index, value int) error {
	if index < 0 || index >= len(t.params) {
		return fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return t.set(index, value)
}

// SetByName sets the named parameter. An unknown name is a no-op and
// returns nil; use Lookup first when the caller needs to know.
func (t *Table) SetByName(name string, value int) error {
	for i, p := range t.params {
		if p.Name == name {
			return t.set(i, value)
		}
	}
	return nil
}

func (t *Table) SetAt(bank, offset, value int) error {
	i, err := indexOf(bank, offset)
	if err != nil {
		return err
	}
	return t.set(i, value)
}

func (t *Table) set(i, value int) error {
	if err := t.params[i].check(value); err != nil {
		return err
	}
	t.params[i].Value = value
	return nil
}

// Lookup returns a copy of the named parameter.
func (t *Table) Lookup(name string) (Parameter, bool) {
	for _, p := range t.params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Params returns a copy of all parameters in address order.
func (t *Table) Params() []Parameter {
	out := make([]Parameter, len(t.params))
	copy(out, t.params[:])
	return out
}

// Snapshot returns the values grouped by bank, ascending offset within
// each bank. This is the order the encoder writes them.
func (t *Table) Snapshot() []Entry {
	out := make([]Entry, 0, len(t.params))
	for _, b := range bankLayout {
		for i := b.first; i < b.first+b.size; i++ {
			p := t.params[i]
			out = append(out, Entry{Bank: p.Bank, Offset: p.Offset, Value: byte(p.Value)})
		}
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := *t
	return &c
}

func (t *Table) BreathGain() int    { return t.params[idxBreathGain].Value }
func (t *Table) BiteGain() int      { return t.params[idxBiteGain].Value }
func (t *Table) BiteACGain() int    { return t.params[idxBiteACGain].Value }
func (t *Table) PitchBendGain() int { return t.params[idxPitchBendGain].Value }
func (t *Table) KeyDelay() int      { return t.params[idxKeyDelay].Value }
func (t *Table) MIDIChannel() int   { return t.params[idxMIDIChannel].Value }
func (t *Table) Fingering() int     { return t.params[idxFingering].Value }
func (t *Table) Transpose() int     { return t.params[idxTranspose].Value }
func (t *Table) Velocity() int      { return t.params[idxVelocity].Value }
func (t *Table) BreathCC1() int     { return t.params[idxBreathCC1].Value }
func (t *Table) BreathCC2() int     { return t.params[idxBreathCC2].Value }
func (t *Table) BiteCC1() int       { return t.params[idxBiteCC1].Value }
func (t *Table) BiteCC2() int       { return t.params[idxBiteCC2].Value }
func (t *Table) PitchBendUp() int   { return t.params[idxPitchBendUp].Value }
func (t *Table) PitchBendDown() int { return t.params[idxPitchBendDown].Value }
