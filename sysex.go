package main

import (
	"fmt"
	"iter"
)

const (
	SysExStart byte = 0xF0
	SysExEnd   byte = 0xF7

	akaiID      byte = 0x47
	anyDeviceID byte = 0x7F // not checked on decode
	ewiUSBID    byte = 0x6D

	// F0, three id bytes, bank, offset, length.
	frameHeaderSize = 7
)

// Frame is one raw sysex message, F0 through F7 inclusive.
type Frame []byte

// Data returns the frame without its status byte: the id bytes through
// the end marker.
func (f Frame) Data() []byte {
	if len(f) == 0 {
		return nil
	}
	return f[1:]
}

// Update is the content of an accepted frame: values for consecutive
// offsets of one bank, starting at Offset.
type Update struct {
	Bank   byte
	Offset byte
	Values []byte
}

// EncodeSysEx renders the table as two frames, bank 0 then bank 2.
func EncodeSysEx(t *Table) []Frame {
	snap := t.Snapshot()
	frames := make([]Frame, 0, len(bankLayout))

	pos := 0
	for _, b := range bankLayout {
		out := make(Frame, 0, frameHeaderSize+b.size+1)
		out = append(out, SysExStart, akaiID, anyDeviceID, ewiUSBID, b.id, 0x00, byte(b.size))
		for _, e := range snap[pos : pos+b.size] {
			out = append(out, e.Value)
		}
		out = append(out, SysExEnd)
		frames = append(frames, out)
		pos += b.size
	}
	return frames
}

// DecodeFrame validates the frame header and returns its update. Frames
// from other devices and frames shorter than their declared length are
// reported as not ok; they are not errors.
func DecodeFrame(f Frame) (Update, bool) {
	u, err := parseFrame(f)
	if err != nil {
		return Update{}, false
	}
	return u, true
}

func parseFrame(f Frame) (Update, error) {
	// Header plus the end marker at minimum.
	if len(f) < frameHeaderSize+1 {
		return Update{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(f))
	}
	if f[0] != SysExStart || f[len(f)-1] != SysExEnd {
		return Update{}, fmt.Errorf("%w: missing start or end marker", ErrMalformedFrame)
	}
	if f[1] != akaiID || f[3] != ewiUSBID {
		return Update{}, fmt.Errorf("foreign sysex 0x%02X/0x%02X", f[1], f[3])
	}

	n := int(f[6])
	payload := f[frameHeaderSize : len(f)-1]
	if len(payload) < n {
		return Update{}, fmt.Errorf("%w: declared %d payload bytes, have %d", ErrMalformedFrame, n, len(payload))
	}
	return Update{Bank: f[4], Offset: f[5], Values: payload[:n]}, nil
}

// Apply writes an update into the table. Every value is checked before
// any is written, so a rejected update leaves the table unchanged.
func (t *Table) Apply(u Update) error {
	idx := make([]int, len(u.Values))
	for i, v := range u.Values {
		j, err := indexOf(int(u.Bank), int(u.Offset)+i)
		if err != nil {
			return err
		}
		if err := t.params[j].check(int(v)); err != nil {
			return err
		}
		idx[i] = j
	}
	for i, v := range u.Values {
		t.params[idx[i]].Value = int(v)
	}
	return nil
}

// ApplySysEx decodes one frame into the table. It reports whether the
// frame was addressed to this device; ignored frames return false, nil.
func (t *Table) ApplySysEx(f Frame) (bool, error) {
	u, ok := DecodeFrame(f)
	if !ok {
		return false, nil
	}
	if err := t.Apply(u); err != nil {
		return true, fmt.Errorf("bank %d frame: %w", u.Bank, err)
	}
	return true, nil
}

// ApplyAll decodes frames in order and returns how many were accepted.
// It stops at the first rejected frame; frames applied before it stay
// in effect.
func (t *Table) ApplyAll(frames iter.Seq[Frame]) (int, error) {
	accepted := 0
	for f := range frames {
		ok, err := t.ApplySysEx(f)
		if err != nil {
			return accepted, err
		}
		if ok {
			accepted++
		}
	}
	return accepted, nil
}
