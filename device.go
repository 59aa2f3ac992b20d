package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// midiOut is the part of drivers.Out the device needs.
type midiOut interface {
	Open() error
	IsOpen() bool
	Send(data []byte) error
	Close() error
	String() string
}

type EWI struct {
	out midiOut
}

// OpenEWI opens the MIDI output at portIndex. The returned closer
// releases the port and the driver.
func OpenEWI(portIndex int) (*EWI, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	slog.Info("midi: opened output", "port", out.String())
	return &EWI{out: out}, closer, nil
}

// Send transmits a MIDI message to the instrument.
func (e *EWI) Send(msg midi.Message) error {
	if !e.out.IsOpen() {
		if err := e.out.Open(); err != nil {
			return err
		}
	}
	return e.out.Send(msg.Bytes())
}

// SendSysEx transmits one raw frame.
func (e *EWI) SendSysEx(f Frame) error {
	return e.Send(midi.Message(f))
}

// SendConfig writes both banks of t to the instrument. The instrument
// must already be in sysex mode.
func (e *EWI) SendConfig(t *Table) error {
	for _, f := range EncodeSysEx(t) {
		if err := e.SendSysEx(f); err != nil {
			return fmt.Errorf("failed to send bank %d: %w", f[4], err)
		}
	}
	slog.Info("midi: config sent", "port", e.out.String())
	return nil
}

// Listen feeds every sysex arriving on inPort to r until stop is called.
func Listen(inPort drivers.In, r *Receiver, bufSize uint32) (stop func(), err error) {
	stop, err = midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		r.Handle(msg)
	}, midi.UseSysEx(), midi.SysExBufferSize(bufSize), midi.HandleError(func(err error) {
		slog.Warn("midi: listener error", "port", inPort.String(), "err", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", inPort.String(), err)
	}
	return stop, nil
}

// ReceiveConfig waits for the instrument to send both banks and applies
// them through r. The instrument sends its configuration when it enters
// sysex mode.
func ReceiveConfig(ctx context.Context, inPort drivers.In, r *Receiver, bufSize uint32) error {
	r.discardPending()
	stop, err := Listen(inPort, r, bufSize)
	if err != nil {
		return err
	}
	defer stop()

	slog.Info("midi: waiting for config dump", "port", inPort.String())
	if err := r.WaitBanks(ctx, bankIDs()...); err != nil {
		return fmt.Errorf("timed out waiting for config dump: %w", err)
	}
	return nil
}

func bankIDs() []byte {
	ids := make([]byte, len(bankLayout))
	for i, b := range bankLayout {
		ids[i] = b.id
	}
	return ids
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

func findInPort(nameFragment string) (drivers.In, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, fmt.Errorf("no MIDI inputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), lower) {
			return in, nil
		}
	}

	return nil, fmt.Errorf("no MIDI input contains %q", nameFragment)
}

// usbLink pairs the instrument's USB MIDI output and input.
type usbLink struct {
	dev     *EWI
	in      drivers.In
	bufSize uint32
}

func (l *usbLink) SendConfig(t *Table) error {
	return l.dev.SendConfig(t)
}

func (l *usbLink) ReceiveConfig(ctx context.Context, r *Receiver) error {
	return ReceiveConfig(ctx, l.in, r, l.bufSize)
}
