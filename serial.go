package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// DIN MIDI runs at a fixed 31250 baud.
const midiBaud = 31250

const serialPollInterval = 100 * time.Millisecond

type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialLink carries sysex over a raw serial line, such as a USB-serial
// adapter wired to the instrument's MIDI DIN ports.
type SerialLink struct {
	name string
	port serialPort
}

// OpenSerial opens the named serial device. A baud of 0 selects the MIDI rate.
func OpenSerial(name string, baud int) (*SerialLink, error) {
	if baud == 0 {
		baud = midiBaud
	}
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	slog.Info("serial: port opened", "device", name, "baud", baud)
	return &SerialLink{name: name, port: p}, nil
}

// SendConfig writes both banks of t to the line.
func (s *SerialLink) SendConfig(t *Table) error {
	for _, f := range EncodeSysEx(t) {
		n, err := s.port.Write(f)
		if err != nil {
			return fmt.Errorf("serial: write bank %d: %w", f[4], err)
		}
		slog.Debug("serial: frame sent", "bank", f[4], "bytes", n)
	}
	return nil
}

// ReadFrames reads the line until ctx is done or the port fails, calling
// fn with each complete frame.
func (s *SerialLink) ReadFrames(ctx context.Context, fn func(Frame)) error {
	if err := s.port.SetReadTimeout(serialPollInterval); err != nil {
		return fmt.Errorf("serial: set read timeout: %w", err)
	}

	var splitter FrameSplitter
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.port.Read(buf)
		if n > 0 {
			splitter.Write(buf[:n], fn)
		}
		if err != nil {
			return fmt.Errorf("serial: read %s: %w", s.name, err)
		}
	}
}

// ReceiveConfig reads the line through r until both banks have arrived.
func (s *SerialLink) ReceiveConfig(ctx context.Context, r *Receiver) error {
	r.discardPending()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- s.ReadFrames(ctx, func(f Frame) { r.Handle(f) })
	}()
	waitc := make(chan error, 1)
	go func() {
		waitc <- r.WaitBanks(ctx, bankIDs()...)
	}()

	select {
	case err := <-waitc:
		cancel()
		<-errc
		if err != nil {
			return fmt.Errorf("timed out waiting for config dump: %w", err)
		}
		return nil
	case err := <-errc:
		cancel()
		<-waitc
		return err
	}
}

func (s *SerialLink) Close() error {
	slog.Info("serial: closing port", "device", s.name)
	return s.port.Close()
}
