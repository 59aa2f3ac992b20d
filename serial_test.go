package main

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

// fakePort replays chunks on Read and records writes. Once the chunks
// run out, Read behaves like a serial read timing out.
type fakePort struct {
	mu      sync.Mutex
	chunks  [][]byte
	written bytes.Buffer
	readErr error
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.chunks) == 0 {
		err := p.readErr
		p.mu.Unlock()
		if err != nil {
			return 0, err
		}
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	defer p.mu.Unlock()
	n := copy(b, p.chunks[0])
	p.chunks[0] = p.chunks[0][n:]
	if len(p.chunks[0]) == 0 {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func TestSerialSendConfig(t *testing.T) {
	port := &fakePort{}
	link := &SerialLink{name: "fake", port: port}

	tbl := NewTable()
	_ = tbl.SetByName("bite_cc1", 1)
	if err := link.SendConfig(tbl); err != nil {
		t.Fatalf("SendConfig: %v", err)
	}

	want := slices.Concat(EncodeSysEx(tbl)...)
	if !bytes.Equal(port.written.Bytes(), want) {
		t.Fatalf("written:\n got % X\nwant % X", port.written.Bytes(), want)
	}
}

func TestSerialReceiveConfig(t *testing.T) {
	src := NewTable()
	_ = src.SetByName("breath_cc1", 11)
	_ = src.SetByName("bite_gain", 3)
	stream := append([]byte{0xFE, 0xB0, 0x02, 0x40}, slices.Concat(EncodeSysEx(src)...)...)

	port := &fakePort{chunks: [][]byte{stream[:9], stream[9:21], stream[21:]}}
	link := &SerialLink{name: "fake", port: port}

	dst := NewTable()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := link.ReceiveConfig(ctx, NewReceiver(dst)); err != nil {
		t.Fatalf("ReceiveConfig: %v", err)
	}
	if !slices.Equal(src.Snapshot(), dst.Snapshot()) {
		t.Fatalf("received table differs")
	}
}

func TestSerialReceiveConfigPortError(t *testing.T) {
	boom := errors.New("device unplugged")
	port := &fakePort{readErr: boom}
	link := &SerialLink{name: "fake", port: port}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := link.ReceiveConfig(ctx, NewReceiver(NewTable())); !errors.Is(err, boom) {
		t.Fatalf("expected port error, got %v", err)
	}
}

func TestSerialReceiveConfigTimeout(t *testing.T) {
	link := &SerialLink{name: "fake", port: &fakePort{}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := link.ReceiveConfig(ctx, NewReceiver(NewTable())); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
