package main

import (
	"context"
	"log/slog"
	"sync"
)

// Receiver applies inbound sysex to a shared table. It serializes all
// access to the table, so it can be fed from a MIDI listener goroutine
// while other goroutines read or edit through View and Update.
type Receiver struct {
	mu        sync.Mutex
	table     *Table
	paused    bool
	processed int
	rejected  int
	banks     chan byte
}

func NewReceiver(t *Table) *Receiver {
	return &Receiver{
		table: t,
		banks: make(chan byte, 16),
	}
}

// Handle applies one message. Foreign or truncated frames are dropped;
// frames with bad values are logged and counted, leaving the table as it was.
func (r *Receiver) Handle(msg []byte) {
	if len(msg) == 0 || msg[0] != SysExStart {
		return
	}

	r.mu.Lock()
	if r.paused {
		r.mu.Unlock()
		return
	}
	r.processed++

	u, ok := DecodeFrame(Frame(msg))
	if !ok {
		r.mu.Unlock()
		slog.Debug("midi: ignoring sysex", "bytes", len(msg))
		return
	}
	if err := r.table.Apply(u); err != nil {
		r.rejected++
		r.mu.Unlock()
		slog.Warn("midi: rejected config frame", "bank", u.Bank, "err", err)
		return
	}
	r.mu.Unlock()

	slog.Debug("midi: config frame applied", "bank", u.Bank, "values", len(u.Values))
	select {
	case r.banks <- u.Bank:
	default:
	}
}

// Pause stops applying messages without closing the underlying port.
func (r *Receiver) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

func (r *Receiver) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
}

// Processed returns the number of sysex messages seen while not paused.
func (r *Receiver) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}

// Rejected returns the number of frames refused for bad values or addresses.
func (r *Receiver) Rejected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejected
}

// View runs fn with the table locked. fn must not retain t.
func (r *Receiver) View(fn func(t *Table)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.table)
}

// Update runs fn with the table locked and returns its error.
func (r *Receiver) Update(fn func(t *Table) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.table)
}

// discardPending drops bank notifications left from earlier traffic so
// a following WaitBanks only sees new frames.
func (r *Receiver) discardPending() {
	for {
		select {
		case <-r.banks:
		default:
			return
		}
	}
}

// WaitBanks blocks until a frame for each of the given banks has been
// applied, or ctx is done.
func (r *Receiver) WaitBanks(ctx context.Context, banks ...byte) error {
	want := make(map[byte]bool, len(banks))
	for _, b := range banks {
		want[b] = true
	}
	for len(want) > 0 {
		select {
		case b := <-r.banks:
			delete(want, b)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
