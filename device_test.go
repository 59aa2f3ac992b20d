package main

import (
	"bytes"
	"errors"
	"testing"
)

type fakeOut struct {
	open    bool
	opens   int
	sent    [][]byte
	sendErr error
}

func (o *fakeOut) Open() error {
	o.open = true
	o.opens++
	return nil
}

func (o *fakeOut) IsOpen() bool   { return o.open }
func (o *fakeOut) String() string { return "fake EWI-USB" }

func (o *fakeOut) Close() error {
	o.open = false
	return nil
}

func (o *fakeOut) Send(data []byte) error {
	if o.sendErr != nil {
		return o.sendErr
	}
	o.sent = append(o.sent, append([]byte(nil), data...))
	return nil
}

func TestEWISendConfig(t *testing.T) {
	out := &fakeOut{}
	ewi := &EWI{out: out}

	tbl := NewTable()
	_ = tbl.SetByName("transpose", 76)
	if err := ewi.SendConfig(tbl); err != nil {
		t.Fatalf("SendConfig: %v", err)
	}

	if out.opens != 1 {
		t.Errorf("expected the closed port to be opened once, got %d", out.opens)
	}
	want := EncodeSysEx(tbl)
	if len(out.sent) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(out.sent))
	}
	for i := range want {
		if !bytes.Equal(out.sent[i], want[i]) {
			t.Errorf("message %d:\n got % X\nwant % X", i, out.sent[i], want[i])
		}
	}
}

func TestEWISendConfigError(t *testing.T) {
	boom := errors.New("port gone")
	ewi := &EWI{out: &fakeOut{open: true, sendErr: boom}}

	if err := ewi.SendConfig(NewTable()); !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestBankIDs(t *testing.T) {
	ids := bankIDs()
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 2 {
		t.Fatalf("unexpected bank ids %v", ids)
	}
}
