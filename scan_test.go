package main

import (
	"bytes"
	"slices"
	"testing"
)

func collect(data []byte) []Frame {
	return slices.Collect(Scan(data))
}

func TestScanFramesBetweenGarbage(t *testing.T) {
	data := []byte{0x01, 0x02, 0xF0, 0x11, 0xF7, 0x7F, 0xF7, 0xF0, 0x22, 0x33, 0xF7, 0x00}

	frames := collect(data)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: % X", len(frames), frames)
	}
	if !bytes.Equal(frames[0], []byte{0xF0, 0x11, 0xF7}) {
		t.Errorf("frame 0: % X", frames[0])
	}
	if !bytes.Equal(frames[1], []byte{0xF0, 0x22, 0x33, 0xF7}) {
		t.Errorf("frame 1: % X", frames[1])
	}
}

func TestScanRestartsOnSecondStart(t *testing.T) {
	data := []byte{0xF0, 0x47, 0x7F, 0xF0, 0x01, 0x02, 0xF7}

	frames := collect(data)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0xF0, 0x01, 0x02, 0xF7}) {
		t.Fatalf("unexpected frame % X", frames[0])
	}
}

func TestScanUnterminated(t *testing.T) {
	if frames := collect([]byte{0x00, 0xF0, 0x01, 0x02}); len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
	if frames := collect(nil); len(frames) != 0 {
		t.Fatalf("expected no frames from empty input")
	}
}

func TestScanIsRestartable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSysEx(&buf, NewTable()); err != nil {
		t.Fatal(err)
	}
	seq := Scan(buf.Bytes())

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 frames on each pass, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Fatalf("pass mismatch at frame %d", i)
		}
	}
}

func TestScanEarlyStop(t *testing.T) {
	data := []byte{0xF0, 0xF7, 0xF0, 0xF7, 0xF0, 0xF7}
	n := 0
	for range Scan(data) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2 frames, got %d", n)
	}
}

func TestFrameSplitterAcrossChunks(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSysEx(&buf, NewTable()); err != nil {
		t.Fatal(err)
	}
	stream := append([]byte{0x90, 0x3C, 0x40}, buf.Bytes()...)

	var got []Frame
	var s FrameSplitter
	for _, chunk := range [][]byte{stream[:5], stream[5:12], stream[12:20], stream[20:]} {
		s.Write(chunk, func(f Frame) { got = append(got, f) })
	}

	want := EncodeSysEx(NewTable())
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("frame %d:\n got % X\nwant % X", i, got[i], want[i])
		}
	}
	if s.Pending() {
		t.Errorf("splitter should not have an open frame")
	}
}

func TestFrameSplitterSkipsRealtime(t *testing.T) {
	var got []Frame
	var s FrameSplitter
	s.Write([]byte{0xF0, 0x47, 0xF8, 0x7F, 0xFE, 0xF7}, func(f Frame) { got = append(got, f) })

	if len(got) != 1 || !bytes.Equal(got[0], []byte{0xF0, 0x47, 0x7F, 0xF7}) {
		t.Fatalf("unexpected frames % X", got)
	}
}

func TestFrameSplitterDropsOversized(t *testing.T) {
	var got []Frame
	var s FrameSplitter
	s.Write([]byte{0xF0}, func(f Frame) { got = append(got, f) })
	s.Write(make([]byte, maxFrameSize+10), func(f Frame) { got = append(got, f) })
	s.Write([]byte{0xF7}, func(f Frame) { got = append(got, f) })

	if len(got) != 0 {
		t.Fatalf("oversized frame should be dropped, got %d frames", len(got))
	}
	if s.Pending() {
		t.Fatalf("splitter should have closed the oversized frame")
	}
}
