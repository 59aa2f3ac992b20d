package main

import "iter"

// maxFrameSize bounds a frame buffered by FrameSplitter. The largest
// frame this device sends is 18 bytes.
const maxFrameSize = 1024

// Scan yields every F0..F7 span in data. A start marker seen while a
// frame is already open restarts the capture there; bytes outside a span
// are dropped. Yielded frames alias data.
func Scan(data []byte) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		start := -1
		for i, b := range data {
			switch {
			case b == SysExEnd && start >= 0:
				if !yield(Frame(data[start : i+1 : i+1])) {
					return
				}
				start = -1
			case b == SysExStart:
				start = i
			}
		}
	}
}

// FrameSplitter is the incremental form of Scan for byte streams that
// arrive in chunks. Realtime bytes (0xF8-0xFF) may be interleaved with a
// sysex on a live link and are skipped while a frame is open.
type FrameSplitter struct {
	buf  []byte
	open bool
}

// Write consumes p and calls emit for each frame it completes. Emitted
// frames are copies and may be retained.
func (s *FrameSplitter) Write(p []byte, emit func(Frame)) {
	for _, b := range p {
		switch {
		case b == SysExStart:
			s.buf = append(s.buf[:0], b)
			s.open = true
		case !s.open:
		case b == SysExEnd:
			s.buf = append(s.buf, b)
			f := make(Frame, len(s.buf))
			copy(f, s.buf)
			s.buf = s.buf[:0]
			s.open = false
			emit(f)
		case b >= 0xF8:
		case len(s.buf) >= maxFrameSize:
			s.buf = s.buf[:0]
			s.open = false
		default:
			s.buf = append(s.buf, b)
		}
	}
}

// Pending reports whether a frame is open and waiting for its end marker.
func (s *FrameSplitter) Pending() bool {
	return s.open
}
