package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LoadSysExFile applies every frame found in a .syx file to t and
// returns the number of frames accepted.
func LoadSysExFile(path string, t *Table) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a sysex file", ErrIO, path)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	n, err := t.ApplyAll(Scan(data))
	slog.Debug("syx: file loaded", "path", path, "bytes", len(data), "frames", n)
	return n, err
}

// SaveSysExFile writes the table's frames back to back to path.
func SaveSysExFile(path string, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", ErrIO, path, cerr)
		}
	}()

	if err := WriteSysEx(f, t); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	slog.Debug("syx: file saved", "path", path)
	return nil
}

// WriteSysEx writes the encoded table to w with no separators.
func WriteSysEx(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	for _, frame := range EncodeSysEx(t) {
		if _, err := bw.Write(frame); err != nil {
			return err
		}
	}
	return bw.Flush()
}
