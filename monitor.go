package main

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func pitchName(key uint8) string {
	return fmt.Sprintf("%s%d", noteNames[key%12], int(key)/12-1)
}

// describeMessage renders what the instrument played, naming the
// controllers t assigns to breath and bite. ok is false for messages the
// monitor does not report.
func describeMessage(msg midi.Message, t *Table) (string, bool) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return fmt.Sprintf("ch%d note on  %-4s vel %d", ch+1, pitchName(key), vel), true
	case msg.GetNoteEnd(&ch, &key):
		return fmt.Sprintf("ch%d note off %s", ch+1, pitchName(key)), true
	case msg.GetControlChange(&ch, &cc, &val):
		return fmt.Sprintf("ch%d cc%-3d %-6s %d", ch+1, cc, controllerRole(cc, t), val), true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return fmt.Sprintf("ch%d bend %+d", ch+1, rel), true
	}
	return "", false
}

// A controller assignment of 0 means off.
func controllerRole(cc uint8, t *Table) string {
	if cc == 0 {
		return ""
	}
	switch int(cc) {
	case t.BreathCC1(), t.BreathCC2():
		return "breath"
	case t.BiteCC1(), t.BiteCC2():
		return "bite"
	}
	return ""
}

// Monitor logs performance messages from inPort until ctx is done.
func Monitor(ctx context.Context, inPort drivers.In, t *Table) error {
	stop, err := midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		if s, ok := describeMessage(msg, t); ok {
			slog.Info("midi: " + s)
		} else {
			slog.Debug("midi: unhandled message", "msg", msg.String())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", inPort.String(), err)
	}
	defer stop()

	slog.Info("midi: monitoring", "port", inPort.String())
	<-ctx.Done()
	return nil
}
