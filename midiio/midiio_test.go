package midiio

import (
	"context"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

func TestProcessPendingDrainsQueue(t *testing.T) {
	var received []midi.Message
	iface := New(func(m midi.Message) { received = append(received, m) })

	iface.onRawMessage(midi.NoteOn(0, 60, 100), 0)
	iface.onRawMessage(midi.NoteOn(0, 61, 100), 0)

	count := iface.ProcessPending()
	if count != 2 || len(received) != 2 {
		t.Fatalf("expected 2 processed messages, got %d/%d", count, len(received))
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	iface := New(func(m midi.Message) {})
	for i := 0; i < queueCapacity+5; i++ {
		iface.onRawMessage(midi.NoteOn(0, 60, 100), 0)
	}
	stats := iface.Stats()
	if stats.Dropped == 0 {
		t.Fatalf("expected dropped messages once queue is full")
	}
}

func TestReceiveMessageTimesOut(t *testing.T) {
	iface := New(func(m midi.Message) {})
	_, ok := iface.ReceiveMessage(context.Background(), 10*time.Millisecond)
	if ok {
		t.Fatalf("expected timeout with no queued message")
	}
}

func TestReceiveMessageReturnsQueued(t *testing.T) {
	iface := New(func(m midi.Message) {})
	want := midi.NoteOn(0, 64, 127)
	iface.onRawMessage(want, 0)

	got, ok := iface.ReceiveMessage(context.Background(), time.Second)
	if !ok {
		t.Fatalf("expected a message")
	}
	if got.String() != want.String() {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSendWithoutConnectionFails(t *testing.T) {
	iface := New(func(m midi.Message) {})
	if iface.Send(midi.NoteOn(0, 60, 100)) {
		t.Fatalf("expected send to fail without an output port")
	}
}

func TestConnectRequiresAtLeastOnePort(t *testing.T) {
	iface := New(func(m midi.Message) {})
	if err := iface.Connect("", ""); err == nil {
		t.Fatalf("expected error when no ports specified")
	}
}
