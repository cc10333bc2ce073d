// Package midiio provides the concurrent MIDI transport layer: a
// background listener goroutine that queues inbound messages onto a
// bounded channel, a synchronous receive path for initialization
// handshakes, and a lock-guarded send path — built on
// gitlab.com/gomidi/midi/v2.
package midiio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/padgrid/padgrid/internal/logx"
)

var log = logx.Get("midiio")

const queueCapacity = 1000

// PortError wraps a failure to open, close, or write to a MIDI port.
type PortError struct {
	Op  string
	Err error
}

func (e *PortError) Error() string { return fmt.Sprintf("midiio: %s: %v", e.Op, e.Err) }
func (e *PortError) Unwrap() error { return e.Err }

// Stats reports cumulative I/O counters.
type Stats struct {
	Processed uint64
	Dropped   uint64
	Queued    int
}

// Interface is a thread-safe MIDI input/output connection: exactly one
// goroutine reads from the hardware and feeds a bounded queue; exactly one
// application goroutine is expected to drain it via ProcessPending or
// ReceiveMessage.
type Interface struct {
	onMessage func(midi.Message)

	portMu       sync.Mutex
	inPort       drivers.In
	outPort      drivers.Out
	inPortName   string
	outPortName  string
	stopListener func()
	sendFn       func(midi.Message) error

	queue chan midi.Message

	processed atomic.Uint64
	dropped   atomic.Uint64
}

// New constructs an Interface. onMessage is invoked from ProcessPending for
// every message drained from the queue (never from the background
// listener goroutine itself).
func New(onMessage func(midi.Message)) *Interface {
	return &Interface{
		onMessage: onMessage,
		queue:     make(chan midi.Message, queueCapacity),
	}
}

// IsConnected reports whether either port is open.
func (i *Interface) IsConnected() bool {
	i.portMu.Lock()
	defer i.portMu.Unlock()
	return i.inPort != nil || i.outPort != nil
}

// InputPortName returns the connected input port name, or "".
func (i *Interface) InputPortName() string {
	i.portMu.Lock()
	defer i.portMu.Unlock()
	return i.inPortName
}

// OutputPortName returns the connected output port name, or "".
func (i *Interface) OutputPortName() string {
	i.portMu.Lock()
	defer i.portMu.Unlock()
	return i.outPortName
}

// Connect opens the named input and/or output ports and, if an input port
// was opened, starts the background listener goroutine. At least one port
// name must be non-empty.
func (i *Interface) Connect(inputPortName, outputPortName string) error {
	if inputPortName == "" && outputPortName == "" {
		return &PortError{Op: "connect", Err: fmt.Errorf("at least one port must be specified")}
	}

	i.portMu.Lock()
	defer i.portMu.Unlock()

	if inputPortName != "" {
		in, err := findInPort(inputPortName)
		if err != nil {
			return &PortError{Op: "connect input", Err: err}
		}
		i.inPort = in
		i.inPortName = inputPortName
		log.Info().Str("port", inputPortName).Msg("opened MIDI input port")
	}

	if outputPortName != "" {
		out, err := findOutPort(outputPortName)
		if err != nil {
			i.closeInputLocked()
			return &PortError{Op: "connect output", Err: err}
		}
		send, err := midi.SendTo(out)
		if err != nil {
			i.closeInputLocked()
			return &PortError{Op: "connect output", Err: err}
		}
		i.outPort = out
		i.outPortName = outputPortName
		i.sendFn = send
		log.Info().Str("port", outputPortName).Msg("opened MIDI output port")
	}

	if i.inPort != nil {
		stop, err := midi.ListenTo(i.inPort, i.onRawMessage)
		if err != nil {
			i.closeInputLocked()
			return &PortError{Op: "listen", Err: err}
		}
		i.stopListener = stop
		log.Debug().Msg("started MIDI input listener")
	}

	return nil
}

// onRawMessage is invoked by gomidi's listener goroutine for every inbound
// message. It never calls onMessage directly: it only enqueues, so the
// listener goroutine can never be blocked by application-level work.
func (i *Interface) onRawMessage(msg midi.Message, _ int32) {
	select {
	case i.queue <- msg:
	default:
		n := i.dropped.Add(1)
		if n%100 == 0 {
			log.Warn().Uint64("dropped", n).Msg("dropped MIDI messages, queue full")
		}
	}
}

func (i *Interface) closeInputLocked() {
	if i.stopListener != nil {
		i.stopListener()
		i.stopListener = nil
	}
	i.inPort = nil
	i.inPortName = ""
}

// Disconnect stops the listener, closes both ports, and drains any
// messages still queued.
func (i *Interface) Disconnect() {
	i.portMu.Lock()
	if i.stopListener != nil {
		log.Debug().Msg("stopping MIDI input listener")
		stop := i.stopListener
		done := make(chan struct{})
		go func() { stop(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			log.Warn().Msg("MIDI input listener did not stop within 2s")
		}
		i.stopListener = nil
	}
	if i.inPort != nil {
		i.inPort.Close()
	}
	if i.outPort != nil {
		i.outPort.Close()
	}
	i.inPort = nil
	i.inPortName = ""
	i.outPort = nil
	i.outPortName = ""
	i.sendFn = nil
	i.portMu.Unlock()

	remaining := i.ProcessPending()
	if remaining > 0 {
		log.Debug().Int("count", remaining).Msg("processed remaining messages on shutdown")
	}
	log.Debug().Uint64("processed", i.processed.Load()).Uint64("dropped", i.dropped.Load()).Msg("MIDI interface disconnected")
}

// ProcessPending drains every currently queued message through onMessage.
// Call this from the single application goroutine.
func (i *Interface) ProcessPending() int {
	count := 0
	for {
		select {
		case msg := <-i.queue:
			i.onMessage(msg)
			i.processed.Add(1)
			count++
		default:
			return count
		}
	}
}

// ReceiveMessage blocks up to timeout for the next queued message, bypassing
// onMessage. Used only during initialization handshakes, before the normal
// application-thread dispatch loop is running.
func (i *Interface) ReceiveMessage(ctx context.Context, timeout time.Duration) (midi.Message, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case msg := <-i.queue:
		return msg, true
	case <-ctx.Done():
		return midi.Message{}, false
	}
}

// Send writes msg to the output port. Returns false (never an error) when
// nothing is connected or the underlying write fails, matching the
// best-effort send semantics feedback paths rely on.
func (i *Interface) Send(msg midi.Message) bool {
	i.portMu.Lock()
	defer i.portMu.Unlock()

	if i.sendFn == nil {
		log.Warn().Msg("cannot send message: no output port connected")
		return false
	}
	if err := i.sendFn(msg); err != nil {
		log.Error().Err(err).Msg("error sending MIDI message")
		return false
	}
	return true
}

// Stats reports cumulative I/O counters.
func (i *Interface) Stats() Stats {
	return Stats{
		Processed: i.processed.Load(),
		Dropped:   i.dropped.Load(),
		Queued:    len(i.queue),
	}
}

// ListInputPorts lists available MIDI input port names.
func ListInputPorts() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// ListOutputPorts lists available MIDI output port names.
func ListOutputPorts() []string {
	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

// FindPorts returns input and output port names containing pattern
// (case-insensitive).
func FindPorts(pattern string) (inputs, outputs []string) {
	lower := strings.ToLower(pattern)
	for _, name := range ListInputPorts() {
		if strings.Contains(strings.ToLower(name), lower) {
			inputs = append(inputs, name)
		}
	}
	for _, name := range ListOutputPorts() {
		if strings.Contains(strings.ToLower(name), lower) {
			outputs = append(outputs, name)
		}
	}
	return inputs, outputs
}

func findInPort(name string) (drivers.In, error) {
	for _, in := range midi.GetInPorts() {
		if in.String() == name {
			return in, nil
		}
	}
	return nil, fmt.Errorf("input port not found: %s", name)
}

func findOutPort(name string) (drivers.Out, error) {
	for _, out := range midi.GetOutPorts() {
		if out.String() == name {
			return out, nil
		}
	}
	return nil, fmt.Errorf("output port not found: %s", name)
}
