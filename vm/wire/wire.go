// Package wire encodes object inspections and lifecycle events as
// canonical CBOR, so journals and debugging tools get byte-stable output.
package wire

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/chazu/mixin/vm"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalInspection serializes an Inspection to CBOR bytes.
func MarshalInspection(in *vm.Inspection) ([]byte, error) {
	if in == nil {
		return nil, errors.New("wire: marshal nil inspection")
	}
	return cborEncMode.Marshal(in)
}

// UnmarshalInspection deserializes an Inspection from CBOR bytes.
func UnmarshalInspection(data []byte) (*vm.Inspection, error) {
	var in vm.Inspection
	if err := cbor.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("wire: unmarshal inspection: %w", err)
	}
	return &in, nil
}

// MarshalEvent serializes an Event to CBOR bytes.
func MarshalEvent(ev vm.Event) ([]byte, error) {
	return cborEncMode.Marshal(ev)
}

// UnmarshalEvent deserializes an Event from CBOR bytes.
func UnmarshalEvent(data []byte) (vm.Event, error) {
	var ev vm.Event
	if err := cbor.Unmarshal(data, &ev); err != nil {
		return vm.Event{}, fmt.Errorf("wire: unmarshal event: %w", err)
	}
	if ev.Kind.String() == "unknown" {
		return vm.Event{}, fmt.Errorf("wire: unmarshal event: unknown kind %d", ev.Kind)
	}
	return ev, nil
}

// ---------------------------------------------------------------------------
// Event streams
// ---------------------------------------------------------------------------

// EventWriter is a vm.Tracer that writes each event to an io.Writer as a
// CBOR sequence. The first write error is kept and later events are
// dropped.
type EventWriter struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	err error
}

// NewEventWriter returns an EventWriter writing to w.
func NewEventWriter(w io.Writer) *EventWriter {
	return &EventWriter{enc: cborEncMode.NewEncoder(w)}
}

// Trace implements vm.Tracer.
func (ew *EventWriter) Trace(ev vm.Event) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if ew.err != nil {
		return
	}
	ew.err = ew.enc.Encode(ev)
}

// Err returns the first write error, if any.
func (ew *EventWriter) Err() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	return ew.err
}

// ReadEvents decodes a CBOR sequence written by an EventWriter.
func ReadEvents(r io.Reader) ([]vm.Event, error) {
	dec := cbor.NewDecoder(r)
	var events []vm.Event
	for {
		var ev vm.Event
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("wire: read event %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
}
