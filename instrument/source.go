package instrument

import (
	"github.com/google/uuid"
)

// EventCounters is the event name carried by counter report events.
const EventCounters = "EventCounters"

// IntervalOption is the enable option that sets a source's reporting
// interval in seconds. Sources publish nothing until it is supplied.
const IntervalOption = "EventCounterIntervalSec"

// SourceID is the stable identity of a source. Two sources may share a
// name; they never share an ID.
type SourceID uuid.UUID

// NewSourceID returns a random source identity.
func NewSourceID() SourceID {
	return SourceID(uuid.New())
}

// String returns the canonical UUID form of the identity.
func (id SourceID) String() string {
	return uuid.UUID(id).String()
}

// Source is a named emitter of instrumentation events.
//
// Contract:
// - Concurrency: Name and ID must be safe for concurrent use and must not change.
type Source interface {
	Name() string
	ID() SourceID
}

// Command is sent to a Controllable source when listeners enable or
// disable it.
type Command struct {
	// Enable is true when at least one listener has events enabled.
	Enable bool

	// Options are the options passed with the most recent enable call.
	Options map[string]string
}

// Controllable is a Source that reacts to enable/disable commands, for
// example by starting or stopping a reporting timer.
type Controllable interface {
	Source

	// OnCommand is called outside hub locks and may publish events
	// synchronously.
	OnCommand(cmd Command)
}

// Event is one instrumentation event as written by a source.
type Event struct {
	// Source is the emitting source.
	Source Source

	// Name is the event kind, e.g. EventCounters.
	Name string

	// Payload holds the event arguments in order.
	Payload []any
}

// Listener receives source discovery and event notifications from a Hub.
//
// Contract:
//   - Concurrency: both methods may be called concurrently from publisher
//     goroutines. Delivery for a single source is serialized by that source.
//   - Both methods must return quickly and must not block on I/O.
type Listener interface {
	// OnSourceCreated is called once for every source known to the hub
	// when the listener is added, and once for each source registered later.
	OnSourceCreated(src Source)

	// OnEventWritten is called for events of sources the listener enabled.
	OnEventWritten(ev Event)
}

// BasicSource is a Source with a fixed name and a random identity. It is
// the building block for sources that only publish through Hub.Write.
type BasicSource struct {
	name string
	id   SourceID
}

// NewBasicSource creates a source with the given name and a fresh ID.
func NewBasicSource(name string) *BasicSource {
	return &BasicSource{name: name, id: NewSourceID()}
}

// Name returns the source name.
func (s *BasicSource) Name() string { return s.name }

// ID returns the source identity.
func (s *BasicSource) ID() SourceID { return s.id }

var _ Source = (*BasicSource)(nil)
