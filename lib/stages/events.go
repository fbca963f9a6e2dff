package stages

import (
	"sync"

	"github.com/pescuma/minwatch/lib/model"
)

type EventKind int

const (
	Changed EventKind = iota
	Resetted
	Stopped
	Produced
	Errored
	Updated
	TransformersReady
	RepoAvailability
	FileLoaded
	HistoryExported
	Committed
)

func (k EventKind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Resetted:
		return "resetted"
	case Stopped:
		return "stopped"
	case Produced:
		return "produced"
	case Errored:
		return "errored"
	case Updated:
		return "updated"
	case TransformersReady:
		return "transformers-ready"
	case RepoAvailability:
		return "repo-availability"
	case FileLoaded:
		return "file-loaded"
	case HistoryExported:
		return "history-exported"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Event is a notification emitted by a stage. Only the fields relevant to the Kind are filled.
type Event struct {
	Kind        EventKind
	Stage       string
	Fingerprint model.Fingerprint
	Text        string
	Error       string
	Path        string
	Available   bool
}

type Listener func(Event)

// Notifier delivers events to the registered listeners, in registration order,
// on the goroutine that emits them.
type Notifier struct {
	mutex     sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

func NewNotifier() *Notifier {
	return &Notifier{
		listeners: map[int]Listener{},
	}
}

// Subscribe registers a listener and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (n *Notifier) Subscribe(l Listener) func() {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	n.order = append(n.order, id)

	return func() {
		n.mutex.Lock()
		defer n.mutex.Unlock()

		if _, ok := n.listeners[id]; !ok {
			return
		}

		delete(n.listeners, id)
		for i, o := range n.order {
			if o == id {
				n.order = append(n.order[:i], n.order[i+1:]...)
				break
			}
		}
	}
}

func (n *Notifier) Emit(e Event) {
	n.mutex.RLock()
	ls := make([]Listener, 0, len(n.order))
	for _, id := range n.order {
		ls = append(ls, n.listeners[id])
	}
	n.mutex.RUnlock()

	for _, l := range ls {
		l(e)
	}
}
