package stages

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/oleiade/lane/v2"
	"github.com/pkg/errors"

	"github.com/pescuma/minwatch/lib/consoles"
)

// DefaultTick is the polling period of every stage loop (10 Hz).
const DefaultTick = 100 * time.Millisecond

// Handler is the stage specific part of a Runner. Only Process is required.
type Handler[T any] struct {
	// Process handles one task. Errors and panics are recovered and passed to Fail.
	Process func(task T) error
	// Fail records a failed task, usually as an error result.
	Fail func(task T, err error)
	// Reset clears the stage state. Runs on the loop goroutine, never together with Process.
	Reset func()
	// Tick runs at the start of every loop iteration.
	Tick func()
	// Init runs once on the loop goroutine before the first iteration.
	Init func()
}

type queued[T any] struct {
	epoch uint64
	task  T
}

// Runner is the worker loop shared by all stages: a FIFO queue drained by one
// goroutine at a fixed tick, with cooperative stop and reset.
type Runner[T any] struct {
	name    string
	console consoles.Console
	tick    time.Duration
	handler Handler[T]
	events  *Notifier

	mutex          sync.Mutex
	queue          *lane.Queue[queued[T]]
	epoch          uint64
	resetRequested bool

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRunner[T any](name string, console consoles.Console, tick time.Duration, handler Handler[T]) *Runner[T] {
	if tick <= 0 {
		tick = DefaultTick
	}
	if handler.Process == nil {
		panic("stage " + name + " has no Process function")
	}

	return &Runner[T]{
		name:    name,
		console: console,
		tick:    tick,
		handler: handler,
		events:  NewNotifier(),
		queue:   lane.NewQueue[queued[T]](),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *Runner[T]) Name() string {
	return r.name
}

func (r *Runner[T]) Events() *Notifier {
	return r.events
}

func (r *Runner[T]) Subscribe(l Listener) func() {
	return r.events.Subscribe(l)
}

// Emit sends an event from this stage to its listeners. A panicking listener is logged and ignored.
func (r *Runner[T]) Emit(e Event) {
	e.Stage = r.name

	defer func() {
		if p := recover(); p != nil {
			r.console.Printf("Listener for %v panicked: %v\n", e.Kind, p)
		}
	}()

	r.events.Emit(e)
}

func (r *Runner[T]) Enqueue(task T) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.queue.Enqueue(queued[T]{epoch: r.epoch, task: task})
}

// Pending returns the number of queued tasks.
func (r *Runner[T]) Pending() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return int(r.queue.Size())
}

// Start launches the loop goroutine. Calling it again does nothing.
func (r *Runner[T]) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}

	go r.run()
}

// RequestStop asks the loop to exit after the current iteration. Calling it again does nothing.
func (r *Runner[T]) RequestStop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// RequestReset asks the loop to drop every task queued so far and clear the stage state.
func (r *Runner[T]) RequestReset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.epoch++
	r.resetRequested = true
}

// Wait blocks until the loop exited and Stopped was emitted.
func (r *Runner[T]) Wait() {
	if !r.started.Load() {
		return
	}

	<-r.done
}

func (r *Runner[T]) Stop() {
	r.RequestStop()
	r.Wait()
}

func (r *Runner[T]) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *Runner[T]) run() {
	defer close(r.done)
	defer r.Emit(Event{Kind: Stopped})

	if r.handler.Init != nil {
		err := safely(func() error {
			r.handler.Init()
			return nil
		})
		if err != nil {
			r.console.Printf("Initialization failed: %v\n", err)
		}
	}

	for !r.stopping() {
		r.iterate()

		select {
		case <-r.stop:
		case <-time.After(r.tick):
		}
	}
}

func (r *Runner[T]) iterate() {
	if r.handler.Tick != nil {
		err := safely(func() error {
			r.handler.Tick()
			return nil
		})
		if err != nil {
			r.console.Printf("%v\n", err)
		}
	}

	if r.takeReset() {
		if r.handler.Reset != nil {
			err := safely(func() error {
				r.handler.Reset()
				return nil
			})
			if err != nil {
				r.console.Printf("Reset failed: %v\n", err)
			}
		}

		r.Emit(Event{Kind: Updated})
		r.Emit(Event{Kind: Resetted})
		return
	}

	for !r.stopping() {
		item, ok := r.next()
		if !ok {
			break
		}

		r.process(item.task)
	}
}

// takeReset clears the reset flag and drops the tasks queued before the reset request.
func (r *Runner[T]) takeReset() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.resetRequested {
		return false
	}

	r.resetRequested = false

	var kept []queued[T]
	for {
		item, ok := r.queue.Dequeue()
		if !ok {
			break
		}
		if item.epoch == r.epoch {
			kept = append(kept, item)
		}
	}
	for _, item := range kept {
		r.queue.Enqueue(item)
	}

	return true
}

func (r *Runner[T]) next() (queued[T], bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.resetRequested {
		var zero queued[T]
		return zero, false
	}

	return r.queue.Dequeue()
}

func (r *Runner[T]) process(task T) {
	err := safely(func() error {
		return r.handler.Process(task)
	})
	if err != nil {
		r.console.Printf("Task failed: %v\n", err)

		if r.handler.Fail != nil {
			ferr := safely(func() error {
				r.handler.Fail(task, err)
				return nil
			})
			if ferr != nil {
				r.console.Printf("Could not record failure: %v\n", ferr)
			}
		}
	}

	r.Emit(Event{Kind: Updated})
}

func safely(f func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()

	return f()
}
