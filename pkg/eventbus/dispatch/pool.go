package dispatch

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/vnykmshr/gopulse/pkg/common/validation"
)

// Pool is a fixed-size worker pool executor for asynchronous buses. Tasks
// queue up to the configured capacity; Execute blocks when the queue is
// full rather than dropping work.
type Pool struct {
	mu       sync.Mutex
	shutdown bool
	tasks    chan func()
	once     sync.Once
	workerWg sync.WaitGroup
	done     chan struct{}
}

// NewPool creates a pool with the given number of workers and queue capacity.
func NewPool(workers, queueSize int) (*Pool, error) {
	if err := validation.ValidatePositive("dispatch", "workers", workers); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("dispatch", "queueSize", queueSize); err != nil {
		return nil, err
	}

	p := &Pool{
		tasks: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
	p.workerWg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p, nil
}

// Execute queues the task, blocking while the queue is full. After
// Shutdown it falls back to running the task inline so nothing is dropped.
func (p *Pool) Execute(task func()) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		runRecovered(task)
		return
	}
	// The send happens under the lock so Shutdown cannot close the channel
	// out from under an in-flight enqueue. Workers drain without the lock,
	// so a blocked send always makes progress.
	p.tasks <- task
	p.mu.Unlock()
}

// Shutdown initiates a graceful shutdown. Queued tasks still run; the
// returned channel closes once all workers have finished.
func (p *Pool) Shutdown() <-chan struct{} {
	p.once.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		close(p.tasks)
		p.mu.Unlock()

		go func() {
			p.workerWg.Wait()
			close(p.done)
		}()
	})
	return p.done
}

// QueueSize returns the number of tasks currently waiting for a worker.
func (p *Pool) QueueSize() int {
	return len(p.tasks)
}

// run is the main loop for a worker.
func (p *Pool) run() {
	defer p.workerWg.Done()
	for task := range p.tasks {
		runRecovered(task)
	}
}

func runRecovered(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: task panicked",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	task()
}
