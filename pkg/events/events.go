package events

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

type EventType string

const (
	DocumentChanged    EventType = "document.changed"
	DocumentReloaded   EventType = "document.reloaded"
	ScanStarted        EventType = "scan.started"
	ScanProgress       EventType = "scan.progress"
	ScanCompleted      EventType = "scan.completed"
	ScanCancelled      EventType = "scan.cancelled"
	WatchStarted       EventType = "watch.started"
	WatchStopped       EventType = "watch.stopped"
	WatchTriggered     EventType = "watch.triggered"
	ValueUnbound       EventType = "remediate.unbound"
	ValueBound         EventType = "remediate.bound"
	ClientConnected    EventType = "client.connected"
	ClientDisconnected EventType = "client.disconnected"
)

type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
}

type Handler func(event Event)

// WorkerPoolConfig holds configuration for the event bus worker pool
type WorkerPoolConfig struct {
	WorkerCount int // Number of worker goroutines (default: CPU cores)
	BufferSize  int // Channel buffer size (default: 256)
}

// DefaultWorkerPoolConfig returns the default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: runtime.NumCPU(),
		BufferSize:  256,
	}
}

type eventTask struct {
	event   Event
	handler Handler
}

type Bus struct {
	handlers   map[EventType][]Handler
	mu         sync.RWMutex
	workerPool chan eventTask
	stop       chan struct{}
	wg         sync.WaitGroup
	config     WorkerPoolConfig
}

func NewBus() *Bus {
	return NewBusWithConfig(DefaultWorkerPoolConfig())
}

func NewBusWithConfig(config WorkerPoolConfig) *Bus {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.BufferSize < 1 {
		config.BufferSize = 1
	}

	b := &Bus{
		handlers:   make(map[EventType][]Handler),
		workerPool: make(chan eventTask, config.BufferSize),
		stop:       make(chan struct{}),
		config:     config,
	}

	for i := 0; i < config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.worker()
	}

	return b
}

// worker processes events from the worker pool
func (b *Bus) worker() {
	defer b.wg.Done()

	for {
		select {
		case task := <-b.workerPool:
			// Execute handler with panic recovery so one bad
			// subscriber cannot take down the pool.
			func() {
				defer func() {
					if r := recover(); r != nil {
						// Stderr, not stdout: stdout may be carrying
						// the MCP stdio protocol.
						fmt.Fprintf(os.Stderr, "event handler panic: %v\n", r)
					}
				}()
				task.handler(task.event)
			}()
		case <-b.stop:
			return
		}
	}
}

func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *Bus) Publish(event Event) {
	event.Timestamp = time.Now()
	if event.ID == "" {
		event.ID = generateEventID()
	}

	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		task := eventTask{
			event:   event,
			handler: handler,
		}

		// Non-blocking send to the worker pool
		select {
		case b.workerPool <- task:
		default:
			// Pool full - run on a throwaway goroutine so the
			// publisher (usually the scan loop) never blocks.
			go func(h Handler, e Event) {
				defer func() {
					if r := recover(); r != nil {
						fmt.Fprintf(os.Stderr, "event fallback handler panic: %v\n", r)
					}
				}()
				h(e)
			}(handler, event)
		}
	}
}

// Shutdown gracefully shuts down the bus worker pool
func (b *Bus) Shutdown() {
	close(b.stop)
	b.wg.Wait()
}

func generateEventID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
