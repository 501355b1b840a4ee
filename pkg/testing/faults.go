package testing

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gabrielmiguelok/stepform/pkg/core"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

// Injected errors.
var (
	ErrFaultInjected = errors.New("fault: simulated error")
)

// Fault describes an injectable failure.
type Fault struct {
	Name string
	// Probability of returning Error once active. Zero means always.
	Probability float64
	Error       error
	Latency     time.Duration
	active      bool
}

// FaultInjector switches named faults on and off. Code under test calls
// Check at the point the fault should strike.
type FaultInjector struct {
	faults map[string]*Fault
	rng    *rand.Rand
	mu     sync.Mutex
}

// NewFaultInjector creates an injector with a fixed seed so runs repeat.
func NewFaultInjector(seed uint64) *FaultInjector {
	return &FaultInjector{
		faults: make(map[string]*Fault),
		rng:    rand.New(rand.NewPCG(seed, seed)),
	}
}

// Register adds a fault, inactive.
func (fi *FaultInjector) Register(name string, fault Fault) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fault.Name = name
	if fault.Error == nil {
		fault.Error = ErrFaultInjected
	}
	fi.faults[name] = &fault
}

// Activate turns a fault on.
func (fi *FaultInjector) Activate(name string) {
	fi.set(name, true)
}

// Deactivate turns a fault off.
func (fi *FaultInjector) Deactivate(name string) {
	fi.set(name, false)
}

func (fi *FaultInjector) set(name string, active bool) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if f, ok := fi.faults[name]; ok {
		f.active = active
	}
}

// Check sleeps for the fault's latency and returns its error when it
// fires. Unknown and inactive faults return nil.
func (fi *FaultInjector) Check(name string) error {
	fi.mu.Lock()
	f, ok := fi.faults[name]
	if !ok || !f.active {
		fi.mu.Unlock()
		return nil
	}
	fires := f.Probability == 0 || fi.rng.Float64() < f.Probability
	latency, err := f.Latency, f.Error
	fi.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	if fires {
		return err
	}
	return nil
}

// FaultyTransport wraps a core.Transport and consults a FaultInjector
// under the name "send" before every Send.
type FaultyTransport struct {
	wrapped  core.Transport
	injector *FaultInjector
}

// NewFaultyTransport wraps t.
func NewFaultyTransport(t core.Transport, fi *FaultInjector) *FaultyTransport {
	return &FaultyTransport{wrapped: t, injector: fi}
}

// Send fails with the "send" fault or forwards msg.
func (ft *FaultyTransport) Send(msg *protocol.Message) error {
	if err := ft.injector.Check("send"); err != nil {
		return err
	}
	return ft.wrapped.Send(msg)
}

// Close closes the wrapped transport.
func (ft *FaultyTransport) Close() error {
	return ft.wrapped.Close()
}

// IsConnected reports the wrapped transport's state.
func (ft *FaultyTransport) IsConnected() bool {
	return ft.wrapped.IsConnected()
}
