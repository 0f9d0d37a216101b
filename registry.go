package robot_arm

import (
	"context"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// ServoWriter drives a group of servos. *feetech.ServoGroup implements it.
type ServoWriter interface {
	EnableAll(ctx context.Context) error
	SetPositions(ctx context.Context, positions feetech.PositionMap) error
}

// Bus is an open servo bus.
type Bus interface {
	Group(ids ...int) ServoWriter
	Close() error
}

// BusSettings identify and configure a serial servo bus.
type BusSettings struct {
	Port     string
	Baudrate int
	Timeout  time.Duration
}

// BusOpener opens a bus for the given settings.
type BusOpener func(BusSettings) (Bus, error)

type feetechBus struct {
	bus *feetech.Bus
}

func (b *feetechBus) Group(ids ...int) ServoWriter {
	return feetech.NewServoGroupByIDs(b.bus, ids...)
}

func (b *feetechBus) Close() error {
	return b.bus.Close()
}

// OpenFeetechBus opens an STS protocol bus.
func OpenFeetechBus(settings BusSettings) (Bus, error) {
	if settings.Timeout == 0 {
		settings.Timeout = time.Second
	}
	if settings.Baudrate == 0 {
		settings.Baudrate = defaultBaudrate
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     settings.Port,
		BaudRate: settings.Baudrate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  settings.Timeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open servo bus on %s", settings.Port)
	}
	return &feetechBus{bus: bus}, nil
}

type busEntry struct {
	bus      Bus
	settings BusSettings
	refCount int
}

// BusRegistry shares one open bus per port between resources.
type BusRegistry struct {
	open    BusOpener
	logger  logging.Logger
	mu      sync.Mutex
	entries map[string]*busEntry // port path -> entry
}

// NewBusRegistry returns an empty registry. A nil opener uses OpenFeetechBus.
func NewBusRegistry(open BusOpener, logger logging.Logger) *BusRegistry {
	if open == nil {
		open = OpenFeetechBus
	}
	return &BusRegistry{
		open:    open,
		logger:  logger,
		entries: make(map[string]*busEntry),
	}
}

var (
	defaultBusRegistryOnce sync.Once
	defaultBusRegistry     *BusRegistry
)

// DefaultBusRegistry is the registry shared by every resource in the module process.
func DefaultBusRegistry() *BusRegistry {
	defaultBusRegistryOnce.Do(func() {
		defaultBusRegistry = NewBusRegistry(nil, logging.NewLogger("robot-arm-bus"))
	})
	return defaultBusRegistry
}

// Acquire returns the bus for settings.Port, opening it on first use. Every successful
// Acquire must be paired with a Release.
func (r *BusRegistry) Acquire(settings BusSettings) (Bus, error) {
	if settings.Port == "" {
		return nil, errors.New("no port specified")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[settings.Port]; ok {
		if entry.settings != settings {
			return nil, errors.Errorf("conflict: bus on %s already open with %+v (refCount: %d)",
				settings.Port, entry.settings, entry.refCount)
		}
		entry.refCount++
		return entry.bus, nil
	}

	bus, err := r.open(settings)
	if err != nil {
		return nil, err
	}
	r.entries[settings.Port] = &busEntry{bus: bus, settings: settings, refCount: 1}
	r.logger.Infof("opened servo bus on %s at %d baud", settings.Port, settings.Baudrate)
	return bus, nil
}

// Release drops one reference to the bus on port and closes it with the last one.
func (r *BusRegistry) Release(port string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[port]
	if !ok {
		return nil
	}
	entry.refCount--
	if entry.refCount > 0 {
		return nil
	}

	delete(r.entries, port)
	if err := entry.bus.Close(); err != nil {
		r.logger.Warnf("error closing servo bus on %s: %v", port, err)
		return errors.Wrapf(err, "failed to close servo bus on %s", port)
	}
	r.logger.Infof("closed servo bus on %s", port)
	return nil
}

// RefCount reports how many holders the bus on port has.
func (r *BusRegistry) RefCount(port string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[port]; ok {
		return entry.refCount
	}
	return 0
}
