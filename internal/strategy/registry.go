package strategy

import (
	"fmt"
	"sync"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/lineseries"
)

// Factory constructs a fresh strategy instance bound to a broker/data feed.
type Factory func(b BrokerBinder) Strategy

// BrokerBinder is the constructor dependency a Factory needs to build a
// concrete strategy; kept as an interface (rather than passing *Binder
// directly) so tests can supply a fake without building a full
// broker.Broker/lineseries.DataSeries pair.
type BrokerBinder interface {
	DataID() string
	Broker() *broker.Broker
	Data() *lineseries.DataSeries
}

// Binder is the concrete BrokerBinder the engine wires up per feed.
type Binder struct {
	dataID string
	br     *broker.Broker
	data   *lineseries.DataSeries
}

func NewBinder(dataID string, br *broker.Broker, data *lineseries.DataSeries) *Binder {
	return &Binder{dataID: dataID, br: br, data: data}
}

func (b *Binder) DataID() string               { return b.dataID }
func (b *Binder) Broker() *broker.Broker       { return b.br }
func (b *Binder) Data() *lineseries.DataSeries { return b.data }

// Registry maps strategy IDs to metadata and factories, using an
// RWMutex-guarded map-of-strategies pattern generalized from holding
// constructed instances to holding constructors (the engine
// instantiates one strategy instance per backtest run).
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	metadata  map[string]Metadata
}

// Metadata describes a registered strategy for discovery/reporting.
type Metadata struct {
	ID          string
	Name        string
	Description string
	Timeframes  []string
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		metadata:  make(map[string]Metadata),
	}
}

// Register adds a strategy factory under meta.ID.
func (r *Registry) Register(meta Metadata, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if factory == nil {
		return fmt.Errorf("cannot register nil strategy factory")
	}
	if meta.ID == "" {
		return fmt.Errorf("strategy ID cannot be empty")
	}
	if _, exists := r.factories[meta.ID]; exists {
		return fmt.Errorf("strategy %s already registered", meta.ID)
	}

	r.factories[meta.ID] = factory
	r.metadata[meta.ID] = meta
	return nil
}

// New constructs the strategy registered under id.
func (r *Registry) New(id string, br BrokerBinder) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[id]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("strategy %s not found", id)
	}
	return factory(br), nil
}

// List returns every registered strategy ID.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) GetMetadata(id string) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, exists := r.metadata[id]
	if !exists {
		return Metadata{}, fmt.Errorf("metadata for strategy %s not found", id)
	}
	return meta, nil
}
