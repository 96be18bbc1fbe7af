// Package strategy defines the TradingStrategy interface the simulation
// driver ticks once per day, a Registry for wiring strategies by name, and
// the built-in progressive and compound strategies.
package strategy

import "sort"

// TradingStrategy places order requests with the broker based on market
// data and account state. PrepareOrdersForNextTradingDay is invoked exactly
// once per simulated day, after the broker has drained the previous day's
// orders and before the new closing prices are registered.
type TradingStrategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// PrepareOrdersForNextTradingDay evaluates the strategy and queues any
	// resulting order requests with the broker.
	PrepareOrdersForNextTradingDay() error
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]TradingStrategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]TradingStrategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s TradingStrategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates
// whether the strategy was found.
func (r *Registry) Get(name string) (TradingStrategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
