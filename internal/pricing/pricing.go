package pricing

import (
	"fmt"
	"log"
)

// DefaultRegistry mirrors the variant tiers configured in the payment
// provider. Prices are decimal GBP units, not cents. Keep this in sync with
// the provider dashboard; there is no automatic reconciliation.
func DefaultRegistry() map[string]float64 {
	return map[string]float64{
		"ls_p_123": 0,  // universe entrance / starters
		"ls_p_456": 5,  // standard tier
		"ls_p_789": 15, // premium tier
		"ls_p_000": 25, // masterclass / full systems
	}
}

// Resolver maps opaque price identifiers to display amounts. Resolve never
// fails: unknown or empty identifiers come back as 0 so a registry drift can
// never break a page render.
type Resolver struct {
	registry map[string]float64
	debug    bool
}

func NewResolver(registry map[string]float64, debug bool) *Resolver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Resolver{registry: registry, debug: debug}
}

func (r *Resolver) Resolve(priceID string) float64 {
	if priceID == "" {
		return 0
	}
	amount, ok := r.registry[priceID]
	if !ok {
		if r.debug {
			log.Printf("pricing: unknown price id %q, resolving to 0", priceID)
		}
		return 0
	}
	return amount
}

// Known reports whether the identifier exists in the registry without the
// zero fallback, so callers can distinguish "free" from "unresolved".
func (r *Resolver) Known(priceID string) bool {
	_, ok := r.registry[priceID]
	return ok
}

// FormatGBP renders an amount for display. Zero is always the calm "Free"
// label rather than a currency string.
func FormatGBP(amount float64) string {
	if amount == 0 {
		return "Free"
	}
	return fmt.Sprintf("£%.2f", amount)
}

// ActionLabel is the checkout button copy for a resolved price.
func ActionLabel(amount float64) string {
	if amount == 0 {
		return "Add to Library"
	}
	return fmt.Sprintf("Get for %s", FormatGBP(amount))
}
