package posting

import (
	"fmt"
	"sort"
	"strings"
)

// TaxKeyResolver maps raw tax-rate indicators to canonical tax keys.
type TaxKeyResolver struct {
	indicators map[string]TaxKey
	unresolved TaxKey
}

// TaxKeyResult is the outcome of a lookup. Fallback is set when the indicator
// was not in the table and the unresolved key was substituted.
type TaxKeyResult struct {
	Key      TaxKey
	Fallback bool
}

// NewTaxKeyResolver copies the indicator table. Several indicators may map to
// the same key ("7" and "7,00" for instance).
func NewTaxKeyResolver(indicators map[string]TaxKey, unresolved TaxKey) (*TaxKeyResolver, error) {
	if unresolved == "" {
		return nil, fmt.Errorf("%w: unresolved tax key is empty", ErrInvalidConfig)
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("%w: no tax-rate indicators configured", ErrInvalidConfig)
	}

	table := make(map[string]TaxKey, len(indicators))
	for indicator, key := range indicators {
		if key == "" {
			return nil, fmt.Errorf("%w: indicator %q maps to an empty tax key", ErrInvalidConfig, indicator)
		}
		table[strings.TrimSpace(indicator)] = key
	}

	return &TaxKeyResolver{indicators: table, unresolved: unresolved}, nil
}

// Resolve looks up an indicator. It never fails: an unknown indicator yields the
// unresolved key with Fallback set.
func (r *TaxKeyResolver) Resolve(indicator string) TaxKeyResult {
	if key, ok := r.indicators[strings.TrimSpace(indicator)]; ok {
		return TaxKeyResult{Key: key}
	}
	return TaxKeyResult{Key: r.unresolved, Fallback: true}
}

// Unresolved returns the fallback key.
func (r *TaxKeyResolver) Unresolved() TaxKey {
	return r.unresolved
}

// Keys returns the distinct keys reachable through the table, sorted.
func (r *TaxKeyResolver) Keys() []TaxKey {
	seen := make(map[TaxKey]bool)
	var keys []TaxKey
	for _, key := range r.indicators {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
