// Package replay provides a scripted quote source that plays back a fixed
// price sequence. It backs the simulate command and deterministic tests.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// ErrExhausted is returned once every scripted step has been consumed.
var ErrExhausted = errors.New("replay: price script exhausted")

// Step is one scripted response: either a price or an error.
type Step struct {
	Price float64
	Err   error
}

// Source returns scripted steps in order, one per Price call, regardless of
// the symbol asked for.
type Source struct {
	mu    sync.Mutex
	steps []Step
	pos   int
	calls []string
}

// New creates a Source that returns prices in order.
func New(prices ...float64) *Source {
	steps := make([]Step, len(prices))
	for i, p := range prices {
		steps[i] = Step{Price: p}
	}
	return &Source{steps: steps}
}

// NewSteps creates a Source from explicit steps, allowing scripted failures.
func NewSteps(steps ...Step) *Source {
	out := make([]Step, len(steps))
	copy(out, steps)
	return &Source{steps: out}
}

// Parse builds a Source from a comma-separated price list such as
// "100,90,95,80".
func Parse(list string) (*Source, error) {
	var prices []float64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("replay: parse price %q: %w", part, err)
		}
		if !domain.ValidPrice(p) {
			return nil, fmt.Errorf("replay: price %q: %w", part, &domain.InvalidPriceError{Price: p})
		}
		prices = append(prices, p)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("replay: no prices in %q", list)
	}
	return New(prices...), nil
}

// Price returns the next scripted step.
func (s *Source) Price(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, symbol)
	if s.pos >= len(s.steps) {
		return 0, ErrExhausted
	}
	step := s.steps[s.pos]
	s.pos++
	return step.Price, step.Err
}

// Remaining returns how many steps are left.
func (s *Source) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps) - s.pos
}

// Calls returns the symbols requested so far.
func (s *Source) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// Compile-time interface check.
var _ domain.QuoteSource = (*Source)(nil)
