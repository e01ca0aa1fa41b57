// Package sink delivers finished price quotes to their consumers.
package sink

import "swapScope/internal/model"

// Sink consumes price quotes. Implementations must be safe for concurrent
// use; quotes from different pools arrive from different goroutines.
type Sink interface {
	Publish(quote model.PriceQuote) error
}

// Fanout publishes each quote to every sink in order.
type Fanout []Sink

func (f Fanout) Publish(quote model.PriceQuote) error {
	for _, s := range f {
		if err := s.Publish(quote); err != nil {
			return err
		}
	}
	return nil
}
