// README: Event fan-out; every decision goes to every configured sink.
package events

import (
	"context"

	"hailer/internal/modules/allocation"
)

type Multi []allocation.EventPublisher

// PublishDecision delivers to every sink; one sink's failure does not
// stop the others. The first error is reported.
func (m Multi) PublishDecision(ctx context.Context, res allocation.Result) error {
	var firstErr error
	for _, p := range m {
		if err := p.PublishDecision(ctx, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
