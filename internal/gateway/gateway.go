package gateway

import "context"

// Surface is the interface for front-ends driving the engine (console,
// chat bots, etc.)
type Surface interface {
	// Start begins the command loop
	Start(ctx context.Context) error
	// Stop gracefully shuts down the surface
	Stop() error
}
