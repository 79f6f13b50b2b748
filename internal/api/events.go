package api

import (
	"context"
	"time"
)

// broadcastLoop pushes a state event to every connected client on a
// fixed interval, so a dashboard doesn't need to poll GET /state.
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.handlers.broadcastState()
		}
	}
}
