package ports

import "context"

// EventPublisher notifies other instances about session lifecycle changes so
// they can drop any cached session state.
type EventPublisher interface {
	// PublishLogout announces that one session was invalidated.
	PublishLogout(ctx context.Context, address, sessionID string) error

	// PublishSessionsInvalidated announces that every session of an
	// address was invalidated.
	PublishSessionsInvalidated(ctx context.Context, address string) error
}
