// Package notifications delivers training run outcomes via ntfy.
//
// NewService publishes to the topic configured under [notifications] and
// degrades to a no-op when no topic is set. Delivery failures are returned to
// the caller, which logs them; a notification never changes a run's outcome.
package notifications
