/*
Package dispatch fans normalized webhook events out to subscribers.

Dispatcher builds the transport-agnostic notification (with the data variant
matching the event type and human-facing links rewritten against the
resolved instance URL), resolves the target subscriber set and pushes
through the registry, reporting success, no_target_users or
clients_not_connected. Processor wraps the whole post-acceptance pipeline
(normalize, history append, browser fan-out, chat forward) for execution on
a goroutine detached from the inbound request. Neither lets a failure or
panic escape to the webhook sender.
*/
package dispatch
