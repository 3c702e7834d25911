/*
Package types defines the core data structures used throughout gitping.

This package contains the fundamental types of the relay's domain model:
the canonical event record extracted from a GitLab webhook (EventInfo), the
outbound unit pushed to subscribers (Notification) with its per-event-type
data variants (EventData), the decoded GitLab payload shapes (WebhookPayload
and friends), registry snapshots (ClientSummary, RegistryStats), dispatch
outcomes (DispatchResult), and the persisted audit envelope (StoredEvent).

The EventData variants form a closed tagged union over event type: each
variant carries only its own well-typed field set, with GenericData for
unrecognized events. Producers pick the variant with a type switch on
EventType; consumers receive it as the JSON "data" object.

All types are JSON-serializable and owned by exactly one component at
runtime: the registry owns subscriber state, the dispatcher builds
notifications, the storage layer owns stored events.
*/
package types
