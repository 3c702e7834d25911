/*
Package sse implements the streaming transport endpoint.

Conn is one open server-sent-event connection: a uuid identity, a buffered
outbound frame channel drained by a single writer loop (strict per-connection
write ordering), a bounded enqueue wait so a slow subscriber fails instead of
stalling fan-out, and an idempotent Close. Handler serves GET /events,
writing `data: <json>\n\n` frames and a `: heartbeat\n\n` comment on a fixed
interval; teardown of the registry entry is driven by the request context or
the connection's own close, whichever fires first.
*/
package sse
