/*
Package event normalizes raw GitLab webhook input.

Normalize maps (payload, headers) to the canonical EventInfo: event type from
the X-Gitlab-Event header, project and branch and actor from the first
non-empty payload field of each kind, and a resolved instance base URL. The
instance URL preference order is: explicit X-Gitlab-Instance header when it
does not look internal, then a connected subscriber's reported base URL, then
the raw header value. What counts as internal is a configurable substring
predicate, not a hard-coded hostname.

ResolveURL rewrites payload-embedded links against the resolved base so that
URLs minted inside a cluster-local instance become reachable for a human.
*/
package event
