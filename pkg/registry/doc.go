/*
Package registry implements the client registry at the core of the relay.

The Registry maps a subscriber identity (an opaque string supplied by the
client) to zero or more live streaming connections plus a metadata record
(display name, user agent, base URL hint, timestamps). It exposes
registration, connect, disconnect, targeted send, broadcast and snapshot
operations.

Invariants:

  - A connection belongs to one subscriber for its whole lifetime and is
    removed the moment its transport reports closure; removal is idempotent.
  - Subscriber metadata is never deleted; only the connection set is pruned.
  - "Not connected" is a normal outcome surfaced through counts, never an
    error.

Both maps live under a single mutex. Critical sections only mutate maps;
network writes happen on a copied connection snapshot after the lock is
released, so one slow subscriber cannot stall fan-out to others. A write
failure prunes that connection only.
*/
package registry
