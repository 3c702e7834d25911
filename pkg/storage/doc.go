/*
Package storage provides BoltDB-backed persistence for the webhook event
history.

Each processed webhook is appended as a JSON-serialized StoredEvent under a
zero-padded sequence key, which makes key order equal arrival order: recent
events are read with a reverse cursor scan and retention pruning walks
forward and stops at the first event inside the retention window. The
history is append-only audit data; losing it across a restart loses no
delivery semantics.
*/
package storage
