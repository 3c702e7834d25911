/*
Package metrics exposes Prometheus collectors for the relay.

Collectors are package-level and registered in init, covering registry
occupancy (connected subscribers, open connections), webhook intake by event
type, fan-out outcomes (deliveries, failures by reason, pruned connections),
API request counts and the outbound chat channel. Handler returns the
promhttp handler mounted at /metrics by the API server.
*/
package metrics
