/*
Package api serves the relay's HTTP surface.

Routes:

	POST /webhook/gitlab       webhook intake (optional shared-secret check)
	GET  /events               SSE stream per subscriber
	POST /api/clients/register subscriber registration
	GET  /api/clients          registry snapshot with stats
	GET  /api/events/recent    recent webhook history
	GET  /health               liveness
	GET  /metrics              Prometheus metrics

Webhook intake answers the sender immediately on acceptance and hands the
payload to a detached processing goroutine; delivery outcome never gates the
inbound response. All routes pass through CORS, request-logging and
panic-recovery middleware. The server deliberately sets no write timeout
because /events responses stay open for the life of a subscription.
*/
package api
