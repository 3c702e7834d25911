// Package chat forwards event summaries to an outbound chat webhook. The
// channel is optional and best-effort: a missing URL disables it, and a
// failed post never affects browser fan-out.
package chat
