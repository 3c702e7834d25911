// Package target derives which subscribers should be notified about a
// normalized webhook event. Resolution is a pure function over the event and
// payload; the default is deliberately narrow (actor only) so an event never
// turns into an accidental broadcast.
package target
