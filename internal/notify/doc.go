// Package notify carries arc notify events to downstream consumers.
//
// Events published after a completed lot get content-derived ids, so
// publishing the same completion twice yields the same id and an idempotent
// log records it once. Trigger events raised by timers and operators get
// time-sortable UUIDv7 ids instead.
package notify
