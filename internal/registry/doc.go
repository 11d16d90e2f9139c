// Package registry tracks which subscriber listens to which channel.
//
// It is the single source of truth for the active channel set: a channel
// is active while at least one subscriber holds it. Subscribe and
// Unsubscribe report the zero↔one transitions the manager uses to drive
// upstream want/unwant directives.
package registry
