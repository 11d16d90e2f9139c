// Package distribute routes classified upstream frames to listener
// queues and a shared recent-message history.
//
// Delivery is best-effort: every frame lands in the bounded history
// ring (oldest dropped when full), and classified frames are pushed
// non-blocking to each listener registered for their channel. A slow
// listener loses frames; it never stalls distribution.
package distribute
