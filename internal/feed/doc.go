// Package feed implements the single upstream WebSocket connection to a
// mempool.space compatible feed.
//
// The client owns the connection exclusively: connect/close are
// serialized behind one lock, a receive loop pushes decodable frames to
// the Messages channel and a heartbeat loop probes liveness, surfacing
// stale connections on the Errors channel.
package feed
