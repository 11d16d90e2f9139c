// Package manager multiplexes many logical subscribers onto the single
// upstream feed connection.
//
// The Manager owns the connection lifecycle, keeps the subscription
// registry and the upstream's view of wanted channels in step, feeds
// inbound frames to the distribution engine, and recovers from
// connection loss with bounded exponential backoff, replaying the
// active channel set onto the new connection.
package manager
