// Package classify decodes raw mempool.space WebSocket frames into a
// closed set of typed payloads and maps each decoded frame to the
// channel it belongs to.
//
// Decoding happens once, at the boundary: malformed frames fail in
// Decode and never reach routing. Classification itself is a pure
// function over the decoded frame.
package classify
