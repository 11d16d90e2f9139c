// Package api provides the mempool.space REST client.
//
// REST endpoint:
//   - Production: https://mempool.space/api
//
// Covers addresses, blocks, transactions, the mempool backlog and the
// fee estimation endpoints. Plain-text endpoints (tip hash, raw tx hex,
// broadcast) are exposed as string-returning methods.
package api
