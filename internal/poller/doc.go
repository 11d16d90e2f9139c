// Package poller implements the address snapshot poller.
//
// The poller:
//   - Periodically fetches tracked-address stats via the REST API
//   - Gives consumers a confirmed-state baseline between live events
//   - Uses concurrent requests with a bounded semaphore
package poller
