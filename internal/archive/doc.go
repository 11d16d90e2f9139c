// Package archive batches frames from selected channels into the
// frames table, append-only. The archiver subscribes like any other
// consumer, so enabling it keeps its channels wanted upstream.
package archive
