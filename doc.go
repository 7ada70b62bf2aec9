// Package asyncimage loads remote images through a memory tier, a disk tier
// and the network, and reports each result to a listener asynchronously.
//
// A Loader owns one background worker. Load first consults the memory tier
// and, on a hit, calls the listener before returning. Otherwise the request is
// queued (one entry per URL) and the worker resolves it: disk tier first,
// then an HTTP GET whose result is committed to disk. Results are delivered
// through the Loader's executor, which stands in for the caller's UI thread.
//
// Disk layout: one file per URL, named by the lowercase hex SHA-256 of the
// URL bytes, holding JPEG data. Loaders in different processes may share a
// directory.
package asyncimage
