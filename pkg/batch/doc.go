// Package batch runs many QA samples concurrently, each against its own
// Session and working directory, with bounded concurrency and
// order-preserving aggregation. The fan-out shape is grounded on the
// teacher's community.Builder.BuildCommunities semaphore pattern.
package batch
