// Package ratelimit provides per-client request limiting using token buckets
// keyed by client address, with idle buckets evicted after a TTL.
package ratelimit
