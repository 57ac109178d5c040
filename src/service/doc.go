// Package service implements the HTTP API of a relayfold process.
//
//	/stats             engine counters
//	/channels          every channel; ?joined=true keeps the joined ones
//	/channels/{id}     one channel
//	/subscriptions     ids of the open subscriptions
//	/metrics           Prometheus metrics
package service
