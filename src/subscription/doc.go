// Package subscription implements bounded requests against a set of relays.
//
// A Subscription issues its filters to every relay through a Transport and
// processes what comes back on the engine loop: events are deduplicated by id
// across relays, attributed to the relays that delivered them, verified,
// re-checked against the filters and finally handed to the projections and to
// direct listeners. A Subscription closes exactly once, on Close, on timeout,
// or early once every relay has signalled end of stored events and a timeout
// was configured.
//
// Persistent stitches bounded subscriptions into a live feed by reopening
// each completed epoch with its since cursor advanced.
package subscription
