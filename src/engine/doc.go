// Package engine owns the runtime context of the ingestion core.
//
// An Engine holds the single-writer loop, the projection registry, the
// channel store and the subscription metrics. Every subscription it opens
// runs its bookkeeping on the loop, and every accepted event is pushed to
// the registry on that same goroutine, so projection handlers and store
// writes never race.
//
//	eng, _ := engine.New(conf)
//	eng.Run()
//	defer eng.Shutdown()
//
//	go eng.SubscribePersistent(ctx, relays, projection.ChannelFilters(ids, pub), subscription.Options{Timeout: 10 * time.Second})
//
// Reads go through the store: eng.Channels().Key(id).Get().
package engine
