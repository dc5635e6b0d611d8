package federation

import (
	"context"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hearthchat/hearth/lib/flight"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("federation")

var metricLookups = metrics.GetOrCreateCounter("hearth_resolver_lookups_total")

// Destination is the resolved network address of a remote server.
type Destination struct {
	Host string
	Port uint16
}

// LookupFunc performs the actual resolution of a server name, typically
// well-known discovery followed by DNS. It is injected so the resolver
// stays independent of the network mechanics.
type LookupFunc func(ctx context.Context, serverName string) (Destination, error)

type cached struct {
	dest    Destination
	expires time.Time
}

// Resolver resolves server names to destinations with a TTL cache in
// front and single-flight collapse behind it: when many concurrent
// requests miss the cache for the same server name, exactly one lookup
// runs and all requests share its result. Failed lookups are not cached;
// every miss retries.
type Resolver struct {
	lookup LookupFunc
	ttl    time.Duration

	cache  *xsync.MapOf[string, cached]
	flight *flight.Map[string, Destination]
}

// NewResolver creates a resolver around the given lookup function.
// Resolved destinations are served from cache for ttl.
func NewResolver(lookup LookupFunc, ttl time.Duration) *Resolver {
	return &Resolver{
		lookup: lookup,
		ttl:    ttl,
		cache:  xsync.NewMapOf[string, cached](),
		flight: flight.NewMap[string, Destination](),
	}
}

// Resolve returns the destination for the server name, from cache when
// fresh, otherwise through a single collapsed lookup.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (r *Resolver) Resolve(ctx context.Context, serverName string) (Destination, error) {
	if entry, ok := r.cache.Load(serverName); ok && time.Now().Before(entry.expires) {
		return entry.dest, nil
	}

	return r.flight.Do(serverName, func() (Destination, error) {
		// Re-check inside the flight: a waiter queued behind the leader
		// may arrive after the cache was already filled.
		if entry, ok := r.cache.Load(serverName); ok && time.Now().Before(entry.expires) {
			return entry.dest, nil
		}

		metricLookups.Inc()
		dest, err := r.lookup(ctx, serverName)
		if err != nil {
			log.Warningf("resolving %s failed: %v", serverName, err)
			return Destination{}, err
		}

		r.cache.Store(serverName, cached{dest: dest, expires: time.Now().Add(r.ttl)})
		log.Debugf("resolved %s to %s:%d", serverName, dest.Host, dest.Port)
		return dest, nil
	})
}

// Evict removes the server name from the cache, forcing the next Resolve
// to look it up again.
func (r *Resolver) Evict(serverName string) {
	r.cache.Delete(serverName)
}
