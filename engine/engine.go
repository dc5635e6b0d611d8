package engine

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/hearthchat/hearth/federation"
	"github.com/hearthchat/hearth/lib/notify"
	"github.com/hearthchat/hearth/lib/oplog"
	"github.com/hearthchat/hearth/lib/oplog/memlog"
	"github.com/hearthchat/hearth/sync/common"
	"github.com/hearthchat/hearth/sync/conncache"
	"github.com/hearthchat/hearth/sync/data"
)

// defaultPort is used for server names that carry no explicit port.
const defaultPort = 8448

// Engine bundles the wired sync core: the ordered log with its change
// notifier, the stored-state accessors, the connection cache and the
// destination resolver. The transport layer sits on top of it.
type Engine struct {
	Log      oplog.ILog
	Notifier *notify.Notifier
	Stores   *data.Stores
	Cache    *conncache.Cache
	Resolver *federation.Resolver
}

// New wires an engine from the configuration. Every component shares the
// same log and notifier, so writes through the stores wake suspended
// polls.
func New(cfg common.SyncConfig) *Engine {
	n := notify.NewNotifier()
	l := memlog.NewMemoryLog(n)
	stores := data.NewStores(l)

	return &Engine{
		Log:      l,
		Notifier: n,
		Stores:   stores,
		Cache:    conncache.NewCache(l, n, stores, cfg),
		Resolver: federation.NewResolver(directLookup, 5*time.Minute),
	}
}

// directLookup resolves a server name without discovery: an explicit port
// is honored, otherwise the default federation port applies.
func directLookup(_ context.Context, serverName string) (federation.Destination, error) {
	host, portStr, err := net.SplitHostPort(serverName)
	if err != nil {
		return federation.Destination{Host: serverName, Port: defaultPort}, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return federation.Destination{}, oplog.NewError(oplog.RetCMalformed, "invalid port in server name "+serverName)
	}
	return federation.Destination{Host: host, Port: uint16(port)}, nil
}
