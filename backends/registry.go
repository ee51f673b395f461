package backends

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentic", "backends")

var (
	// ErrBackendUnreachable is returned when a connection to a backend could
	// not be established. It is non-fatal; a later Connect may retry.
	ErrBackendUnreachable = errors.New("backend unreachable")
	// ErrToolUnknown is returned by a connection when the named tool does not
	// exist on that backend.
	ErrToolUnknown = errors.New("tool not found on backend")
	// ErrResourceUnknown is returned by a connection when a resource URI does
	// not resolve on that backend.
	ErrResourceUnknown = errors.New("resource not found on backend")
)

// DefaultDialTimeout bounds one connection attempt.
const DefaultDialTimeout = 15 * time.Second

// Registry owns every backend connection, keyed by endpoint identity.
// Connections are created lazily on first Connect and reused thereafter;
// concurrent Connect calls for the same unseen endpoint result in exactly
// one dial.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]Connection
	order       []string
	locks       map[string]*sync.Mutex

	dialTimeout time.Duration
	// dial is swappable for tests.
	dial func(ctx context.Context, endpoint Endpoint) (Connection, error)
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]Connection),
		locks:       make(map[string]*sync.Mutex),
		dialTimeout: DefaultDialTimeout,
		dial:        dialRemote,
	}
}

// WithDialTimeout sets the per-attempt connection timeout.
func (r *Registry) WithDialTimeout(timeout time.Duration) *Registry {
	r.dialTimeout = timeout
	return r
}

// WithDialer overrides how remote connections are established.
func (r *Registry) WithDialer(dial func(ctx context.Context, endpoint Endpoint) (Connection, error)) *Registry {
	r.dial = dial
	return r
}

// Connect returns the live connection for the endpoint, establishing it on
// first use. Connect is idempotent; a failed attempt does not poison future
// attempts.
func (r *Registry) Connect(ctx context.Context, endpoint Endpoint) (Connection, error) {
	key := endpoint.Key()

	// fast path: already connected
	if conn := r.Get(endpoint); conn != nil {
		return conn, nil
	}

	lock := r.endpointLock(key)
	lock.Lock()
	defer lock.Unlock()

	// re-check under the endpoint lock: another caller may have won the dial
	if conn := r.Get(endpoint); conn != nil {
		return conn, nil
	}

	metricskey.StatsBackendConnects.IncrCounter(1, endpoint.Name)

	dialCtx, cancel := context.WithTimeout(ctx, r.dialTimeout)
	defer cancel()

	conn, err := r.dialConnection(dialCtx, endpoint)
	if err != nil {
		metricskey.StatsBackendConnectsFailed.IncrCounter(1, endpoint.Name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "backend_connect_failed",
			"endpoint", endpoint.String(),
			"err", err.Error(),
		)
		return nil, errors.WithMessagef(ErrBackendUnreachable, "%s: %s", endpoint, err.Error())
	}

	r.mu.Lock()
	// a dead connection may still occupy the slot; replace it, keep its
	// position in the registration order
	old, replaced := r.connections[key]
	r.connections[key] = conn
	if !replaced {
		r.order = append(r.order, key)
	}
	r.mu.Unlock()

	if replaced {
		if err := old.Close(); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "backend_close_failed",
				"endpoint", endpoint.String(),
				"err", err.Error(),
			)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "backend_connected",
		"endpoint", endpoint.String(),
	)
	return conn, nil
}

func (r *Registry) dialConnection(ctx context.Context, endpoint Endpoint) (Connection, error) {
	if endpoint.Kind == KindInProcess {
		return nil, errors.New("in-process backend must be registered with RegisterLocal")
	}
	return r.dial(ctx, endpoint)
}

// RegisterLocal installs the in-process connection. It follows the same
// first-registration-wins rule as Connect.
func (r *Registry) RegisterLocal(conn Connection) Connection {
	key := conn.Endpoint().Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.connections[key]; ok {
		return existing
	}
	r.connections[key] = conn
	r.order = append(r.order, key)
	return conn
}

// Get returns the live connection for the endpoint, or nil.
func (r *Registry) Get(endpoint Endpoint) Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn := r.connections[endpoint.Key()]
	if conn == nil || !conn.Alive() {
		return nil
	}
	return conn
}

// Connections returns all connections in the order their endpoints were
// first connected. Registration order is the collision tie-break order used
// by the capability aggregator.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.order))
	for _, key := range r.order {
		if conn, ok := r.connections[key]; ok {
			out = append(out, conn)
		}
	}
	return out
}

// Disconnect closes and removes the connection for the endpoint, if any.
func (r *Registry) Disconnect(endpoint Endpoint) {
	key := endpoint.Key()
	r.mu.Lock()
	conn, ok := r.connections[key]
	if ok {
		delete(r.connections, key)
		for i, k := range r.order {
			if k == key {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		if err := conn.Close(); err != nil {
			logger.KV(xlog.WARNING,
				"status", "backend_close_failed",
				"endpoint", endpoint.String(),
				"err", err.Error(),
			)
		}
	}
}

// DisconnectAll releases every connection. Used at process shutdown; dead
// connections are closed without error.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	conns := make([]Connection, 0, len(r.order))
	for _, key := range r.order {
		if conn, ok := r.connections[key]; ok {
			conns = append(conns, conn)
		}
	}
	r.connections = make(map[string]Connection)
	r.order = nil
	r.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			logger.KV(xlog.WARNING,
				"status", "backend_close_failed",
				"endpoint", conn.Endpoint().String(),
				"err", err.Error(),
			)
		}
	}
}

// Status reports liveness keyed by endpoint name.
func (r *Registry) Status() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.connections))
	for _, conn := range r.connections {
		out[conn.Endpoint().Name] = conn.Alive()
	}
	return out
}

func (r *Registry) endpointLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}
