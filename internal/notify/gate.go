package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Andylive5518/cctv-allin/internal/store"
)

// DefaultDedupTTL is how long a forwarded firing alert suppresses repeats.
const DefaultDedupTTL = 5 * time.Minute

const gateKeyPrefix = "alert:"

// GateKey returns the storage key for an alert key.
func GateKey(alertKey string) string {
	return gateKeyPrefix + alertKey
}

// State is the per-alert deduplication state.
type State int

const (
	// StateOpen means the next firing alert is forwarded.
	StateOpen State = iota
	// StateSuppressed means a firing alert was forwarded within the TTL.
	StateSuppressed
)

func (s State) String() string {
	if s == StateSuppressed {
		return "suppressed"
	}
	return "open"
}

// Decision is the outcome of presenting one alert to a Gate.
type Decision int

const (
	// Forward: firing while open, or resolved.
	Forward Decision = iota
	// Suppress: firing while suppressed.
	Suppress
	// Drop: a status the gate does not handle.
	Drop
)

func (d Decision) String() string {
	switch d {
	case Forward:
		return "forward"
	case Suppress:
		return "suppress"
	default:
		return "drop"
	}
}

// Admission is the result of presenting one alert to a Gate.
type Admission struct {
	Decision Decision
	// Token is set only when this call moved the key from Open to
	// Suppressed. Release needs it to undo exactly that transition.
	Token string
}

// GateStatus is the observable state of one alert key.
type GateStatus struct {
	State State
	// Remaining is the suppression time left; zero when open.
	Remaining time.Duration
}

// Gate is the two-state machine that keeps a firing alert from being
// forwarded more than once per TTL window.
//
//	firing   + Open       -> Suppressed, Forward
//	firing   + Suppressed -> Suppressed, Suppress
//	resolved + any        -> Open,       Forward
//	other    + any        -> unchanged,  Drop
//	TTL expiry            -> Open
type Gate interface {
	// Admit applies status to key. When the backend fails the decision is
	// still usable: the gate fails open and returns Forward with the error.
	Admit(ctx context.Context, key, status string) (Admission, error)
	// Release returns key to Open if it is still held by token. A key
	// re-armed by a later firing transition is left alone.
	Release(ctx context.Context, key, token string) error
	State(ctx context.Context, key string) (GateStatus, error)
}

// Compile-time interface guards.
var (
	_ Gate = (*RedisGate)(nil)
	_ Gate = (*MemoryGate)(nil)
)

// RedisGate stores Suppressed keys in Redis with a TTL. The firing
// transition is a single SET NX EX so concurrent receivers agree; the
// stored value is a per-admission token.
type RedisGate struct {
	kv  store.KV
	ttl time.Duration
}

// NewRedisGate creates a gate backed by kv.
func NewRedisGate(kv store.KV, ttl time.Duration) *RedisGate {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisGate{kv: kv, ttl: ttl}
}

func (g *RedisGate) Admit(ctx context.Context, key, status string) (Admission, error) {
	switch strings.ToLower(status) {
	case StatusFiring:
		token := uuid.NewString()
		stored, err := g.kv.SetNX(ctx, GateKey(key), token, g.ttl)
		if err != nil {
			return Admission{Decision: Forward}, err
		}
		if !stored {
			return Admission{Decision: Suppress}, nil
		}
		return Admission{Decision: Forward, Token: token}, nil
	case StatusResolved:
		if err := g.kv.Del(ctx, GateKey(key)); err != nil {
			return Admission{Decision: Forward}, err
		}
		return Admission{Decision: Forward}, nil
	default:
		return Admission{Decision: Drop}, nil
	}
}

func (g *RedisGate) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	_, err := g.kv.CompareAndDelete(ctx, GateKey(key), token)
	return err
}

func (g *RedisGate) State(ctx context.Context, key string) (GateStatus, error) {
	d, err := g.kv.TTL(ctx, GateKey(key))
	switch {
	case errors.Is(err, store.ErrCacheMiss):
		return GateStatus{State: StateOpen}, nil
	case err != nil:
		return GateStatus{State: StateOpen}, err
	case d < 0:
		// key without expiry
		return GateStatus{State: StateSuppressed}, nil
	default:
		return GateStatus{State: StateSuppressed, Remaining: d}, nil
	}
}

// MemoryGate is an in-process Gate for single-instance deployments
// without Redis.
type MemoryGate struct {
	mu    sync.Mutex
	ttl   time.Duration
	held  map[string]memoryEntry
	now   func() time.Time
	token func() string
}

type memoryEntry struct {
	expires time.Time
	token   string
}

// NewMemoryGate creates an in-memory gate.
func NewMemoryGate(ttl time.Duration) *MemoryGate {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &MemoryGate{
		ttl:   ttl,
		held:  make(map[string]memoryEntry),
		now:   time.Now,
		token: uuid.NewString,
	}
}

func (g *MemoryGate) Admit(_ context.Context, key, status string) (Admission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch strings.ToLower(status) {
	case StatusFiring:
		now := g.now()
		if e, ok := g.held[key]; ok && now.Before(e.expires) {
			return Admission{Decision: Suppress}, nil
		}
		token := g.token()
		g.held[key] = memoryEntry{expires: now.Add(g.ttl), token: token}
		g.sweep(now)
		return Admission{Decision: Forward, Token: token}, nil
	case StatusResolved:
		delete(g.held, key)
		return Admission{Decision: Forward}, nil
	default:
		return Admission{Decision: Drop}, nil
	}
}

func (g *MemoryGate) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.held[key]; ok && token != "" && e.token == token {
		delete(g.held, key)
	}
	return nil
}

func (g *MemoryGate) State(_ context.Context, key string) (GateStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if e, ok := g.held[key]; ok && now.Before(e.expires) {
		return GateStatus{State: StateSuppressed, Remaining: e.expires.Sub(now)}, nil
	}
	return GateStatus{State: StateOpen}, nil
}

// sweep drops expired entries. Caller holds mu.
func (g *MemoryGate) sweep(now time.Time) {
	for k, e := range g.held {
		if !now.Before(e.expires) {
			delete(g.held, k)
		}
	}
}
