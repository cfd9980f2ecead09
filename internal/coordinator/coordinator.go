package coordinator

import (
	"context"
	"log/slog"
	"sync"

	"qcpulse/internal/spc"
	"qcpulse/pkg/contracts/domain"
)

// Store is the persistence collaborator. Load failures are recovered locally
// by the coordinator; save failures are logged and swallowed.
type Store interface {
	Load(ctx context.Context) (domain.Series, error)
	Save(ctx context.Context, series domain.Series) error
}

// Broadcaster fans a series snapshot out to connected viewers. An empty
// excludeOrigin means everyone receives it. Broadcast is fire-and-forget;
// the coordinator never waits for delivery.
type Broadcaster interface {
	BroadcastSeries(series domain.Series, excludeOrigin string)
}

// FallbackSeries is the fixed series served when the backing store cannot be
// loaded. It is the same five samples on every cold start so that a fresh
// install and a corrupted workbook look identical to viewers.
func FallbackSeries() domain.Series {
	return domain.Series{
		{ID: 1, Weight: 27.2, Hardness: 101.0},
		{ID: 2, Weight: 26.8, Hardness: 98.5},
		{ID: 3, Weight: 27.5, Hardness: 102.3},
		{ID: 4, Weight: 26.5, Hardness: 97.8},
		{ID: 5, Weight: 27.8, Hardness: 100.4},
	}
}

// Coordinator maintains the authoritative series. All mutations are
// serialized and apply last-write-wins with no merge or conflict detection.
type Coordinator struct {
	store       Store
	broadcaster Broadcaster
	logger      *slog.Logger

	// updateMu serializes whole update applications in arrival order: the
	// snapshot swap, the save queueing and the broadcast of one update all
	// complete before the next update starts, so the last broadcast always
	// carries the authoritative series.
	updateMu sync.Mutex

	mu      sync.RWMutex
	current domain.Series
	ready   bool

	// saveQueue carries at most the latest unsaved snapshot; an update
	// arriving while a save is pending replaces the pending one.
	saveQueue chan domain.Series
}

// New creates a coordinator in the uninitialized state.
func New(store Store, broadcaster Broadcaster, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "coordinator")),
		saveQueue:   make(chan domain.Series, 1),
	}
}

// Initialize performs the startup load and establishes the authoritative
// series. It never fails: a load error degrades to the fixed fallback series.
// Calling it again returns the current series without reloading.
func (c *Coordinator) Initialize(ctx context.Context) domain.Series {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	c.mu.Lock()
	if c.ready {
		snapshot := c.current.Clone()
		c.mu.Unlock()
		return snapshot
	}
	c.mu.Unlock()

	series, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Load failed, using fallback series",
			slog.String("error", err.Error()))
		loadFailures.Inc()
		series = FallbackSeries()
	}

	c.mu.Lock()
	c.current = series.Clone()
	c.ready = true
	snapshot := c.current.Clone()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Coordinator ready",
		slog.Int("samples", len(snapshot)))
	return snapshot
}

// ApplyUpdate unconditionally replaces the authoritative series with the
// editor-submitted one, queues a best-effort save, and rebroadcasts to every
// viewer except the origin so an editor never receives its own write back as
// an echo.
func (c *Coordinator) ApplyUpdate(ctx context.Context, series domain.Series, origin string) {
	c.replace(ctx, series, origin, "editor")
}

// OnExternalChange replaces the authoritative series after an out-of-band
// change to the backing store. There is no addressable origin, so the
// broadcast goes to all viewers including whichever one may have caused it.
func (c *Coordinator) OnExternalChange(ctx context.Context, series domain.Series) {
	c.replace(ctx, series, "", "external")
}

// ReloadFromStore re-reads the backing store and feeds the result through
// OnExternalChange. It is the handler wired to the file watcher. A failed
// load keeps the current in-memory series authoritative.
func (c *Coordinator) ReloadFromStore(ctx context.Context) {
	series, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Reload after external change failed, keeping current series",
			slog.String("error", err.Error()))
		loadFailures.Inc()
		return
	}
	c.OnExternalChange(ctx, series)
}

func (c *Coordinator) replace(ctx context.Context, series domain.Series, origin, source string) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	snapshot := series.Clone()

	c.mu.Lock()
	c.current = snapshot
	c.ready = true
	c.mu.Unlock()

	updatesTotal.WithLabelValues(source).Inc()
	c.logger.InfoContext(ctx, "Series replaced",
		slog.String("source", source),
		slog.String("origin", origin),
		slog.Int("samples", len(snapshot)))

	c.queueSave(snapshot.Clone())
	c.broadcaster.BroadcastSeries(snapshot.Clone(), origin)
}

// queueSave hands the snapshot to the writer goroutine, replacing any save
// still pending so the writer always persists the latest state.
func (c *Coordinator) queueSave(series domain.Series) {
	for {
		select {
		case c.saveQueue <- series:
			return
		default:
			select {
			case <-c.saveQueue:
			default:
			}
		}
	}
}

// Run drains the save queue until the context is cancelled. Saves are
// serialized here so writes never race each other on the backing store, and
// a save failure is logged without disturbing the in-memory state.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case series := <-c.saveQueue:
			if err := c.store.Save(ctx, series); err != nil {
				c.logger.ErrorContext(ctx, "Save failed, in-memory series remains authoritative",
					slog.String("error", err.Error()))
				saveFailures.Inc()
			}
		}
	}
}

// CurrentSeries returns a copy of the authoritative series. Used to greet
// newly connecting viewers.
func (c *Coordinator) CurrentSeries() domain.Series {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// Ready reports whether Initialize has completed.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Annotated recomputes statistics and rule violations for one channel of the
// current series. There is no cache: every call derives from scratch.
func (c *Coordinator) Annotated(ch domain.Channel) domain.AnnotatedSeries {
	return spc.Annotate(c.CurrentSeries(), ch)
}

// Stats recomputes the channel statistics of the current series.
func (c *Coordinator) Stats(ch domain.Channel) domain.ChannelStats {
	return spc.Compute(c.CurrentSeries().Values(ch))
}
