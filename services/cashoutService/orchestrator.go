package cashoutService

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stormStakes/models"
	"stormStakes/services/weatherService"
)

// Broadcaster pushes consolidated updates to connected clients.
type Broadcaster interface {
	BroadcastCashoutUpdate(updatedIDs []string, ts time.Time)
}

// Orchestrator drives the recomputation passes. The periodic cron tick
// and the realtime weather_update event both funnel into Tick, which is
// single-flight: a trigger arriving while a pass is running is dropped,
// not queued.
type Orchestrator struct {
	db          *gorm.DB
	provider    weatherService.ObservationProvider
	trends      *TrendTracker
	notifier    Notifier
	broadcaster Broadcaster
	logger      *logrus.Logger

	inFlight atomic.Bool
	stopped  atomic.Bool

	mu     sync.RWMutex
	latest map[uint]*CashoutValuation
}

func NewOrchestrator(db *gorm.DB, provider weatherService.ObservationProvider, notifier Notifier, broadcaster Broadcaster, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		db:          db,
		provider:    provider,
		trends:      NewTrendTracker(),
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
		latest:      make(map[uint]*CashoutValuation),
	}
}

// Trends exposes the tracker for on-demand valuations that need the
// current direction without disturbing the polling sequence.
func (o *Orchestrator) Trends() *TrendTracker {
	return o.trends
}

// Tick runs one full recomputation pass over every pending wager:
// coalesced observation fetches, fan-out valuation, sequential trend
// application, rule evaluation, and the outbound broadcast. A wager
// whose valuation fails is omitted from the cycle's result map.
func (o *Orchestrator) Tick(ctx context.Context) {
	if o.stopped.Load() {
		return
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer o.inFlight.Store(false)

	var wagers []models.Wager
	err := o.db.Preload("Legs").Where("result = ?", models.ResultPending).Find(&wagers).Error
	if err != nil {
		o.logger.WithError(err).Error("listing open wagers")
		return
	}

	// One engine per pass, bound to a cache that fetches each distinct
	// city at most once even with valuations running concurrently.
	engine := NewEngine(newPassCache(o.provider), o.logger)

	results := make([]*CashoutValuation, len(wagers))
	var wg sync.WaitGroup
	for i := range wagers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			valuation, err := engine.Valuate(ctx, &wagers[i])
			if err != nil {
				o.logger.WithError(err).WithField("wager", wagers[i].PublicID).
					Warn("valuation skipped this cycle")
				return
			}
			results[i] = valuation
		}(i)
	}
	wg.Wait()

	// Torn down mid-pass: discard results rather than publishing into a
	// dead consumer set.
	if o.stopped.Load() {
		return
	}

	valuations := make(map[uint]*CashoutValuation, len(results))
	updated := make([]string, 0, len(results))
	for _, valuation := range results {
		if valuation == nil {
			continue
		}
		// Trends are applied sequentially here so overlapping fetches
		// can never reorder a wager's last-seen amount.
		valuation.Trend = o.trends.Classify(valuation.WagerID, valuation.Amount)
		valuations[valuation.WagerID] = valuation
		updated = append(updated, valuation.PublicID)
	}

	active := make(map[uint]bool, len(wagers))
	for i := range wagers {
		active[wagers[i].ID] = true
	}
	o.trends.Prune(active)

	o.mu.Lock()
	o.latest = valuations
	o.mu.Unlock()

	EvaluateRules(o.db, o.logger, o.notifier, valuations)

	if o.broadcaster != nil && len(updated) > 0 {
		o.broadcaster.BroadcastCashoutUpdate(updated, time.Now())
	}
}

// TriggerNow requests an out-of-cycle pass, e.g. when the realtime
// channel reports fresh weather data. It never blocks the caller.
func (o *Orchestrator) TriggerNow() {
	go o.Tick(context.Background())
}

// Stop marks the orchestrator dead. In-flight work may finish but its
// results are discarded. The cron entry itself is the scheduler's to
// remove.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// Latest returns the most recent consolidated result map.
func (o *Orchestrator) Latest() map[uint]*CashoutValuation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[uint]*CashoutValuation, len(o.latest))
	for id, valuation := range o.latest {
		out[id] = valuation
	}
	return out
}

// LatestFor returns the last published valuation for one wager.
func (o *Orchestrator) LatestFor(wagerID uint) (*CashoutValuation, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	valuation, ok := o.latest[wagerID]
	return valuation, ok
}

// passCache wraps a provider so each city is fetched exactly once per
// pass, with concurrent requesters for the same city sharing the
// result.
type passCache struct {
	provider weatherService.ObservationProvider

	mu     sync.Mutex
	cities map[string]*cityFetch
}

type cityFetch struct {
	once sync.Once
	obs  *weatherService.Observation
	err  error
}

func newPassCache(provider weatherService.ObservationProvider) *passCache {
	return &passCache{provider: provider, cities: make(map[string]*cityFetch)}
}

func (c *passCache) GetObservation(ctx context.Context, city string) (*weatherService.Observation, error) {
	c.mu.Lock()
	fetch, ok := c.cities[city]
	if !ok {
		fetch = &cityFetch{}
		c.cities[city] = fetch
	}
	c.mu.Unlock()

	fetch.once.Do(func() {
		fetch.obs, fetch.err = c.provider.GetObservation(ctx, city)
	})
	return fetch.obs, fetch.err
}
