package cashoutService

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"stormStakes/models"
	"stormStakes/services/weatherService"
)

type countingProvider struct {
	calls   int32
	entered chan struct{}
	release chan struct{}
	obs     *weatherService.Observation
}

func (p *countingProvider) GetObservation(_ context.Context, city string) (*weatherService.Observation, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	if p.obs != nil {
		return p.obs, nil
	}
	return &weatherService.Observation{City: city, Raining: true}, nil
}

type captureBroadcaster struct {
	mu     sync.Mutex
	bursts [][]string
}

func (b *captureBroadcaster) BroadcastCashoutUpdate(updatedIDs []string, _ time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bursts = append(b.bursts, updatedIDs)
}

func wagerRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "created_at", "public_id", "user_id", "kind", "stake", "odds", "result",
	}).AddRow(1, now, "w-1", 1, models.WagerKindSingle, 100, 2.0, models.ResultPending)
}

func legRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "wager_id", "city", "prediction_type", "prediction_value", "leg_odds",
	}).AddRow(1, 1, "Oslo", models.PredictionRain, "yes", 2.0)
}

func expectOnePass(mock sqlmock.Sqlmock, now time.Time) {
	mock.ExpectQuery("SELECT \\* FROM `wagers`").WillReturnRows(wagerRows(now))
	mock.ExpectQuery("SELECT \\* FROM `wager_legs`").WillReturnRows(legRows())
	mock.ExpectQuery("SELECT \\* FROM `auto_cashout_rules`").WillReturnRows(ruleRows())
}

func TestTickPublishesValuations(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	expectOnePass(mock, now)

	broadcaster := &captureBroadcaster{}
	orch := NewOrchestrator(db, &countingProvider{}, nil, broadcaster, testLogger())

	orch.Tick(context.Background())

	valuation, ok := orch.LatestFor(1)
	if !ok {
		t.Fatal("expected a published valuation for wager 1")
	}
	if valuation.Trend != TrendStable {
		t.Errorf("first observation should be stable, got %s", valuation.Trend)
	}
	if valuation.Amount <= 0 {
		t.Errorf("expected a positive offer, got %d", valuation.Amount)
	}

	if len(broadcaster.bursts) != 1 || len(broadcaster.bursts[0]) != 1 || broadcaster.bursts[0][0] != "w-1" {
		t.Errorf("expected one broadcast for w-1, got %v", broadcaster.bursts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTickCoalescesConcurrentTriggers(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	expectOnePass(mock, now)

	provider := &countingProvider{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	orch := NewOrchestrator(db, provider, nil, &captureBroadcaster{}, testLogger())

	done := make(chan struct{})
	go func() {
		orch.Tick(context.Background())
		close(done)
	}()

	// Wait until the first pass is mid-fetch, then trigger again: the
	// second call must return immediately without touching the DB,
	// which sqlmock would flag as an unexpected query.
	<-provider.entered
	orch.Tick(context.Background())
	close(provider.release)
	<-done

	if calls := atomic.LoadInt32(&provider.calls); calls != 1 {
		t.Errorf("expected a single coalesced fetch, got %d", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTickAfterStopIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)

	broadcaster := &captureBroadcaster{}
	orch := NewOrchestrator(db, &countingProvider{}, nil, broadcaster, testLogger())
	orch.Stop()

	orch.Tick(context.Background())

	if len(broadcaster.bursts) != 0 {
		t.Error("stopped orchestrator must not publish")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTickTrendFollowsWeatherShift(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Now().Add(-10 * time.Minute)
	expectOnePass(mock, created)
	expectOnePass(mock, created)

	// Dry on the first pass, raining on the second: the confidence
	// bonus kicks in and the offer climbs.
	provider := &countingProvider{obs: &weatherService.Observation{City: "Oslo", Raining: false}}
	orch := NewOrchestrator(db, provider, nil, &captureBroadcaster{}, testLogger())

	orch.Tick(context.Background())
	first, _ := orch.LatestFor(1)

	provider.obs = &weatherService.Observation{City: "Oslo", Raining: true}
	orch.Tick(context.Background())
	second, ok := orch.LatestFor(1)
	if !ok {
		t.Fatal("expected a valuation after the second pass")
	}
	if second.Amount <= first.Amount {
		t.Fatalf("expected the offer to grow between passes: %d then %d", first.Amount, second.Amount)
	}
	if second.Trend != TrendUp {
		t.Errorf("expected an up trend, got %s", second.Trend)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPassCacheFetchesEachCityOnce(t *testing.T) {
	provider := &countingProvider{}
	cache := newPassCache(provider)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.GetObservation(context.Background(), "Oslo")
			cache.GetObservation(context.Background(), "Bergen")
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&provider.calls); calls != 2 {
		t.Errorf("expected one fetch per distinct city, got %d", calls)
	}
}
