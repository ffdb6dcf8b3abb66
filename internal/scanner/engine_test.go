package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"optionscope/internal/config"
	"optionscope/internal/errors"
	"optionscope/internal/marketdata"
	"optionscope/internal/models"
)

func testEngineConfig(universe ...string) *config.Config {
	cfg := config.Default()
	cfg.Scanner.Universe = universe
	cfg.Scanner.SymbolTimeout = 10 * time.Second
	cfg.Simulation.Paths = 2000
	cfg.Simulation.Seed = 42
	return cfg
}

// seededProvider serves a liquid synthesized chain in a low-vol regime
// so the pipeline produces at least one strategy.
func seededProvider(symbols ...string) *marketdata.StaticProvider {
	p := marketdata.NewStaticProvider()
	for _, sym := range symbols {
		p.SetChain(sym, marketdata.SynthesizeChain(sym, 100, 0.2, 30, 11))
		p.SetMarketData(sym, marketdata.SynthesizeMarketData(sym, 100, 0.2, 10))
	}
	return p
}

func TestRunCyclePipeline(t *testing.T) {
	cfg := testEngineConfig("NIFTY")
	e := NewEngine(cfg, seededProvider("NIFTY"), nil, nil, zerolog.Nop())

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if res.CycleID == "" {
		t.Error("missing cycle ID")
	}
	if len(res.Failures) != 0 {
		t.Errorf("unexpected failures: %v", res.Failures)
	}
	if len(res.Records) == 0 {
		t.Fatal("no records from a liquid low-vol chain")
	}
	for i, rec := range res.Records {
		if rec.Score < cfg.Scanner.MinRAOS {
			t.Errorf("record %d score %v below the configured minimum", i, rec.Score)
		}
		if rec.Strategy.Metrics.DaysToExpiry > cfg.Scanner.MaxDaysToExpiry {
			t.Errorf("record %d expiry %d past the configured cap", i, rec.Strategy.Metrics.DaysToExpiry)
		}
		if i > 0 && rec.Score > res.Records[i-1].Score {
			t.Errorf("records not ranked: %v after %v", rec.Score, res.Records[i-1].Score)
		}
	}
	if got := e.LastResult(); got == nil || got.CycleID != res.CycleID {
		t.Error("last result not recorded")
	}
}

func TestRunCycleFailureIsolation(t *testing.T) {
	cfg := testEngineConfig("NIFTY", "MISSING")
	e := NewEngine(cfg, seededProvider("NIFTY"), nil, nil, zerolog.Nop())

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	ferr, ok := res.Failures["MISSING"]
	if !ok {
		t.Fatal("unseeded symbol not recorded as a failure")
	}
	if !errors.Is(ferr, errors.ErrSymbolNotFound) {
		t.Errorf("failure = %v, want ErrSymbolNotFound", ferr)
	}
	if len(res.Records) == 0 {
		t.Error("healthy symbol dropped because a sibling failed")
	}
}

func TestRunCycleDeterministicWithSeed(t *testing.T) {
	a, err := NewEngine(testEngineConfig("NIFTY"), seededProvider("NIFTY"), nil, nil, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	b, err := NewEngine(testEngineConfig("NIFTY"), seededProvider("NIFTY"), nil, nil, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(a.Records) != len(b.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(a.Records), len(b.Records))
	}
	for i := range a.Records {
		if a.Records[i].Strategy.Name != b.Records[i].Strategy.Name {
			t.Errorf("record %d name %q vs %q", i, a.Records[i].Strategy.Name, b.Records[i].Strategy.Name)
		}
		if a.Records[i].Score != b.Records[i].Score {
			t.Errorf("record %d score %v vs %v", i, a.Records[i].Score, b.Records[i].Score)
		}
	}
}

func TestRunCycleUpdatesTriggers(t *testing.T) {
	cfg := testEngineConfig("NIFTY")
	p := seededProvider("NIFTY")
	md := marketdata.SynthesizeMarketData("NIFTY", 100, 0.2, 95) // spike territory
	p.SetMarketData("NIFTY", md)

	e := NewEngine(cfg, p, nil, nil, zerolog.Nop())
	if _, err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	spike := triggerByCondition(e.Triggers("NIFTY"), models.TriggerIVSpike)
	if spike.State != models.Triggered {
		t.Errorf("spike state = %v, want triggered after a 95 IV rank cycle", spike.State)
	}
}

// recordingStore captures persistence calls for inspection.
type recordingStore struct {
	mu      sync.Mutex
	watched []string
	alerts  []models.MonitoringAlert
	journal []models.SymbolTrigger
}

func (s *recordingStore) SaveAlert(ctx context.Context, a models.MonitoringAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingStore) JournalTrigger(ctx context.Context, t models.SymbolTrigger, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, t)
	return nil
}

func (s *recordingStore) Watchlist(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched, nil
}

func TestRunCyclePersistsState(t *testing.T) {
	cfg := testEngineConfig("NIFTY")
	p := seededProvider("NIFTY", "BANKNIFTY")
	p.SetMarketData("NIFTY", marketdata.SynthesizeMarketData("NIFTY", 100, 0.2, 95))
	p.SetPositions([]models.Position{
		// Entry cost 10000; down 40%, past the default stop.
		position("stopped", "NIFTY", 100, 1, -4000),
	})
	st := &recordingStore{watched: []string{"BANKNIFTY"}}

	e := NewEngine(cfg, p, st, nil, zerolog.Nop())
	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	// The watchlist symbol joins the configured universe.
	if _, failed := res.Failures["BANKNIFTY"]; failed {
		t.Error("watchlist symbol recorded as a failure")
	}
	watched := false
	for _, rec := range res.Records {
		if rec.Strategy.Symbol == "BANKNIFTY" {
			watched = true
		}
	}
	if !watched {
		t.Error("watchlist symbol produced no records")
	}

	// The IV spike transition reaches the journal.
	journaled := false
	for _, tr := range st.journal {
		if tr.Symbol == "NIFTY" && tr.Condition == models.TriggerIVSpike && tr.State == models.Triggered {
			journaled = true
		}
	}
	if !journaled {
		t.Errorf("journal = %+v, want a triggered IV spike for NIFTY", st.journal)
	}

	// Every fired alert lands in the ledger.
	if len(res.Alerts) == 0 {
		t.Fatal("no alerts fired for a stopped-out position")
	}
	if len(st.alerts) != len(res.Alerts) {
		t.Errorf("persisted %d alerts, cycle fired %d", len(st.alerts), len(res.Alerts))
	}
}

func TestRunCycleCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(testEngineConfig("NIFTY"), seededProvider("NIFTY"), nil, nil, zerolog.Nop())
	res, err := e.RunCycle(ctx)
	if err == nil {
		t.Fatalf("cancelled cycle returned result %+v", res)
	}
}

func TestBuildAlertsRules(t *testing.T) {
	cfg := testEngineConfig("NIFTY")
	e := NewEngine(cfg, seededProvider("NIFTY"), nil, nil, zerolog.Nop())

	// Defaults: stop at -30%, target at +50%, swing at 10%, concentration
	// above 40% of deployed capital.
	positions := []models.Position{
		// Entry cost 10000; down 40%.
		position("stopped", "NIFTY", 1, 100, -4000),
		// Entry cost 2000; up 60%.
		position("winner", "BANKNIFTY", 1, 20, 1200),
		// Entry cost 1000; down 15%.
		position("swinging", "FINNIFTY", 1, 10, -150),
	}
	market := map[string]*models.MarketData{
		"NIFTY": {Symbol: "NIFTY", IVRank: 50},
	}

	alerts := e.buildAlerts(positions, market, nil)

	byKind := make(map[models.AlertKind][]models.MonitoringAlert)
	for _, a := range alerts {
		byKind[a.Kind] = append(byKind[a.Kind], a)
		if a.ID == "" {
			t.Error("alert missing ID")
		}
		if a.Guidance.Action == "" || a.Guidance.Urgency == "" {
			t.Errorf("alert %s missing guidance", a.Kind)
		}
	}

	if got := byKind[models.AlertStopLoss]; len(got) != 1 || got[0].Severity != models.AlertCritical {
		t.Errorf("stop loss alerts = %+v, want one critical", got)
	}
	if got := byKind[models.AlertProfitTarget]; len(got) != 1 || got[0].Severity != models.AlertInfo {
		t.Errorf("profit target alerts = %+v, want one info", got)
	}
	if got := byKind[models.AlertPnLSwing]; len(got) != 1 || got[0].Severity != models.AlertWarning {
		t.Errorf("pnl swing alerts = %+v, want one warning", got)
	}
	// NIFTY holds 10000 of 13000 deployed, above the 40% limit.
	if got := byKind[models.AlertConcentration]; len(got) != 1 || got[0].Symbol != "NIFTY" {
		t.Errorf("concentration alerts = %+v, want one for NIFTY", got)
	}
}

func TestBuildAlertsRegimeChange(t *testing.T) {
	e := NewEngine(testEngineConfig("NIFTY"), seededProvider("NIFTY"), nil, nil, zerolog.Nop())

	market := map[string]*models.MarketData{
		"NIFTY":     {Symbol: "NIFTY", IVRank: 95},
		"BANKNIFTY": {Symbol: "BANKNIFTY", IVRank: 5},
	}
	alerts := e.buildAlerts([]models.Position{position("p1", "NIFTY", 1, 10, 0)}, market, nil)

	var spike, crush *models.MonitoringAlert
	for i := range alerts {
		if alerts[i].Kind != models.AlertRegimeChange {
			continue
		}
		switch alerts[i].Symbol {
		case "NIFTY":
			spike = &alerts[i]
		case "BANKNIFTY":
			crush = &alerts[i]
		}
	}
	if spike == nil || spike.Severity != models.AlertCritical {
		t.Errorf("IV spike alert = %+v, want critical", spike)
	}
	if crush == nil || crush.Severity != models.AlertWarning {
		t.Errorf("IV crush alert = %+v, want warning", crush)
	}
}

func TestGuidanceTemplatesCoverAllKinds(t *testing.T) {
	kinds := []models.AlertKind{
		models.AlertPnLSwing, models.AlertConcentration, models.AlertProfitTarget,
		models.AlertStopLoss, models.AlertRegimeChange,
	}
	for _, k := range kinds {
		g := guidanceFor(k, models.AlertWarning)
		if g.Action == "" || g.Rationale == "" || g.Urgency == "" {
			t.Errorf("kind %s has an incomplete guidance template: %+v", k, g)
		}
	}
}
