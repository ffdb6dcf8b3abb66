package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"optionscope/internal/config"
	"optionscope/internal/errors"
	"optionscope/internal/greeks"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// quoteBatchSize is the maximum symbols per Kite quote request.
const quoteBatchSize = 200

// defaultRiskFreeRate is the assumed annualized risk-free rate when no
// curve source is configured.
const defaultRiskFreeRate = 0.065

// KiteProvider implements Provider against the Zerodha Kite Connect API.
type KiteProvider struct {
	client    *kiteconnect.Client
	apiKey    string
	apiSecret string
	userID    string
	tokenPath string
	retryCfg  utils.FetchConfig

	mu            sync.RWMutex
	authenticated bool
	accessToken   string
	instruments   []kiteconnect.Instrument
	instrumentsAt time.Time
}

// NewKiteProvider builds a provider from credentials and loads any
// persisted session from disk.
func NewKiteProvider(creds config.KiteCredentials) *KiteProvider {
	tokenPath := filepath.Join(config.DefaultConfigDir(), "session.json")

	p := &KiteProvider{
		client:    kiteconnect.New(creds.APIKey),
		apiKey:    creds.APIKey,
		apiSecret: creds.APISecret,
		userID:    creds.UserID,
		tokenPath: tokenPath,
		retryCfg:  utils.DefaultFetchConfig(),
	}
	_ = p.loadSession()
	return p
}

// permanentIfSessionErr marks token and permission failures as
// non-retryable; a dead session never heals within one retry budget.
func permanentIfSessionErr(err error) error {
	if err == nil {
		return nil
	}
	var ke kiteconnect.Error
	if errors.As(err, &ke) && (ke.ErrorType == kiteconnect.TokenError || ke.ErrorType == kiteconnect.PermissionError) {
		return utils.Permanent(err)
	}
	return err
}

type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login validates an existing session or returns the URL to complete a
// fresh OAuth flow.
func (p *KiteProvider) Login(ctx context.Context) error {
	if err := p.loadSession(); err == nil && p.IsAuthenticated() {
		if _, err := p.client.GetUserProfile(); err == nil {
			return nil
		}
	}
	loginURL := p.client.GetLoginURL()
	return errors.Wrapf(errors.ErrNotAuthenticated, "visit %s and complete login, then call CompleteLogin with the request token", loginURL)
}

// CompleteLogin finishes the OAuth flow with the request token.
func (p *KiteProvider) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := p.client.GenerateSession(requestToken, p.apiSecret)
	if err != nil {
		return errors.Wrap(err, "generating session")
	}

	p.mu.Lock()
	p.accessToken = session.AccessToken
	p.authenticated = true
	p.client.SetAccessToken(session.AccessToken)
	p.mu.Unlock()

	return p.saveSession(session.AccessToken)
}

// IsAuthenticated reports whether a live session is loaded.
func (p *KiteProvider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authenticated
}

func (p *KiteProvider) loadSession() error {
	data, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return err
	}
	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	if time.Now().After(session.ExpiresAt) {
		return errors.Wrap(errors.ErrNotAuthenticated, "session expired")
	}

	p.mu.Lock()
	p.accessToken = session.AccessToken
	p.authenticated = true
	p.client.SetAccessToken(session.AccessToken)
	p.mu.Unlock()
	return nil
}

func (p *KiteProvider) saveSession(accessToken string) error {
	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0700); err != nil {
		return err
	}

	// Kite tokens expire at 6 AM IST the next day.
	loc, _ := time.LoadLocation("Asia/Kolkata")
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	data, err := json.Marshal(sessionData{
		AccessToken: accessToken,
		UserID:      p.userID,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(p.tokenPath, data, 0600)
}

// optionInstruments returns cached NFO option contracts for the
// underlying, refreshing the instrument dump once a day.
func (p *KiteProvider) optionInstruments(ctx context.Context, symbol string) ([]kiteconnect.Instrument, error) {
	p.mu.RLock()
	fresh := time.Since(p.instrumentsAt) < 24*time.Hour && len(p.instruments) > 0
	cached := p.instruments
	p.mu.RUnlock()

	if !fresh {
		dump, err := utils.FetchWithRetry(ctx, p.retryCfg, func() ([]kiteconnect.Instrument, error) {
			d, err := p.client.GetInstrumentsByExchange("NFO")
			return d, permanentIfSessionErr(err)
		})
		if err != nil {
			return nil, errors.NewDataError("instruments", symbol, "fetching instrument dump", err)
		}
		p.mu.Lock()
		p.instruments = dump
		p.instrumentsAt = time.Now()
		cached = dump
		p.mu.Unlock()
	}

	var out []kiteconnect.Instrument
	for _, inst := range cached {
		if inst.Name != symbol {
			continue
		}
		if inst.InstrumentType != "CE" && inst.InstrumentType != "PE" {
			continue
		}
		out = append(out, inst)
	}
	if len(out) == 0 {
		return nil, errors.NewDataError("instruments", symbol, "no option contracts listed", errors.ErrSymbolNotFound)
	}
	return out, nil
}

// GetOptionChain builds the chain snapshot for the nearest expiry,
// limited to strikes within 15% of spot so quote batches stay small.
func (p *KiteProvider) GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if !p.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	spot, err := p.spotPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	instruments, err := p.optionInstruments(ctx, symbol)
	if err != nil {
		return nil, err
	}

	expiry := nearestExpiry(instruments)
	var keys []string
	byKey := make(map[string]kiteconnect.Instrument)
	for _, inst := range instruments {
		if !inst.Expiry.Time.Equal(expiry) {
			continue
		}
		if math.Abs(inst.StrikePrice-spot) > spot*0.15 {
			continue
		}
		key := "NFO:" + inst.Tradingsymbol
		keys = append(keys, key)
		byKey[key] = inst
	}
	if len(keys) == 0 {
		return nil, errors.NewDataError("chain", symbol, "no strikes near spot", errors.ErrEmptyChain)
	}

	chain := &models.OptionChain{
		Symbol:    symbol,
		SpotPrice: spot,
		FetchedAt: time.Now(),
	}
	dte := int(math.Ceil(time.Until(expiry).Hours() / 24))
	years := time.Until(expiry).Hours() / 24 / 365

	for start := 0; start < len(keys); start += quoteBatchSize {
		end := start + quoteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		quotes, err := utils.FetchWithRetry(ctx, p.retryCfg, func() (kiteconnect.Quote, error) {
			q, err := p.client.GetQuote(batch...)
			return q, permanentIfSessionErr(err)
		})
		if err != nil {
			return nil, errors.NewDataError("chain", symbol, "fetching quotes", err)
		}

		for key, q := range quotes {
			inst, ok := byKey[key]
			if !ok {
				continue
			}
			var bid, ask float64
			if len(q.Depth.Buy) > 0 {
				bid = q.Depth.Buy[0].Price
			}
			if len(q.Depth.Sell) > 0 {
				ask = q.Depth.Sell[0].Price
			}
			contract := buildContract(inst, bid, ask, q.LastPrice, int64(q.Volume), int64(q.OI), spot, years, dte)
			if contract.Type == models.Call {
				chain.Calls = append(chain.Calls, contract)
			} else {
				chain.Puts = append(chain.Puts, contract)
			}
		}
	}

	sort.Slice(chain.Calls, func(i, j int) bool { return chain.Calls[i].Strike < chain.Calls[j].Strike })
	sort.Slice(chain.Puts, func(i, j int) bool { return chain.Puts[i].Strike < chain.Puts[j].Strike })
	if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
		return nil, errors.NewDataError("chain", symbol, "empty quote response", errors.ErrEmptyChain)
	}
	return chain, nil
}

// buildContract converts one Kite quote into the domain contract,
// backing out implied vol from the mid price and deriving greeks.
func buildContract(inst kiteconnect.Instrument, bid, ask, last float64, volume, oi int64, spot, years float64, dte int) models.OptionContract {
	optType := models.Call
	if inst.InstrumentType == "PE" {
		optType = models.Put
	}

	mid := (bid + ask) / 2
	if mid == 0 {
		mid = last
	}

	iv := greeks.ImpliedVol(mid, spot, inst.StrikePrice, defaultRiskFreeRate, years, optType)
	var g models.Greeks
	if iv > 0 {
		g = greeks.Compute(spot, inst.StrikePrice, defaultRiskFreeRate, iv, years, optType)
	}

	return models.OptionContract{
		Symbol:       inst.Tradingsymbol,
		Type:         optType,
		Strike:       inst.StrikePrice,
		Expiry:       inst.Expiry.Time,
		Bid:          bid,
		Ask:          ask,
		Mid:          mid,
		Volume:       volume,
		OpenInterest: oi,
		ImpliedVol:   iv,
		Greeks:       g,
		DaysToExpiry: dte,
	}
}

// GetMarketData builds the underlying snapshot from the quote plus a
// year of daily candles.
func (p *KiteProvider) GetMarketData(ctx context.Context, symbol string) (*models.MarketData, error) {
	if !p.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	spot, err := p.spotPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	returns, avgVolume, dayVolume, err := p.dailyHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}

	histVol := utils.StdDev(returns) * math.Sqrt(252)
	iv, ivRank := p.atmImpliedVol(ctx, symbol, spot, histVol)

	return &models.MarketData{
		Symbol:        symbol,
		Price:         spot,
		HistoricalVol: histVol,
		ImpliedVol:    iv,
		IVRank:        ivRank,
		RiskFreeRate:  defaultRiskFreeRate,
		Returns:       returns,
		AvgVolume:     avgVolume,
		DayVolume:     dayVolume,
		Timestamp:     time.Now(),
	}, nil
}

func (p *KiteProvider) spotPrice(ctx context.Context, symbol string) (float64, error) {
	key := "NSE:" + symbol
	quotes, err := utils.FetchWithRetry(ctx, p.retryCfg, func() (kiteconnect.Quote, error) {
		q, err := p.client.GetQuote(key)
		return q, permanentIfSessionErr(err)
	})
	if err != nil {
		return 0, errors.NewDataError("quote", symbol, "fetching spot", err)
	}
	q, ok := quotes[key]
	if !ok || q.LastPrice <= 0 {
		return 0, errors.NewDataError("quote", symbol, "no spot quote", errors.ErrSymbolNotFound)
	}
	return q.LastPrice, nil
}

// dailyHistory returns close-to-close returns and volume aggregates for
// the trailing year.
func (p *KiteProvider) dailyHistory(ctx context.Context, symbol string) (returns []float64, avgVolume, dayVolume float64, err error) {
	inst, err := p.underlyingInstrument(ctx, symbol)
	if err != nil {
		return nil, 0, 0, err
	}

	to := time.Now()
	from := to.AddDate(-1, 0, 0)
	candles, err := utils.FetchWithRetry(ctx, p.retryCfg, func() ([]kiteconnect.HistoricalData, error) {
		c, err := p.client.GetHistoricalData(inst, "day", from, to, false, false)
		return c, permanentIfSessionErr(err)
	})
	if err != nil {
		return nil, 0, 0, errors.NewDataError("historical", symbol, "fetching daily candles", err)
	}
	if len(candles) < 2 {
		return nil, 0, 0, errors.NewDataError("historical", symbol, "insufficient history", errors.ErrNoData)
	}

	var volSum float64
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev > 0 {
			returns = append(returns, math.Log(candles[i].Close/prev))
		}
		volSum += float64(candles[i].Volume)
	}
	avgVolume = volSum / float64(len(candles)-1)
	dayVolume = float64(candles[len(candles)-1].Volume)
	return returns, avgVolume, dayVolume, nil
}

// underlyingInstrument resolves the NSE equity token for the symbol.
func (p *KiteProvider) underlyingInstrument(ctx context.Context, symbol string) (int, error) {
	dump, err := utils.FetchWithRetry(ctx, p.retryCfg, func() ([]kiteconnect.Instrument, error) {
		d, err := p.client.GetInstrumentsByExchange("NSE")
		return d, permanentIfSessionErr(err)
	})
	if err != nil {
		return 0, errors.NewDataError("instruments", symbol, "fetching NSE dump", err)
	}
	for _, inst := range dump {
		if inst.Tradingsymbol == symbol {
			return inst.InstrumentToken, nil
		}
	}
	return 0, errors.NewDataError("instruments", symbol, "symbol not listed", errors.ErrSymbolNotFound)
}

// atmImpliedVol estimates current ATM implied vol and its rank against
// realized vol extremes. The rank is an approximation; a proper rank
// needs an IV history store.
func (p *KiteProvider) atmImpliedVol(ctx context.Context, symbol string, spot, histVol float64) (float64, float64) {
	instruments, err := p.optionInstruments(ctx, symbol)
	if err != nil {
		return histVol, 50
	}
	expiry := nearestExpiry(instruments)
	years := time.Until(expiry).Hours() / 24 / 365

	atm := nearestATM(instruments, expiry, spot)
	if atm == nil {
		return histVol, 50
	}

	key := "NFO:" + atm.Tradingsymbol
	quotes, err := utils.FetchWithRetry(ctx, p.retryCfg, func() (kiteconnect.Quote, error) {
		q, err := p.client.GetQuote(key)
		return q, permanentIfSessionErr(err)
	})
	if err != nil {
		return histVol, 50
	}
	q, ok := quotes[key]
	if !ok {
		return histVol, 50
	}

	optType := models.Call
	if atm.InstrumentType == "PE" {
		optType = models.Put
	}
	iv := greeks.ImpliedVol(q.LastPrice, spot, atm.StrikePrice, defaultRiskFreeRate, years, optType)
	if iv == 0 {
		return histVol, 50
	}

	// Rank IV inside a band around realized vol.
	lo, hi := histVol*0.5, histVol*2
	rank := utils.Clamp((iv-lo)/(hi-lo)*100, 0, 100)
	return iv, rank
}

func nearestExpiry(instruments []kiteconnect.Instrument) time.Time {
	var nearest time.Time
	now := time.Now()
	for _, inst := range instruments {
		exp := inst.Expiry.Time
		if exp.Before(now) {
			continue
		}
		if nearest.IsZero() || exp.Before(nearest) {
			nearest = exp
		}
	}
	return nearest
}

func nearestATM(instruments []kiteconnect.Instrument, expiry time.Time, spot float64) *kiteconnect.Instrument {
	var best *kiteconnect.Instrument
	for i := range instruments {
		inst := &instruments[i]
		if !inst.Expiry.Time.Equal(expiry) || inst.InstrumentType != "CE" {
			continue
		}
		if best == nil || math.Abs(inst.StrikePrice-spot) < math.Abs(best.StrikePrice-spot) {
			best = inst
		}
	}
	return best
}

// GetActivePositions maps the broker's net option positions into
// read-only position records.
func (p *KiteProvider) GetActivePositions(ctx context.Context) ([]models.Position, error) {
	if !p.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	positions, err := utils.FetchWithRetry(ctx, p.retryCfg, func() (kiteconnect.Positions, error) {
		pos, err := p.client.GetPositions()
		return pos, permanentIfSessionErr(err)
	})
	if err != nil {
		return nil, errors.NewDataError("positions", "", "fetching positions", err)
	}

	var out []models.Position
	for _, pos := range positions.Net {
		if pos.Quantity == 0 {
			continue
		}
		side := models.Buy
		qty := pos.Quantity
		if qty < 0 {
			side = models.Sell
			qty = -qty
		}
		out = append(out, models.Position{
			ID:            fmt.Sprintf("%s-%s", pos.Exchange, pos.Tradingsymbol),
			Symbol:        underlyingOf(pos.Tradingsymbol),
			Strategy:      "broker",
			Quantity:      qty,
			EntryPrice:    pos.AveragePrice,
			RealizedPnL:   pos.Realised,
			UnrealizedPnL: pos.Unrealised,
			Active:        true,
			Legs: []models.PositionLeg{
				{
					Symbol:     pos.Tradingsymbol,
					Quantity:   qty,
					Side:       side,
					EntryPrice: pos.AveragePrice,
				},
			},
		})
	}
	return out, nil
}

// underlyingOf strips the expiry/strike suffix from an NFO trading
// symbol, leaving the underlying name.
func underlyingOf(tradingSymbol string) string {
	for i, r := range tradingSymbol {
		if r >= '0' && r <= '9' {
			return tradingSymbol[:i]
		}
	}
	return strings.TrimSpace(tradingSymbol)
}
