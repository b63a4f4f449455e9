package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"invoicing-backend/internal/currency"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultFallbackURL serves rates keyed off an INR base.
	DefaultFallbackURL = "https://api.exchangerate-api.com/v4/latest/INR"

	defaultTTL         = 30 * time.Minute
	defaultMinInterval = 60 * time.Second

	redisSnapshotKey = "invoicing:rates:snapshot"
)

// Config wires a Provider. PrimaryURL (currencyapi.com response shape) is
// optional; FallbackURL defaults to the exchangerate-api INR endpoint. Redis
// is an optional shared snapshot tier — nil disables it.
type Config struct {
	PrimaryURL  string
	FallbackURL string
	TTL         time.Duration
	MinInterval time.Duration
	HTTPClient  *http.Client
	Redis       *redis.Client
	Logger      *logrus.Logger

	// Static forces the static table, skipping all network tiers.
	Static bool
}

// Provider supplies INR-relative exchange rates with tiered fallback:
// live primary API → live fallback API → redis-shared previous snapshot →
// in-process cached snapshot (within TTL) → static table. Rate requests never
// fail; degradation is tagged in the snapshot's Source and logged.
type Provider struct {
	mu          sync.Mutex
	snapshot    *currency.Snapshot // last accepted live snapshot
	lastAPICall time.Time

	primaryURL  string
	fallbackURL string
	ttl         time.Duration
	minInterval time.Duration
	static      bool

	http  *http.Client
	redis *redis.Client
	log   *logrus.Logger

	now func() time.Time // injectable clock for tests
}

func New(cfg Config) *Provider {
	if cfg.FallbackURL == "" {
		cfg.FallbackURL = DefaultFallbackURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Provider{
		primaryURL:  cfg.PrimaryURL,
		fallbackURL: cfg.FallbackURL,
		ttl:         cfg.TTL,
		minInterval: cfg.MinInterval,
		static:      cfg.Static,
		http:        cfg.HTTPClient,
		redis:       cfg.Redis,
		log:         cfg.Logger,
		now:         time.Now,
	}
}

// Snapshot returns the best available rate snapshot. A fresh cached snapshot
// is returned without any network traffic; otherwise one refresh is attempted
// (rate-limited to one outbound call per MinInterval, one in flight
// system-wide) before walking the fallback tiers. Never returns an error.
func (p *Provider) Snapshot(ctx context.Context) currency.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.static {
		return currency.StaticSnapshot()
	}

	now := p.now()
	if p.fresh(now) {
		return *p.snapshot
	}

	// Stale or empty. Respect the minimum interval between outbound calls:
	// concurrent callers hit the tiers below instead of stacking requests.
	if p.lastAPICall.IsZero() || now.Sub(p.lastAPICall) >= p.minInterval {
		p.lastAPICall = now
		if snap, err := p.fetch(ctx); err == nil {
			p.snapshot = &snap
			p.mirrorToRedis(ctx, snap)
			return snap
		} else {
			p.log.WithError(err).Warn("exchange rate refresh failed, degrading to fallback tier")
		}
	}

	if snap, ok := p.fromRedis(ctx, now); ok {
		p.snapshot = &snap
		return snap
	}
	if p.fresh(now) {
		return *p.snapshot
	}
	return currency.StaticSnapshot()
}

// Rate returns the INR-per-unit rate for a code from the best available
// snapshot. Unknown codes degrade to 1.
func (p *Provider) Rate(ctx context.Context, code string) decimal.Decimal {
	snap := p.Snapshot(ctx)
	if r, ok := snap.Rate(code); ok {
		return r
	}
	p.log.WithField("currency", code).Warn("no exchange rate for currency, treating as INR-equivalent")
	return decimal.NewFromInt(1)
}

// ForceRefresh drops the cached snapshot and interval gate, then fetches.
func (p *Provider) ForceRefresh(ctx context.Context) currency.Snapshot {
	p.mu.Lock()
	p.snapshot = nil
	p.lastAPICall = time.Time{}
	p.mu.Unlock()
	return p.Snapshot(ctx)
}

// fresh reports whether the cached live snapshot is within TTL.
func (p *Provider) fresh(now time.Time) bool {
	return p.snapshot != nil && now.Sub(p.snapshot.FetchedAt) < p.ttl
}

// fetch tries the primary then the fallback API and validates the result.
func (p *Provider) fetch(ctx context.Context) (currency.Snapshot, error) {
	var firstErr error
	if p.primaryURL != "" {
		snap, err := p.fetchPrimary(ctx)
		if err == nil {
			return snap, nil
		}
		firstErr = err
		p.log.WithError(err).WithField("url", p.primaryURL).Warn("primary exchange rate API failed, trying fallback")
	}

	snap, err := p.fetchFallback(ctx)
	if err == nil {
		return snap, nil
	}
	if firstErr != nil {
		return currency.Snapshot{}, fmt.Errorf("primary: %v; fallback: %w", firstErr, err)
	}
	return currency.Snapshot{}, err
}

// primaryResponse is the currencyapi.com shape: values are units of the
// currency per 1 INR, so the stored rate is the inverse.
type primaryResponse struct {
	Data map[string]struct {
		Value float64 `json:"value"`
	} `json:"data"`
}

func (p *Provider) fetchPrimary(ctx context.Context) (currency.Snapshot, error) {
	var body primaryResponse
	if err := p.getJSON(ctx, p.primaryURL, &body); err != nil {
		return currency.Snapshot{}, err
	}
	if len(body.Data) == 0 {
		return currency.Snapshot{}, fmt.Errorf("primary API returned no rate data")
	}
	if inr, ok := body.Data["INR"]; ok && inr.Value != 1.0 {
		return currency.Snapshot{}, fmt.Errorf("primary API self-consistency check failed: INR = %v", inr.Value)
	}

	out := map[string]decimal.Decimal{"INR": decimal.NewFromInt(1)}
	for code, entry := range body.Data {
		if code == "INR" || !currency.IsSupported(code) || entry.Value <= 0 {
			continue
		}
		out[code] = decimal.NewFromInt(1).Div(decimal.NewFromFloat(entry.Value))
	}
	return p.accept(out)
}

// fallbackResponse is the exchangerate-api.com /v4/latest/INR shape: rates are
// units of the currency per 1 INR, inverted on ingestion.
type fallbackResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (p *Provider) fetchFallback(ctx context.Context) (currency.Snapshot, error) {
	var body fallbackResponse
	if err := p.getJSON(ctx, p.fallbackURL, &body); err != nil {
		return currency.Snapshot{}, err
	}
	if len(body.Rates) == 0 {
		return currency.Snapshot{}, fmt.Errorf("fallback API returned no rate data")
	}
	if inr, ok := body.Rates["INR"]; !ok || inr != 1.0 {
		return currency.Snapshot{}, fmt.Errorf("fallback API self-consistency check failed: INR = %v", body.Rates["INR"])
	}

	out := map[string]decimal.Decimal{"INR": decimal.NewFromInt(1)}
	for code, v := range body.Rates {
		if code == "INR" || !currency.IsSupported(code) || v <= 0 {
			continue
		}
		out[code] = decimal.NewFromInt(1).Div(decimal.NewFromFloat(v))
	}
	return p.accept(out)
}

// accept finalizes a parsed rate map into a live snapshot. A map that carries
// nothing beyond INR is treated as a malformed response.
func (p *Provider) accept(rates map[string]decimal.Decimal) (currency.Snapshot, error) {
	if len(rates) <= 1 {
		return currency.Snapshot{}, fmt.Errorf("response contained no supported currencies")
	}
	snap := currency.Snapshot{
		Rates:     rates,
		FetchedAt: p.now(),
		Source:    currency.SourceLive,
	}
	p.log.WithFields(logrus.Fields{
		"currencies": len(rates),
		"source":     snap.Source,
	}).Info("exchange rate snapshot refreshed")
	return snap, nil
}

func (p *Provider) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// redisSnapshot is the wire form of a snapshot in the shared cache.
type redisSnapshot struct {
	Rates     map[string]string `json:"rates"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// mirrorToRedis publishes a fresh live snapshot for sibling instances.
// Best effort: redis being down never degrades a successful fetch.
func (p *Provider) mirrorToRedis(ctx context.Context, snap currency.Snapshot) {
	if p.redis == nil {
		return
	}
	wire := redisSnapshot{Rates: make(map[string]string, len(snap.Rates)), FetchedAt: snap.FetchedAt}
	for code, r := range snap.Rates {
		wire.Rates[code] = r.String()
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, redisSnapshotKey, data, p.ttl).Err(); err != nil {
		p.log.WithError(err).Warn("failed to mirror rate snapshot to redis")
	}
}

// fromRedis recovers a still-fresh live snapshot published by another
// instance. Counts as the "cached previous live snapshot" tier.
func (p *Provider) fromRedis(ctx context.Context, now time.Time) (currency.Snapshot, bool) {
	if p.redis == nil {
		return currency.Snapshot{}, false
	}
	data, err := p.redis.Get(ctx, redisSnapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			p.log.WithError(err).Warn("failed to read rate snapshot from redis")
		}
		return currency.Snapshot{}, false
	}

	var wire redisSnapshot
	if err := json.Unmarshal(data, &wire); err != nil || now.Sub(wire.FetchedAt) >= p.ttl {
		return currency.Snapshot{}, false
	}
	out := map[string]decimal.Decimal{}
	for code, raw := range wire.Rates {
		if r, err := decimal.NewFromString(raw); err == nil {
			out[code] = r
		}
	}
	if len(out) == 0 {
		return currency.Snapshot{}, false
	}
	return currency.Snapshot{Rates: out, FetchedAt: wire.FetchedAt, Source: currency.SourceLive}, true
}
