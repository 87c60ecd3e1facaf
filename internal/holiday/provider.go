// Package holiday supplies the Japanese national holiday schedule published
// by the Cabinet Office, with on-disk caching and character encoding
// normalization.
package holiday

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/koyomi-dev/koyomi/internal/logging"
)

// SourceURL is the Cabinet Office CSV listing every national holiday and
// substitute holiday. The file is published in CP932/Shift_JIS.
const SourceURL = "https://www8.cao.go.jp/chosei/shukujitsu/syukujitsu.csv"

// ErrEncoding means the fetched bytes decode as neither UTF-8 nor
// Shift_JIS/CP932.
var ErrEncoding = errors.New("could not determine character encoding")

// Holiday is one national holiday. Substitute holidays (振替休日) appear as
// their own rows in the source data.
type Holiday struct {
	Date time.Time
	Name string
}

// Config carries the provider's knobs.
type Config struct {
	SourceURL string
	CacheDir  string
	// CacheTTL is how long the cached CSV stays valid.
	CacheTTL time.Duration
	Timeout  time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SourceURL: SourceURL,
		CacheTTL:  30 * 24 * time.Hour,
		Timeout:   30 * time.Second,
	}
}

// Provider fetches, caches and answers queries about Japanese holidays.
// It is safe for concurrent use.
type Provider struct {
	cfg    Config
	client *http.Client
	logger logging.Logger

	mu       sync.Mutex
	loaded   bool
	holidays []Holiday // sorted by date
	byDate   map[string]Holiday
}

// New creates a Provider with the given config and logger.
func New(cfg Config, logger logging.Logger) *Provider {
	if cfg.SourceURL == "" {
		cfg.SourceURL = SourceURL
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * 24 * time.Hour
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Load makes the holiday data available, reading the cache when it is still
// within its TTL and fetching from the source otherwise. Calling Load more
// than once is a no-op.
func (p *Provider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	if data, ok := p.readCache(); ok {
		if err := p.install(data); err == nil {
			p.loaded = true
			return nil
		}
		if p.logger != nil {
			p.logger.Warn("discarding unreadable holiday cache", logging.Field{Key: "path", Value: p.cachePath()})
		}
	}
	return p.refreshLocked(ctx)
}

// Refresh forces a fetch from the source, bypassing the cache.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

func (p *Provider) refreshLocked(ctx context.Context) error {
	raw, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	data, err := toUTF8(raw)
	if err != nil {
		return err
	}
	if err := p.install(data); err != nil {
		return err
	}
	p.loaded = true
	p.writeCache(data)
	if p.logger != nil {
		p.logger.Info("holiday data refreshed",
			logging.Field{Key: "holidays", Value: len(p.holidays)},
			logging.Field{Key: "source", Value: p.cfg.SourceURL})
	}
	return nil
}

// All returns every known holiday sorted by date.
func (p *Provider) All(ctx context.Context) ([]Holiday, error) {
	if err := p.Load(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Holiday, len(p.holidays))
	copy(out, p.holidays)
	return out, nil
}

// Range returns the holidays with from <= date <= to, sorted by date.
func (p *Provider) Range(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	all, err := p.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []Holiday
	for _, h := range all {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// IsHoliday reports whether the given day is a national holiday.
func (p *Provider) IsHoliday(ctx context.Context, day time.Time) (Holiday, bool, error) {
	if err := p.Load(ctx); err != nil {
		return Holiday{}, false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.byDate[day.Format("2006-01-02")]
	return h, ok, nil
}

func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building holiday request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching holiday data from %s: %w", p.cfg.SourceURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching holiday data from %s: unexpected status %d", p.cfg.SourceURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading holiday response: %w", err)
	}
	return body, nil
}

// csvRecord maps the Cabinet Office column headers.
type csvRecord struct {
	Date csvDate `csv:"国民の祝日・休日月日"`
	Name string  `csv:"国民の祝日・休日名称"`
}

type csvDate struct {
	time.Time
}

func (d *csvDate) UnmarshalCSV(s string) error {
	t, err := time.Parse("2006/1/2", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d csvDate) MarshalCSV() (string, error) {
	return d.Format("2006/1/2"), nil
}

// install parses decoded CSV text and replaces the in-memory data.
func (p *Provider) install(data []byte) error {
	var rows []csvRecord
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return fmt.Errorf("parsing holiday csv: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("holiday csv contains no rows")
	}

	holidays := make([]Holiday, 0, len(rows))
	byDate := make(map[string]Holiday, len(rows))
	for _, r := range rows {
		h := Holiday{Date: r.Date.Time, Name: r.Name}
		holidays = append(holidays, h)
		byDate[h.Date.Format("2006-01-02")] = h
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })

	p.holidays = holidays
	p.byDate = byDate
	return nil
}

// toUTF8 normalizes the raw bytes. Valid UTF-8 passes through; anything
// else is decoded as Shift_JIS, whose x/text table covers the CP932
// extensions the Cabinet Office file actually uses.
func toUTF8(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), japanese.ShiftJIS.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return decoded, nil
}

func (p *Provider) cachePath() string {
	if p.cfg.CacheDir == "" {
		return ""
	}
	return filepath.Join(p.cfg.CacheDir, "syukujitsu.csv")
}

// readCache returns the cached UTF-8 CSV when it exists and is younger
// than the TTL.
func (p *Provider) readCache() ([]byte, bool) {
	path := p.cachePath()
	if path == "" {
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > p.cfg.CacheTTL {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (p *Provider) writeCache(data []byte) {
	path := p.cachePath()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		if p.logger != nil {
			p.logger.Warn("creating holiday cache dir", logging.Field{Key: "error", Value: err})
		}
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil && p.logger != nil {
		p.logger.Warn("writing holiday cache", logging.Field{Key: "path", Value: path}, logging.Field{Key: "error", Value: err})
	}
}
