// Package synth generates the synthetic market series.
//
// Every value is a pure function of (timestamp, interval) and an immutable
// Model, so any boundary can be recomputed in isolation and repeated runs
// are byte-identical.
package synth

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"btc-data/internal/model"

	"gopkg.in/yaml.v3"
)

// Milestone pins the trend to a known price on a given date.
type Milestone struct {
	Date  time.Time `yaml:"date"`
	Price float64   `yaml:"price"`
}

// Band is a volatility era. It applies while progress through history is below Until.
type Band struct {
	Until     float64 `yaml:"until"`
	Amplitude float64 `yaml:"amplitude"` // fraction of trend, ±
	Turnover  float64 `yaml:"turnover"`  // daily volume as a fraction of market cap
}

// Scale multiplies band amplitudes per interval.
type Scale struct {
	Weekly   float64 `yaml:"1w"`
	Daily    float64 `yaml:"1d"`
	FourHour float64 `yaml:"4h"`
}

func (s Scale) For(iv model.Interval) float64 {
	switch iv {
	case model.Weekly:
		return s.Weekly
	case model.FourHour:
		return s.FourHour
	default:
		return s.Daily
	}
}

// Supply describes the issuance schedule.
type Supply struct {
	Genesis       float64       `yaml:"genesis"`
	Subsidy       float64       `yaml:"subsidy"`
	BlockInterval time.Duration `yaml:"block_interval"`
	HalvingBlocks int64         `yaml:"halving_blocks"`
	Cap           float64       `yaml:"cap"`
}

// Model holds every constant the generator depends on. Treat it as
// immutable once built; NewGenerator takes its own copy.
type Model struct {
	Inception    time.Time   `yaml:"inception"`
	EndOfHistory time.Time   `yaml:"end_of_history"`
	Seed         uint64      `yaml:"seed"`
	MinPrice     float64     `yaml:"min_price"`
	Milestones   []Milestone `yaml:"milestones"`
	Bands        []Band      `yaml:"bands"`
	Scale        Scale       `yaml:"scale"`
	Supply       Supply      `yaml:"supply"`
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultModel is the calibrated BTC/USD history.
func DefaultModel() Model {
	end := time.Date(2025, 10, 11, 20, 0, 0, 0, time.UTC)
	return Model{
		Inception:    day(2009, 1, 3),
		EndOfHistory: end,
		Seed:         0x5eed_b7c0_2009_0103,
		MinPrice:     1e-6,
		Milestones: []Milestone{
			{day(2009, 1, 3), 0.01},
			{day(2010, 7, 17), 0.05},
			{day(2011, 6, 8), 29.6},
			{day(2011, 11, 18), 2.0},
			{day(2013, 4, 9), 230},
			{day(2013, 12, 4), 1150},
			{day(2015, 1, 14), 172},
			{day(2017, 12, 17), 19500},
			{day(2018, 12, 15), 3200},
			{day(2021, 4, 14), 64800},
			{day(2021, 7, 20), 29800},
			{day(2021, 11, 10), 68900},
			{day(2022, 11, 21), 15700},
			{day(2024, 3, 14), 73700},
			{day(2024, 12, 17), 106000},
			{day(2025, 10, 6), 125000},
			{end, 112000},
		},
		Bands: []Band{
			{Until: 0.1, Amplitude: 0.5, Turnover: 0.02},
			{Until: 0.3, Amplitude: 0.3, Turnover: 0.03},
			{Until: 0.7, Amplitude: 0.2, Turnover: 0.04},
			{Until: 1, Amplitude: 0.15, Turnover: 0.03},
		},
		Scale: Scale{Weekly: 0.5, Daily: 1, FourHour: 1.5},
		Supply: Supply{
			Genesis:       50,
			Subsidy:       50,
			BlockInterval: 10 * time.Minute,
			HalvingBlocks: 210_000,
			Cap:           21_000_000,
		},
	}
}

// LoadModel overlays a YAML file on DefaultModel. Lists in the file replace
// the default lists wholesale.
func LoadModel(path string) (Model, error) {
	m := DefaultModel()
	b, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("read model %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Model{}, fmt.Errorf("parse model %q: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return Model{}, fmt.Errorf("model %q: %w", path, err)
	}
	return m, nil
}

// Validate checks the structural constraints the price and supply code rely on.
func (m Model) Validate() error {
	var errs []error
	if m.Inception.IsZero() || !m.EndOfHistory.After(m.Inception) {
		errs = append(errs, errors.New("end_of_history must follow inception"))
	}
	if !(m.MinPrice > 0) {
		errs = append(errs, errors.New("min_price must be positive"))
	}
	if len(m.Milestones) < 2 {
		errs = append(errs, errors.New("need at least two milestones"))
	}
	for i, ms := range m.Milestones {
		if !(ms.Price > 0) || math.IsInf(ms.Price, 0) {
			errs = append(errs, fmt.Errorf("milestone %d: price must be positive", i))
		}
		if i > 0 && !ms.Date.After(m.Milestones[i-1].Date) {
			errs = append(errs, fmt.Errorf("milestone %d: dates must be strictly increasing", i))
		}
	}
	if len(m.Bands) == 0 {
		errs = append(errs, errors.New("need at least one volatility band"))
	}
	for i, b := range m.Bands {
		if b.Amplitude < 0 || b.Amplitude >= 1 || b.Turnover < 0 {
			errs = append(errs, fmt.Errorf("band %d: amplitude must be in [0,1) and turnover non-negative", i))
		}
		if i > 0 && b.Until <= m.Bands[i-1].Until {
			errs = append(errs, fmt.Errorf("band %d: until must be increasing", i))
		}
	}
	if m.Scale.Weekly < 0 || m.Scale.Daily < 0 || m.Scale.FourHour < 0 {
		errs = append(errs, errors.New("scale factors must be non-negative"))
	}
	s := m.Supply
	if !(s.Genesis > 0) || s.Subsidy < 0 || s.BlockInterval <= 0 || s.HalvingBlocks <= 0 || s.Cap < s.Genesis {
		errs = append(errs, errors.New("supply: genesis>0, subsidy>=0, block_interval>0, halving_blocks>0, cap>=genesis"))
	}
	return errors.Join(errs...)
}

func (m Model) clone() Model {
	m.Milestones = slices.Clone(m.Milestones)
	m.Bands = slices.Clone(m.Bands)
	return m
}
