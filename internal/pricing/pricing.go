package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/shiftlane/backend/internal/models"
)

var ErrInvalidWindow = errors.New("shift end must be after start")

// Differential holds the day-of-week and time-of-day premiums for one industry.
type Differential struct {
	Weekend float64
	Evening float64
}

type LeadTimeTier struct {
	Within     time.Duration
	Multiplier float64
}

type Config struct {
	UrgencyMultipliers map[models.UrgencyLevel]float64

	// LeadTimeTiers must be sorted by Within ascending; the first tier the
	// shift start falls inside wins.
	LeadTimeTiers []LeadTimeTier

	DefaultDifferential   Differential
	IndustryDifferentials map[string]Differential

	EveningStartHour int
	MorningEndHour   int
}

func DefaultConfig() Config {
	return Config{
		UrgencyMultipliers: map[models.UrgencyLevel]float64{
			models.UrgencyNormal:   1.0,
			models.UrgencyUrgent:   1.25,
			models.UrgencyCritical: 1.5,
		},
		LeadTimeTiers: []LeadTimeTier{
			{Within: 6 * time.Hour, Multiplier: 1.35},
			{Within: 24 * time.Hour, Multiplier: 1.2},
		},
		DefaultDifferential: Differential{Weekend: 1.15, Evening: 1.10},
		IndustryDifferentials: map[string]Differential{
			"hospitality": {Weekend: 1.15, Evening: 1.15},
			"events":      {Weekend: 1.2, Evening: 1.15},
			"logistics":   {Weekend: 1.2, Evening: 1.10},
			"retail":      {Weekend: 1.1, Evening: 1.05},
		},
		EveningStartHour: 18,
		MorningEndHour:   6,
	}
}

type Input struct {
	BaseRate float64
	Start    time.Time
	End      time.Time
	Industry string
	Urgency  models.UrgencyLevel

	// Now is the pricing reference time. Passing it explicitly keeps the
	// computation reproducible for re-pricing on shift edits.
	Now time.Time
}

type Quote struct {
	BaseRate           float64 `json:"base_rate"`
	UrgencyMultiplier  float64 `json:"urgency_multiplier"`
	LeadTimeMultiplier float64 `json:"lead_time_multiplier"`
	WeekendMultiplier  float64 `json:"weekend_multiplier"`
	EveningMultiplier  float64 `json:"evening_multiplier"`
	DynamicRate        float64 `json:"dynamic_rate"`
	FinalRate          float64 `json:"final_rate"`
}

// DurationHours returns the shift length in fractional hours.
func DurationHours(start, end time.Time) (float64, error) {
	d := end.Sub(start)
	if d <= 0 {
		return 0, ErrInvalidWindow
	}
	return d.Hours(), nil
}

// Compute prices a shift. The urgency flag and the lead-time tier both express
// urgency, so the larger of the two applies rather than both stacking.
func Compute(cfg Config, in Input) (Quote, error) {
	if _, err := DurationHours(in.Start, in.End); err != nil {
		return Quote{}, err
	}
	if in.BaseRate < 0 {
		return Quote{}, errors.New("base rate must be non-negative")
	}

	urgencyMult, ok := cfg.UrgencyMultipliers[in.Urgency]
	if !ok {
		urgencyMult = cfg.UrgencyMultipliers[models.UrgencyNormal]
	}

	leadMult := 1.0
	lead := in.Start.Sub(in.Now)
	for _, tier := range cfg.LeadTimeTiers {
		if lead <= tier.Within {
			leadMult = tier.Multiplier
			break
		}
	}

	diff := cfg.DefaultDifferential
	if d, ok := cfg.IndustryDifferentials[in.Industry]; ok {
		diff = d
	}

	weekendMult := 1.0
	if wd := in.Start.Weekday(); wd == time.Saturday || wd == time.Sunday {
		weekendMult = diff.Weekend
	}

	eveningMult := 1.0
	if hour := in.Start.Hour(); hour >= cfg.EveningStartHour || hour < cfg.MorningEndHour {
		eveningMult = diff.Evening
	}

	demand := math.Max(urgencyMult, leadMult)
	dynamic := roundCents(in.BaseRate * demand * weekendMult * eveningMult)
	final := math.Max(dynamic, in.BaseRate)

	return Quote{
		BaseRate:           in.BaseRate,
		UrgencyMultiplier:  urgencyMult,
		LeadTimeMultiplier: leadMult,
		WeekendMultiplier:  weekendMult,
		EveningMultiplier:  eveningMult,
		DynamicRate:        dynamic,
		FinalRate:          final,
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
