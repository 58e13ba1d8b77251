package matching

import (
	"sort"
	"strings"
	"time"

	"github.com/shiftlane/backend/internal/geo"
	"github.com/shiftlane/backend/internal/models"
)

// Weight table for the total score. The sub-scores are each normalized to
// 0-100 before weighting, so the total stays in 0-100.
const (
	WeightSkills       = 0.40
	WeightProximity    = 0.25
	WeightAvailability = 0.20
	WeightExperience   = 0.10
	WeightRating       = 0.05
)

const (
	proximityFullKm = 2.0
	proximityZeroKm = 50.0
	// Sub-score when either side has no coordinates.
	proximityNeutral = 50.0

	experienceCapMonths = 24
	ratingScale         = 5.0
)

type Score struct {
	WorkerID     string  `json:"worker_id"`
	Total        float64 `json:"total"`
	Skills       float64 `json:"skills"`
	Proximity    float64 `json:"proximity"`
	Availability float64 `json:"availability"`
	Experience   float64 `json:"experience"`
	Rating       float64 `json:"rating"`
}

// ScoreWorker computes the match score for one worker against one shift. It is
// read-only over both snapshots and safe to call repeatedly.
func ScoreWorker(worker models.WorkerProfile, shift models.Shift) Score {
	s := Score{
		WorkerID:     worker.ID,
		Skills:       skillsSubScore(worker.Skills, shift.RequiredSkills),
		Proximity:    proximitySubScore(worker, shift),
		Availability: availabilitySubScore(worker.Availability, shift),
		Experience:   experienceSubScore(worker.IndustryMonths, shift.Industry),
		Rating:       ratingSubScore(worker.Rating),
	}
	s.Total = s.Skills*WeightSkills +
		s.Proximity*WeightProximity +
		s.Availability*WeightAvailability +
		s.Experience*WeightExperience +
		s.Rating*WeightRating
	return s
}

type RankedApplicant struct {
	Application models.ShiftApplication `json:"application"`
	Worker      models.WorkerProfile    `json:"worker"`
	Score       Score                   `json:"score"`
}

// Rank orders applicants for display: higher total first, then higher rating,
// then earlier application. Ranking only affects which applications are
// surfaced for decision, never the accept order itself.
func Rank(applicants []RankedApplicant) []RankedApplicant {
	out := make([]RankedApplicant, len(applicants))
	copy(out, applicants)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score.Total != out[j].Score.Total {
			return out[i].Score.Total > out[j].Score.Total
		}
		if out[i].Worker.Rating != out[j].Worker.Rating {
			return out[i].Worker.Rating > out[j].Worker.Rating
		}
		return out[i].Application.AppliedAt.Before(out[j].Application.AppliedAt)
	})
	return out
}

func skillsSubScore(workerSkills, requiredSkills []string) float64 {
	if len(requiredSkills) == 0 {
		return 100
	}
	have := map[string]bool{}
	for _, s := range workerSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = true
	}
	matched := 0
	for _, s := range requiredSkills {
		if have[strings.ToLower(strings.TrimSpace(s))] {
			matched++
		}
	}
	return 100 * float64(matched) / float64(len(requiredSkills))
}

func proximitySubScore(worker models.WorkerProfile, shift models.Shift) float64 {
	if worker.Lat == nil || worker.Lon == nil || shift.Lat == nil || shift.Lon == nil {
		return proximityNeutral
	}
	dist := geo.DistanceKm(*worker.Lat, *worker.Lon, *shift.Lat, *shift.Lon)
	switch {
	case dist <= proximityFullKm:
		return 100
	case dist >= proximityZeroKm:
		return 0
	default:
		return 100 * (proximityZeroKm - dist) / (proximityZeroKm - proximityFullKm)
	}
}

func availabilitySubScore(windows []models.AvailabilityWindow, shift models.Shift) float64 {
	shiftStart := minuteOfDay(shift.StartTime)
	shiftEnd := minuteOfDay(shift.EndTime)
	if shiftEnd <= shiftStart {
		// Overnight shift: treat the end as past midnight.
		shiftEnd += 24 * 60
	}
	shiftLen := shiftEnd - shiftStart

	best := 0
	for _, w := range windows {
		if w.Weekday != shift.StartTime.Weekday() {
			continue
		}
		overlap := min(w.EndMinute, shiftEnd) - max(w.StartMinute, shiftStart)
		if overlap > best {
			best = overlap
		}
	}
	if best >= shiftLen {
		return 100
	}
	if best <= 0 {
		return 0
	}
	return 100 * float64(best) / float64(shiftLen)
}

func experienceSubScore(industryMonths map[string]int, industry string) float64 {
	months := industryMonths[strings.ToLower(strings.TrimSpace(industry))]
	if months >= experienceCapMonths {
		return 100
	}
	if months <= 0 {
		return 0
	}
	return 100 * float64(months) / float64(experienceCapMonths)
}

func ratingSubScore(rating float64) float64 {
	if rating <= 0 {
		return 0
	}
	if rating >= ratingScale {
		return 100
	}
	return 100 * rating / ratingScale
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
