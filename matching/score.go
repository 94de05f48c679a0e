package matching

import (
	"math"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

// Weights of the composite match score. They sum to 1.
const (
	ProximityWeight    = 0.30
	RatingWeight       = 0.25
	ExperienceWeight   = 0.20
	VerificationWeight = 0.15
	UrgencyWeight      = 0.10
)

// experienceCeiling is the completed-job count that earns full experience credit.
const experienceCeiling = 50

// Factors are the inputs of one candidate's score
type Factors struct {
	DistanceKm    float64
	MaxDistanceKm float64
	Rating        float64
	CompletedJobs int
	Verified      bool
	Urgency       entity.Urgency
}

// ProximityScore falls linearly from 100 at the origin to 0 at maxDistanceKm.
func ProximityScore(distanceKm, maxDistanceKm float64) float64 {
	if maxDistanceKm <= 0 {
		return 0
	}
	return clamp(100 * (1 - distanceKm/maxDistanceKm))
}

// RatingScore maps a 0-5 star rating onto 0-100.
func RatingScore(rating float64) float64 {
	return clamp(rating / 5 * 100)
}

func ExperienceScore(completedJobs int) float64 {
	return clamp(float64(completedJobs) / experienceCeiling * 100)
}

func VerificationScore(verified bool) float64 {
	if verified {
		return 100
	}
	return 0
}

// UrgencyBonus rewards short distances on emergency and urgent requests only.
func UrgencyBonus(urgency entity.Urgency, distanceKm float64) float64 {
	switch urgency {
	case entity.UrgencyEmergency:
		switch {
		case distanceKm <= 2:
			return 100
		case distanceKm <= 5:
			return 50
		}
	case entity.UrgencyUrgent:
		switch {
		case distanceKm <= 3:
			return 70
		case distanceKm <= 6:
			return 30
		}
	}
	return 0
}

// Score combines the weighted parts and rounds to the nearest integer in [0, 100].
func Score(f Factors) int {
	total := ProximityWeight*ProximityScore(f.DistanceKm, f.MaxDistanceKm) +
		RatingWeight*RatingScore(f.Rating) +
		ExperienceWeight*ExperienceScore(f.CompletedJobs) +
		VerificationWeight*VerificationScore(f.Verified) +
		UrgencyWeight*UrgencyBonus(f.Urgency, f.DistanceKm)
	return int(math.Round(clamp(total)))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
