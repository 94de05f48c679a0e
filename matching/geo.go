package matching

import (
	"math"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two fixes in kilometres.
func Haversine(a, b entity.Position) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// travelProfile is the assumed average speed and preparation time of a tier
type travelProfile struct {
	speedKmh float64
	prepMin  int
}

var travelProfiles = map[entity.Urgency]travelProfile{
	entity.UrgencyEmergency: {speedKmh: 50, prepMin: 2},
	entity.UrgencyUrgent:    {speedKmh: 40, prepMin: 5},
	entity.UrgencyNormal:    {speedKmh: 30, prepMin: 10},
}

// EstimateArrival returns minutes until a provider distanceKm away can be on site.
// Unknown tiers are treated as normal.
func EstimateArrival(distanceKm float64, urgency entity.Urgency) int {
	p, ok := travelProfiles[urgency]
	if !ok {
		p = travelProfiles[entity.UrgencyNormal]
	}
	return int(math.Ceil(distanceKm/p.speedKmh*60)) + p.prepMin
}
