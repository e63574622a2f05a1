package insights

import "eco_gateway/internal/carbon"

// Grams of CO2eq per unit of each analogy.
const (
	gramsPerStreamingHour = 36.0
	gramsPerEmail         = 4.0
	gramsPerKmDriven      = 120.0
	gramsPerPhoneCharge   = 8.5
	gramsPerTreeYear      = 22000.0
)

// Equivalents expresses total carbon as everyday analogies.
type Equivalents struct {
	NetflixHours      float64 `json:"netflix_hours"`
	EmailsSent        float64 `json:"emails_sent"`
	KmCar             float64 `json:"km_car"`
	SmartphoneCharges float64 `json:"smartphone_charges"`
	TreesNeeded       float64 `json:"trees_needed"`
}

// Equivalents converts the snapshot's total carbon into analogies.
func (a *Analyzer) Equivalents() Equivalents {
	total := a.totalCarbon()
	return Equivalents{
		NetflixHours:      carbon.Round(total/gramsPerStreamingHour, 2),
		EmailsSent:        carbon.Round(total/gramsPerEmail, 0),
		KmCar:             carbon.Round(total/gramsPerKmDriven, 2),
		SmartphoneCharges: carbon.Round(total/gramsPerPhoneCharge, 1),
		TreesNeeded:       carbon.Round(total/gramsPerTreeYear, 3),
	}
}
