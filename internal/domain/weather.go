package domain

import "math"

const (
	magnusA = 17.27
	magnusB = 237.7 // °C

	// HeatIndexThreshold is the lowest temperature (°C) at which the Rothfusz
	// regression is applied.
	HeatIndexThreshold = 27.0
)

// Rothfusz regression coefficients, Celsius form.
const (
	hiC1 = -8.78469475556
	hiC2 = 1.61139411
	hiC3 = 2.33854883889
	hiC4 = -0.14611605
	hiC5 = -0.012308094
	hiC6 = -0.0164248277778
	hiC7 = 0.002211732
	hiC8 = 0.00072546
	hiC9 = -0.000003582
)

// DewPoint returns the Magnus approximation of the dew point in °C for an air
// temperature t (°C) and relative humidity rh (%).
func DewPoint(t, rh float64) (float64, error) {
	if rh <= 0 || math.IsNaN(rh) {
		return 0, &InvalidHumidityError{Humidity: rh}
	}
	alpha := (magnusA*t)/(magnusB+t) + math.Log(rh/100)
	return magnusB * alpha / (magnusA - alpha), nil
}

// HeatIndex returns the apparent temperature in °C. Below HeatIndexThreshold
// the regression is not valid and t is returned as is.
func HeatIndex(t, rh float64) float64 {
	if t < HeatIndexThreshold {
		return t
	}
	return hiC1 +
		hiC2*t +
		hiC3*rh +
		hiC4*t*rh +
		hiC5*t*t +
		hiC6*rh*rh +
		hiC7*t*t*rh +
		hiC8*t*rh*rh +
		hiC9*t*t*rh*rh
}
