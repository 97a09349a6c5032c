package engine

import (
	"context"
	"math"

	"github.com/couchcryptid/weathernft-service/internal/adminlog"
	"github.com/couchcryptid/weathernft-service/internal/aggregation"
	"github.com/couchcryptid/weathernft-service/internal/domain"
)

// WeatherReport is a sample plus its derived comfort figures.
type WeatherReport struct {
	domain.WeatherSample
	DewPoint  *float64 `json:"dewPoint"` // nil when humidity is zero
	HeatIndex float64  `json:"heatIndex"`
}

// CurrentWeather samples the weather at a coordinate without creating an
// event.
func (e *Engine) CurrentWeather(lat, lng float64) (WeatherReport, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return WeatherReport{}, err
	}
	sample := e.gen.Generate(lat, lng)
	report := WeatherReport{
		WeatherSample: sample,
		HeatIndex:     round1(domain.HeatIndex(sample.Temperature, sample.Humidity)),
	}
	if dp, err := domain.DewPoint(sample.Temperature, sample.Humidity); err == nil {
		dp = round1(dp)
		report.DewPoint = &dp
	}
	return report, nil
}

// MonitoredLocations lists the named locations the generator resolves.
func (e *Engine) MonitoredLocations() []domain.Location {
	return e.gen.MonitoredLocations()
}

// DewPoint returns the dew point in °C rounded to 0.01.
func (e *Engine) DewPoint(temperature, humidity float64) (float64, error) {
	dp, err := domain.DewPoint(temperature, humidity)
	if err != nil {
		return 0, err
	}
	return math.Round(dp*100) / 100, nil
}

// HeatIndex returns the apparent temperature in °C rounded to 0.01.
func (e *Engine) HeatIndex(temperature, humidity float64) float64 {
	return math.Round(domain.HeatIndex(temperature, humidity)*100) / 100
}

// Dashboard composes the admin dashboard. It never fails; unreachable
// sections are reported as degraded.
func (e *Engine) Dashboard(ctx context.Context) aggregation.DashboardView {
	return e.dashboard.Build(ctx)
}

// Models lists the AI service's algorithms with their local settings and
// the finish time of their latest completed retraining.
func (e *Engine) Models(ctx context.Context) ([]aggregation.AlgorithmView, error) {
	models, err := e.dashboard.Algorithms(ctx)
	if err != nil {
		return nil, err
	}
	last := e.retrain.lastCompleted()
	for i := range models {
		models[i].LastRetrained = last[models[i].Name]
	}
	return models, nil
}

// QueryLogs filters the admin log.
func (e *Engine) QueryLogs(q adminlog.Query) adminlog.Result {
	return e.logs.Query(q)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
