package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/index"
)

// ForecastClient fetches current multi-metric conditions from the
// Open-Meteo forecast API. Calls go through a circuit breaker so a flaky
// upstream cannot stall every scheduled cycle.
type ForecastClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type currentResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   struct {
		Time               string  `json:"time"`
		Temperature2M      float64 `json:"temperature_2m"`
		RelativeHumidity2M float64 `json:"relative_humidity_2m"`
		PressureMSL        float64 `json:"pressure_msl"`
		Precipitation      float64 `json:"precipitation"`
		WindSpeed10M       float64 `json:"wind_speed_10m"`
		Visibility         float64 `json:"visibility"` // meters
		CloudCover         float64 `json:"cloud_cover"`
	} `json:"current"`
}

// NewForecastClient creates a forecast client.
func NewForecastClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ForecastClient {
	settings := gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("client", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &ForecastClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// FetchCurrent returns the current observation for the given coordinates.
// Visibility is converted from meters to kilometers to match the
// calculator's reference ranges.
func (c *ForecastClient) FetchCurrent(ctx context.Context, region string, lat, lon float64) (index.Observation, error) {
	url := fmt.Sprintf(
		"%s/forecast?latitude=%.4f&longitude=%.4f&current=temperature_2m,relative_humidity_2m,pressure_msl,precipitation,wind_speed_10m,visibility,cloud_cover",
		c.baseURL, lat, lon)

	body, err := c.get(ctx, url)
	if err != nil {
		return index.Observation{}, fmt.Errorf("failed to fetch current conditions for %s: %w", region, err)
	}

	var response currentResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return index.Observation{}, fmt.Errorf("failed to parse response for %s: %w", region, err)
	}

	obsTime, err := time.Parse("2006-01-02T15:04", response.Current.Time)
	if err != nil {
		obsTime = time.Now().UTC().Truncate(time.Hour)
	}

	return index.Observation{
		Region: region,
		Time:   obsTime,
		Metrics: map[string]float64{
			"temperature":   response.Current.Temperature2M,
			"humidity":      response.Current.RelativeHumidity2M,
			"pressure":      response.Current.PressureMSL,
			"precipitation": response.Current.Precipitation,
			"wind_speed":    response.Current.WindSpeed10M,
			"visibility":    response.Current.Visibility / 1000,
			"cloud_cover":   response.Current.CloudCover,
		},
	}, nil
}

func (c *ForecastClient) get(ctx context.Context, url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
