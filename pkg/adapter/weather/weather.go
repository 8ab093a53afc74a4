package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/boonscroll/pkg/domain"
)

// defaultBaseURL is the free open-meteo endpoint, no API key required
const defaultBaseURL = "https://api.open-meteo.com"

// errPermanent marks failures retrying cannot fix
var errPermanent = errors.New("permanent failure")

// Adapter produces one compass card per fetch with today's forecast for a
// configured location. Params: latitude, longitude, optional place label.
type Adapter struct {
	baseURL   string
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// Config holds the adapter knobs
type Config struct {
	BaseURL   string        // default https://api.open-meteo.com
	Timeout   time.Duration // request budget, default 10s
	UserAgent string
}

// New creates a weather adapter
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "boonscroll/1.0 (personal feed reader)"
	}
	return &Adapter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
		now:       time.Now,
	}
}

// Supports reports adapter capabilities; a single-location forecast has no
// subsources to narrow
func (a *Adapter) Supports(string) bool { return false }

// forecast mirrors the slice of the open-meteo response we consume
type forecast struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		TempMax          []float64 `json:"temperature_2m_max"`
		TempMin          []float64 `json:"temperature_2m_min"`
		PrecipitationMax []float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// FetchItems requests today's forecast and wraps it in a single raw item.
// The local id embeds the date, so re-fetches within one day dedupe to the
// same feed item.
func (a *Adapter) FetchItems(ctx context.Context, q domain.QueryConfig) ([]domain.RawItem, error) {
	if _, ok := q.Params["latitude"]; !ok {
		return nil, fmt.Errorf("query %s: latitude param is required", q.Name)
	}
	if _, ok := q.Params["longitude"]; !ok {
		return nil, fmt.Errorf("query %s: longitude param is required", q.Name)
	}
	lat := q.FloatParam("latitude", 0)
	lon := q.FloatParam("longitude", 0)
	place := q.StringParam("place")
	if place == "" {
		place = "home"
	}

	fc, err := a.fetchForecast(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	ts := now
	item := domain.RawItem{
		LocalID:   fmt.Sprintf("forecast-%s-%s", slug(place), now.Format("2006-01-02")),
		Title:     fmt.Sprintf("Weather for %s: %s, %.0f°C", place, condition(fc.Current.WeatherCode), fc.Current.Temperature),
		Body:      describe(fc),
		Timestamp: &ts,
		Meta: map[string]any{
			"place":       place,
			"temperature": fc.Current.Temperature,
			"wind":        fc.Current.WindSpeed,
			"weatherCode": fc.Current.WeatherCode,
		},
	}
	if len(fc.Daily.TempMax) > 0 {
		item.Meta["high"] = fc.Daily.TempMax[0]
	}
	if len(fc.Daily.TempMin) > 0 {
		item.Meta["low"] = fc.Daily.TempMin[0]
	}
	if len(fc.Daily.PrecipitationMax) > 0 {
		item.Meta["precipitation"] = fc.Daily.PrecipitationMax[0]
	}
	return []domain.RawItem{item}, nil
}

// fetchForecast calls the forecast endpoint, retrying transient failures
func (a *Adapter) fetchForecast(ctx context.Context, lat, lon float64) (forecast, error) {
	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.4f", lat))
	query.Set("longitude", fmt.Sprintf("%.4f", lon))
	query.Set("current", "temperature_2m,weather_code,wind_speed_10m")
	query.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	query.Set("timezone", "auto")
	query.Set("forecast_days", "1")
	u := a.baseURL + "/v1/forecast?" + query.Encode()

	var fc forecast
	retrier := repeater.NewBackoff(3, 100*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if rerr != nil {
			return fmt.Errorf("%w: create request: %v", errPermanent, rerr)
		}
		req.Header.Set("User-Agent", a.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, derr := a.client.Do(req)
		if derr != nil {
			return fmt.Errorf("fetch forecast: %w", derr)
		}
		defer resp.Body.Close() //nolint:errcheck // read-side close, nothing to handle

		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return fmt.Errorf("%w: status %d from forecast endpoint", errPermanent, resp.StatusCode)
			}
			return fmt.Errorf("status %d from forecast endpoint", resp.StatusCode)
		}

		fc = forecast{} // fresh target on every attempt
		if jerr := json.NewDecoder(resp.Body).Decode(&fc); jerr != nil {
			return fmt.Errorf("%w: decode forecast: %v", errPermanent, jerr)
		}
		return nil
	}, errPermanent)
	if err != nil {
		return forecast{}, err
	}
	return fc, nil
}

// describe renders the card body from whatever daily fields came back
func describe(fc forecast) string {
	var b strings.Builder
	if len(fc.Daily.TempMax) > 0 && len(fc.Daily.TempMin) > 0 {
		fmt.Fprintf(&b, "High %.0f°C, low %.0f°C.", fc.Daily.TempMax[0], fc.Daily.TempMin[0])
	}
	if len(fc.Daily.PrecipitationMax) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Precipitation chance %.0f%%.", fc.Daily.PrecipitationMax[0])
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "Wind %.0f km/h.", fc.Current.WindSpeed)
	return b.String()
}

// conditions maps WMO weather interpretation codes to short labels
var conditions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "drizzle",
	55: "dense drizzle",
	61: "light rain",
	63: "rain",
	65: "heavy rain",
	71: "light snow",
	73: "snow",
	75: "heavy snow",
	80: "rain showers",
	81: "heavy rain showers",
	82: "violent rain showers",
	95: "thunderstorm",
	96: "thunderstorm with hail",
	99: "thunderstorm with heavy hail",
}

func condition(code int) string {
	if c, ok := conditions[code]; ok {
		return c
	}
	return fmt.Sprintf("weather code %d", code)
}

// slug turns a place label into an id-safe token
func slug(place string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(place)), " ", "-")
}
