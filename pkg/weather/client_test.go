package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
)

func TestGetWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast" {
			http.NotFound(w, r)
			return
		}
		forecast := pkg.Forecast{
			Location: r.URL.Query().Get("location"),
			Days: []pkg.DailyConditions{
				{Date: time.Now(), TempC: 18.5, HumidityPct: 55, DaylightHours: 11},
			},
		}
		json.NewEncoder(w).Encode(forecast)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, logx.New("error"))
	forecast, err := c.GetWeather(context.Background(), "oslo", 7)
	if err != nil {
		t.Fatalf("GetWeather failed: %v", err)
	}
	if forecast.Location != "oslo" {
		t.Errorf("expected location oslo, got %q", forecast.Location)
	}
	if len(forecast.Days) != 1 {
		t.Errorf("expected 1 day, got %d", len(forecast.Days))
	}
}

func TestGetWeatherFailureMapsToProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, 200*time.Millisecond, logx.New("error"))
	_, err := c.GetWeather(context.Background(), "oslo", 7)
	if !errors.Is(err, pkg.ErrProviderTimeout) {
		t.Errorf("expected ErrProviderTimeout, got %v", err)
	}
}

func TestUnconfiguredClientReportsUnavailable(t *testing.T) {
	c := NewClient("", time.Second, logx.New("error"))
	if _, err := c.GetWeather(context.Background(), "oslo", 7); !errors.Is(err, pkg.ErrProviderTimeout) {
		t.Errorf("expected ErrProviderTimeout, got %v", err)
	}
	if _, err := c.GetSeasonalTransitions(context.Background(), "oslo"); !errors.Is(err, pkg.ErrProviderTimeout) {
		t.Errorf("expected ErrProviderTimeout, got %v", err)
	}
}

func TestGetSeasonalTransitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transitions := []pkg.SeasonalTransition{
			{Kind: "autumn_onset", Date: time.Now().AddDate(0, 1, 0), TempC: 14, Daylight: 10.5, Confidence: 0.8},
		}
		json.NewEncoder(w).Encode(transitions)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second, logx.New("error"))
	transitions, err := c.GetSeasonalTransitions(context.Background(), "oslo")
	if err != nil {
		t.Fatalf("GetSeasonalTransitions failed: %v", err)
	}
	if len(transitions) != 1 || transitions[0].Kind != "autumn_onset" {
		t.Errorf("unexpected transitions: %+v", transitions)
	}
}

func TestDefaultForecast(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	f := DefaultForecast("anywhere", 5, start)

	if !f.Default {
		t.Error("default forecast should be flagged")
	}
	if len(f.Days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(f.Days))
	}
	if !f.Days[4].Date.Equal(start.AddDate(0, 0, 4)) {
		t.Errorf("unexpected final date %v", f.Days[4].Date)
	}
}
