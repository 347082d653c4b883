package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

// WeatherTool reads current conditions and a short forecast from a wttr.in
// compatible endpoint and turns them into running advice.
type WeatherTool struct {
	baseURL    string
	httpClient *http.Client
}

func NewWeatherTool(baseURL string, httpClient *http.Client) *WeatherTool {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &WeatherTool{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (w *WeatherTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name: "get_weather",
		Description: "Get current weather and a 3-day forecast for a location to help plan runs. " +
			"Use before recommending a workout or clothing for a specific day.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"location": {Type: genai.TypeString, Description: `City name, e.g. "London" or "Kathmandu"`},
			},
			Required: []string{"location"},
		},
	}
}

func (w *WeatherTool) Call(ctx context.Context, args map[string]any) (string, error) {
	location := stringArg(args, "location", "")
	if location == "" {
		return "", fmt.Errorf("missing required argument location")
	}

	report, err := w.fetch(ctx, location)
	if err != nil {
		return "", err
	}
	return report.Format(location), nil
}

// wttr.in's j1 format encodes every number as a string.
type wttrDesc struct {
	Value string `json:"value"`
}

type wttrCondition struct {
	TempC         string     `json:"temp_C"`
	HourlyTempC   string     `json:"tempC"`
	FeelsLikeC    string     `json:"FeelsLikeC"`
	Humidity      string     `json:"humidity"`
	WindspeedKmph string     `json:"windspeedKmph"`
	ChanceOfRain  string     `json:"chanceofrain"`
	WeatherDesc   []wttrDesc `json:"weatherDesc"`
}

type wttrDay struct {
	Date   string          `json:"date"`
	Hourly []wttrCondition `json:"hourly"`
}

type wttrResponse struct {
	CurrentCondition []wttrCondition `json:"current_condition"`
	Weather          []wttrDay       `json:"weather"`
}

// Conditions is one observation normalised to numbers.
type Conditions struct {
	TempC        int
	FeelsLikeC   int
	Humidity     int
	WindKmph     int
	ChanceOfRain int
	Description  string
}

type ForecastDay struct {
	Date time.Time
	Noon Conditions
}

type WeatherReport struct {
	Current  Conditions
	Forecast []ForecastDay
}

func (w *WeatherTool) fetch(ctx context.Context, location string) (*WeatherReport, error) {
	endpoint := fmt.Sprintf("%s/%s?format=j1", w.baseURL, url.PathEscape(location))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not get weather for %s (status %d), check the city name", location, resp.StatusCode)
	}

	var raw wttrResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(raw.CurrentCondition) == 0 {
		return nil, fmt.Errorf("weather response for %s has no current conditions", location)
	}

	report := &WeatherReport{Current: raw.CurrentCondition[0].normalize(raw.CurrentCondition[0].TempC)}
	for i, day := range raw.Weather {
		if i == 3 {
			break
		}
		if len(day.Hourly) == 0 {
			continue
		}
		// Index 4 of the 3-hourly series is midday.
		noon := day.Hourly[0]
		if len(day.Hourly) > 4 {
			noon = day.Hourly[4]
		}
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}
		report.Forecast = append(report.Forecast, ForecastDay{Date: date, Noon: noon.normalize(noon.HourlyTempC)})
	}
	return report, nil
}

func (c wttrCondition) normalize(temp string) Conditions {
	desc := ""
	if len(c.WeatherDesc) > 0 {
		desc = strings.TrimSpace(c.WeatherDesc[0].Value)
	}
	return Conditions{
		TempC:        atoi(temp),
		FeelsLikeC:   atoi(c.FeelsLikeC),
		Humidity:     atoi(c.Humidity),
		WindKmph:     atoi(c.WindspeedKmph),
		ChanceOfRain: atoi(c.ChanceOfRain),
		Description:  desc,
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func (r WeatherReport) Format(location string) string {
	c := r.Current
	var b strings.Builder
	fmt.Fprintf(&b, "🌤️ WEATHER FOR %s\n\n", strings.ToUpper(location))
	fmt.Fprintf(&b, "CURRENT CONDITIONS:\n")
	fmt.Fprintf(&b, "• Conditions: %s\n", c.Description)
	fmt.Fprintf(&b, "• Temperature: %d°C (feels like %d°C)\n", c.TempC, c.FeelsLikeC)
	fmt.Fprintf(&b, "• Humidity: %d%%\n", c.Humidity)
	fmt.Fprintf(&b, "• Wind: %d km/h\n\n", c.WindKmph)
	b.WriteString(RunningRecommendation(c))
	b.WriteString("\n")

	if len(r.Forecast) > 0 {
		b.WriteString("\n📅 FORECAST FOR PLANNING:\n")
		for _, day := range r.Forecast {
			n := day.Noon
			rain := ""
			if n.ChanceOfRain > 20 {
				rain = fmt.Sprintf(" | Rain chance: %d%%", n.ChanceOfRain)
			}
			fmt.Fprintf(&b, "\n%s:\n", day.Date.Format("Monday, Jan 02"))
			fmt.Fprintf(&b, "  • %s, %d°C (feels %d°C)\n", n.Description, n.TempC, n.FeelsLikeC)
			fmt.Fprintf(&b, "  • Humidity: %d%% | Wind: %d km/h%s\n", n.Humidity, n.WindKmph, rain)
			fmt.Fprintf(&b, "  • Best time to run: %s\n", BestRunTime(n.TempC))
		}
	}
	return b.String()
}

// RunningRecommendation grades conditions for an outdoor run.
func RunningRecommendation(c Conditions) string {
	var recs, warnings []string

	switch t := c.TempC; {
	case t < 0:
		warnings = append(warnings, "⚠️ Very cold - risk of hypothermia")
		recs = append(recs, "Wear multiple layers, cover extremities")
	case t < 10:
		recs = append(recs, "Cool weather - good for performance, wear layers")
	case t <= 15:
		recs = append(recs, "✅ Ideal running temperature!")
	case t <= 20:
		recs = append(recs, "✅ Great conditions for running")
	case t <= 25:
		recs = append(recs, "Warm - stay hydrated, consider early morning run")
	case t <= 30:
		warnings = append(warnings, "⚠️ Hot conditions - reduce intensity")
		recs = append(recs, "Run early morning or evening, bring water")
	default:
		warnings = append(warnings, "🛑 Dangerous heat - consider indoor workout")
		recs = append(recs, "If you must run: dawn only, hydrate heavily")
	}

	switch {
	case c.Humidity > 80:
		warnings = append(warnings, "⚠️ High humidity - sweat won't evaporate well")
		recs = append(recs, "Reduce pace, hydrate extra")
	case c.Humidity < 30:
		recs = append(recs, "Low humidity - hydrate well")
	}

	switch {
	case c.WindKmph > 30:
		warnings = append(warnings, "⚠️ Strong winds - running will be harder")
		recs = append(recs, "Start into the wind, return with it at your back")
	case c.WindKmph > 20:
		recs = append(recs, "Moderate wind - factor into your route planning")
	}

	desc := strings.ToLower(c.Description)
	if strings.Contains(desc, "rain") || strings.Contains(desc, "drizzle") {
		recs = append(recs, "Wet conditions - wear visibility gear, avoid slippery surfaces")
	}
	if strings.Contains(desc, "thunder") || strings.Contains(desc, "storm") {
		warnings = append(warnings, "🛑 Storm conditions - DO NOT run outdoors")
	}
	if strings.Contains(desc, "snow") {
		warnings = append(warnings, "⚠️ Snow - watch for ice, shorten stride")
	}

	var b strings.Builder
	b.WriteString("🏃 RUNNING RECOMMENDATION:\n")
	if len(warnings) > 0 {
		b.WriteString(strings.Join(warnings, "\n"))
		b.WriteString("\n")
	}
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• " + r)
	}
	return b.String()
}

func BestRunTime(tempC int) string {
	switch {
	case tempC > 25:
		return "Early morning (5-7 AM) or evening (after 6 PM)"
	case tempC > 20:
		return "Morning (6-9 AM) or evening (5-7 PM)"
	case tempC < 5:
		return "Midday (11 AM - 2 PM) when warmest"
	default:
		return "Anytime - conditions are favorable"
	}
}
