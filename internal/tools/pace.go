package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// PaceTool turns a recent run into pace, speed and race-time predictions.
type PaceTool struct{}

func (PaceTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "calculate_pace",
		Description: "Calculate running pace and predict race times from a recent run.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"distance_km":     {Type: genai.TypeNumber, Description: "Distance run in kilometers"},
				"time_minutes":    {Type: genai.TypeNumber, Description: "Time taken in minutes"},
				"target_distance": {Type: genai.TypeNumber, Description: "Optional target race distance in km"},
			},
			Required: []string{"distance_km", "time_minutes"},
		},
	}
}

func (PaceTool) Call(_ context.Context, args map[string]any) (string, error) {
	distance, err := requireNumber(args, "distance_km")
	if err != nil {
		return "", err
	}
	minutes, err := requireNumber(args, "time_minutes")
	if err != nil {
		return "", err
	}
	target, hasTarget, err := numberArg(args, "target_distance")
	if err != nil {
		return "", err
	}
	return PaceReport(distance, minutes, target, hasTarget && target > 0)
}

// PaceReport formats the pace analysis for a run of distance km in minutes.
func PaceReport(distance, minutes, target float64, withTarget bool) (string, error) {
	if distance <= 0 || minutes <= 0 {
		return "", fmt.Errorf("distance and time must be positive")
	}

	pace := minutes / distance
	paceMin := int(pace)
	paceSec := int((pace - float64(paceMin)) * 60)
	speed := distance / minutes * 60

	var b strings.Builder
	fmt.Fprintf(&b, "Pace Analysis:\n\n")
	fmt.Fprintf(&b, "⏱️ Your Stats:\n")
	fmt.Fprintf(&b, "- Distance: %.2f km\n", distance)
	fmt.Fprintf(&b, "- Time: %d min %d sec\n", int(minutes), int(math.Mod(minutes, 1)*60))
	fmt.Fprintf(&b, "- Pace: %d:%02d per km\n", paceMin, paceSec)
	fmt.Fprintf(&b, "- Speed: %.1f km/h\n\n", speed)
	fmt.Fprintf(&b, "🏆 Race Time Predictions (based on current pace):\n")
	fmt.Fprintf(&b, "- 5K: %s\n", FormatDuration(pace*5))
	fmt.Fprintf(&b, "- 10K: %s\n", FormatDuration(pace*10))
	fmt.Fprintf(&b, "- Half Marathon: %s\n", FormatDuration(pace*21.1))
	fmt.Fprintf(&b, "- Marathon: %s", FormatDuration(pace*42.2))

	if withTarget {
		fmt.Fprintf(&b, "\n\n🎯 Target %gkm: %s", target, FormatDuration(pace*target))
	}
	return b.String(), nil
}

// FormatDuration renders minutes as H:MM:SS, or M:SS under an hour.
func FormatDuration(minutes float64) string {
	hours := int(minutes / 60)
	mins := int(math.Mod(minutes, 60))
	secs := int(math.Mod(minutes*60, 60))

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
