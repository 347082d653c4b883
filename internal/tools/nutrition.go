package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// NutritionTool estimates energy needs and runner macros.
type NutritionTool struct{}

func (NutritionTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "calculate_nutrition",
		Description: "Calculate BMR, TDEE and macro recommendations for a runner.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"weight_kg": {Type: genai.TypeNumber, Description: "Body weight in kilograms"},
				"height_cm": {Type: genai.TypeNumber, Description: "Height in centimeters"},
				"age":       {Type: genai.TypeInteger, Description: "Age in years"},
				"gender":    {Type: genai.TypeString, Description: `"male" or "female"`},
				"activity_level": {
					Type:        genai.TypeString,
					Description: "Activity level",
					Enum:        []string{"sedentary", "light", "moderate", "active", "very_active"},
				},
			},
			Required: []string{"weight_kg", "height_cm", "age"},
		},
	}
}

func (NutritionTool) Call(_ context.Context, args map[string]any) (string, error) {
	weight, err := requireNumber(args, "weight_kg")
	if err != nil {
		return "", err
	}
	height, err := requireNumber(args, "height_cm")
	if err != nil {
		return "", err
	}
	age, err := requireNumber(args, "age")
	if err != nil {
		return "", err
	}
	n := CalculateNutrition(weight, height, age,
		stringArg(args, "gender", "male"),
		stringArg(args, "activity_level", "moderate"))
	return n.Report(), nil
}

// Nutrition is the result of a Mifflin-St Jeor estimate with runner macros.
type Nutrition struct {
	WeightKg float64
	BMR      float64
	TDEE     float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
	WaterMl  float64
}

func CalculateNutrition(weightKg, heightCm, age float64, gender, activity string) Nutrition {
	bmr := 10*weightKg + 6.25*heightCm - 5*age
	if strings.EqualFold(gender, "male") {
		bmr += 5
	} else {
		bmr -= 161
	}

	multiplier, ok := activityMultipliers[strings.ToLower(activity)]
	if !ok {
		multiplier = activityMultipliers["moderate"]
	}
	tdee := bmr * multiplier

	return Nutrition{
		WeightKg: weightKg,
		BMR:      bmr,
		TDEE:     tdee,
		ProteinG: weightKg * 1.6,  // g per kg for endurance athletes
		CarbsG:   tdee * 0.55 / 4, // 55% of energy
		FatG:     tdee * 0.25 / 9, // 25% of energy
		WaterMl:  weightKg * 35,
	}
}

func (n Nutrition) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nutrition Calculator Results:\n\n")
	fmt.Fprintf(&b, "📊 Basic Stats:\n")
	fmt.Fprintf(&b, "- BMR (Basal Metabolic Rate): %.0f calories/day\n", n.BMR)
	fmt.Fprintf(&b, "- TDEE (Total Daily Energy): %.0f calories/day\n\n", n.TDEE)
	fmt.Fprintf(&b, "🍽️ Recommended Daily Macros for Runners:\n")
	fmt.Fprintf(&b, "- Protein: %.0fg (%.0f cal)\n", n.ProteinG, n.ProteinG*4)
	fmt.Fprintf(&b, "- Carbohydrates: %.0fg (%.0f cal)\n", n.CarbsG, n.CarbsG*4)
	fmt.Fprintf(&b, "- Fat: %.0fg (%.0f cal)\n\n", n.FatG, n.FatG*9)
	fmt.Fprintf(&b, "💡 Tips:\n")
	fmt.Fprintf(&b, "- Eat carbs 2-3 hours before runs\n")
	fmt.Fprintf(&b, "- Protein within 30 min post-run for recovery\n")
	fmt.Fprintf(&b, "- Stay hydrated: aim for %.0fml water daily", n.WaterMl)
	return b.String()
}
