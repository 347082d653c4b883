package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Profile holds the personalization fields sent alongside every chat message.
// Optional numeric fields are pointers so "not provided" survives a JSON round trip.
type Profile struct {
	Name              string   `json:"name"`
	Age               *int     `json:"age" validate:"omitempty,min=5,max=120"`
	Weight            *float64 `json:"weight" validate:"omitempty,gt=0,lte=400"`
	Height            *float64 `json:"height" validate:"omitempty,gt=0,lte=272"`
	ExperienceLevel   string   `json:"experience_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	WeeklyMileage     *float64 `json:"weekly_mileage" validate:"omitempty,gte=0,lte=500"`
	Goal              string   `json:"goal" validate:"omitempty,oneof=5K 10K 'Half Marathon' Marathon Fitness"`
	DietaryPreference string   `json:"dietary_preference" validate:"omitempty,oneof=none vegetarian vegan pescatarian"`
	TrainingDays      int      `json:"training_days" validate:"omitempty,min=1,max=7"`
	Location          string   `json:"location" validate:"max=120"`
}

var validate = validator.New()

// Default returns the profile a new user starts with.
func Default() Profile {
	return Profile{
		ExperienceLevel:   "beginner",
		Goal:              "5K",
		DietaryPreference: "none",
		TrainingDays:      3,
	}
}

// Validate checks field ranges and enumerations.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

// IsZero reports whether no field has been filled in.
func (p Profile) IsZero() bool {
	return p == Profile{}
}

// Clone returns a deep copy so callers can hand out snapshots.
func (p Profile) Clone() Profile {
	c := p
	if p.Age != nil {
		v := *p.Age
		c.Age = &v
	}
	c.Weight = cloneFloat(p.Weight)
	c.Height = cloneFloat(p.Height)
	c.WeeklyMileage = cloneFloat(p.WeeklyMileage)
	return c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Fields lists the settable keys, in display order.
var Fields = []string{
	"name", "age", "weight", "height", "experience_level",
	"weekly_mileage", "goal", "dietary_preference", "training_days", "location",
}

// Set assigns a field by its JSON key. An empty value clears optional numbers.
func (p *Profile) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "name":
		p.Name = value
	case "age":
		if value == "" {
			p.Age = nil
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("age must be a whole number: %w", err)
		}
		p.Age = &n
	case "weight":
		return setFloat(&p.Weight, key, value)
	case "height":
		return setFloat(&p.Height, key, value)
	case "weekly_mileage":
		return setFloat(&p.WeeklyMileage, key, value)
	case "experience_level":
		p.ExperienceLevel = value
	case "goal":
		p.Goal = value
	case "dietary_preference":
		p.DietaryPreference = value
	case "training_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("training_days must be a whole number: %w", err)
		}
		p.TrainingDays = n
	case "location":
		p.Location = value
	default:
		return fmt.Errorf("unknown profile field %q", key)
	}
	return nil
}

func setFloat(dst **float64, key, value string) error {
	if value == "" {
		*dst = nil
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number: %w", key, err)
	}
	*dst = &f
	return nil
}

// Lines renders the profile as "key: value" rows for terminal display.
func (p Profile) Lines() []string {
	return []string{
		"name: " + orDash(p.Name),
		"age: " + intOrDash(p.Age),
		"weight: " + floatOrDash(p.Weight, "kg"),
		"height: " + floatOrDash(p.Height, "cm"),
		"experience_level: " + orDash(p.ExperienceLevel),
		"weekly_mileage: " + floatOrDash(p.WeeklyMileage, "km"),
		"goal: " + orDash(p.Goal),
		"dietary_preference: " + orDash(p.DietaryPreference),
		"training_days: " + strconv.Itoa(p.TrainingDays),
		"location: " + orDash(p.Location),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func intOrDash(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func floatOrDash(f *float64, unit string) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64) + " " + unit
}
