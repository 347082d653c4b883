package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	assert.NoError(t, p.Validate())
	assert.False(t, p.IsZero())
	assert.True(t, Profile{}.IsZero())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	p := Default()
	require.NoError(t, p.Set("training_days", "9"))
	assert.Error(t, p.Validate())

	p = Default()
	require.NoError(t, p.Set("experience_level", "elite"))
	assert.Error(t, p.Validate())

	p = Default()
	require.NoError(t, p.Set("goal", "Half Marathon"))
	assert.NoError(t, p.Validate())
}

func TestSet(t *testing.T) {
	p := Default()
	require.NoError(t, p.Set("age", "34"))
	require.NoError(t, p.Set("weight", "68.5"))
	require.NoError(t, p.Set("location", "  Kathmandu "))

	require.NotNil(t, p.Age)
	assert.Equal(t, 34, *p.Age)
	require.NotNil(t, p.Weight)
	assert.Equal(t, 68.5, *p.Weight)
	assert.Equal(t, "Kathmandu", p.Location)

	require.NoError(t, p.Set("weight", ""))
	assert.Nil(t, p.Weight)

	assert.Error(t, p.Set("age", "old"))
	assert.Error(t, p.Set("shoe_size", "44"))
}

func TestCloneIsDeep(t *testing.T) {
	p := Default()
	require.NoError(t, p.Set("height", "180"))
	c := p.Clone()
	*c.Height = 150
	assert.Equal(t, 180.0, *p.Height)
}

func TestJSONUsesSnakeCase(t *testing.T) {
	p := Default()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"experience_level":"beginner"`)
	assert.Contains(t, string(b), `"age":null`)

	var back Profile
	require.NoError(t, json.Unmarshal([]byte(`{"goal":"10K","weekly_mileage":25}`), &back))
	assert.Equal(t, "10K", back.Goal)
	require.NotNil(t, back.WeeklyMileage)
	assert.Equal(t, 25.0, *back.WeeklyMileage)
}

func TestLines(t *testing.T) {
	lines := Default().Lines()
	assert.Len(t, lines, len(Fields))
	assert.Contains(t, lines, "goal: 5K")
	assert.Contains(t, lines, "age: -")
}
