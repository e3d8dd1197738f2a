package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance_gate/internal/liveness"
	"attendance_gate/internal/location"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", s.Addr)
	assert.False(t, s.Database.Enabled())
	assert.Equal(t, time.UTC, s.Timezone)
	assert.Equal(t, location.DefaultConfig(), s.Location)
	assert.Equal(t, location.MockPolicyReject, s.Location.MockPolicy)
	assert.Equal(t, liveness.ThreeWay, s.Liveness.Challenges)
	assert.Equal(t, 2, s.Liveness.NumChallenges)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOCATION_MOCK_POLICY", "IGNORE")
	t.Setenv("LOCATION_MIN_ACCURACY_METERS", "1,5")
	t.Setenv("LIVENESS_CHALLENGE_SET", "four")
	t.Setenv("LIVENESS_MIRRORED_INPUT", "true")
	t.Setenv("LIVENESS_TIMEOUT", "40s")
	t.Setenv("ATTENDANCE_TIMEZONE", "Asia/Jakarta")
	t.Setenv("DB_HOST", "db.internal")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, location.MockPolicyIgnore, s.Location.MockPolicy)
	assert.InDelta(t, 1.5, s.Location.MinAccuracyMeters, 1e-9)
	assert.Equal(t, liveness.FourWay, s.Liveness.Challenges)
	assert.True(t, s.Liveness.MirroredInput)
	assert.Equal(t, 40*time.Second, s.Liveness.Timeout)
	assert.Equal(t, "Asia/Jakarta", s.Timezone.String())
	assert.True(t, s.Database.Enabled())
	assert.Contains(t, s.Database.DSN(), "host=db.internal")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"LOCATION_MOCK_POLICY":    "sometimes",
		"LIVENESS_CHALLENGE_SET":  "five",
		"LIVENESS_TIMEOUT":        "soon",
		"LIVENESS_MIRRORED_INPUT": "maybe",
		"REDIS_DB":                "one",
		"ATTENDANCE_TIMEZONE":     "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsOutOfRange(t *testing.T) {
	cases := map[string]string{
		"LIVENESS_TICK_INTERVAL":       "0s",
		"LIVENESS_TIMEOUT":             "-1s",
		"LIVENESS_NUM_CHALLENGES":      "0",
		"LIVENESS_REQUIRED_FRAMES":     "0",
		"LIVENESS_NO_FACE_FRAMES":      "0",
		"LIVENESS_MATCH_DISTANCE":      "-0.1",
		"LOCATION_MIN_VALID_READINGS":  "0",
		"LOCATION_STABILITY_THRESHOLD": "-1",
		"LOCATION_STABILITY_WINDOW":    "0",
		"LOCATION_MAX_SAMPLE_AGE":      "-5s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
