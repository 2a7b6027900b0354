package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type pollSettings struct {
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval"`
	Cooldown     Duration `json:"cooldown" yaml:"cooldown"`
}

func TestDuration_UnmarshalText(t *testing.T) {
	cases := map[string]time.Duration{
		"250ms": 250 * time.Millisecond,
		"12s":   12 * time.Second,
		"2m30s": 2*time.Minute + 30*time.Second,
		"1h":    time.Hour,
		"0s":    0,
	}

	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalText([]byte(in)))
			require.Equal(t, want, d.Duration)
		})
	}

	for _, bad := range []string{"", "12", "soon", "5 minutes"} {
		t.Run("invalid_"+bad, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(bad))
			require.ErrorContains(t, err, "invalid duration")
		})
	}
}

func TestDuration_ConfigFormats(t *testing.T) {
	want := pollSettings{
		PollInterval: NewDuration(2 * time.Second),
		Cooldown:     NewDuration(time.Minute),
	}

	t.Run("json", func(t *testing.T) {
		var got pollSettings
		require.NoError(t, json.Unmarshal([]byte(`{"poll_interval":"2s","cooldown":"1m"}`), &got))
		require.Equal(t, want, got)

		out, err := json.Marshal(got)
		require.NoError(t, err)
		require.JSONEq(t, `{"poll_interval":"2s","cooldown":"1m0s"}`, string(out))
	})

	t.Run("yaml", func(t *testing.T) {
		var got pollSettings
		require.NoError(t, yaml.Unmarshal([]byte("poll_interval: 2s\ncooldown: 1m\n"), &got))
		require.Equal(t, want, got)
	})

	t.Run("json rejects numbers", func(t *testing.T) {
		var got pollSettings
		require.Error(t, json.Unmarshal([]byte(`{"poll_interval":2000}`), &got))
	})
}

func TestDuration_JSONSchema(t *testing.T) {
	schema := Duration{}.JSONSchema()
	require.Equal(t, "string", schema.Type)
	require.Equal(t, "Duration", schema.Title)
	require.NotEmpty(t, schema.Examples)
}
