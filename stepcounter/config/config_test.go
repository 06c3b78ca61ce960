package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stepcounting/sdk-golang/stepcounter/sensor"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func Test_NewFromFile(t *testing.T) {
	t.Run("json config is loaded", func(t *testing.T) {
		req := require.New(t)
		path := writeConfig(t, "stepcounter.json", `{
			"bridge": "legacy",
			"probeTimeout": "2s",
			"probeOnStart": true,
			"backgroundService": false,
			"metricsSourceId": "watch-1"
		}`)

		c, err := NewFromFile(path)
		req.NoError(err)
		req.Equal(sensor.BridgeLegacy, c.Bridge)
		req.Equal(2*time.Second, c.ProbeTimeout.Duration())
		req.True(c.ProbeOnStart)
		req.False(c.BackgroundServiceEnabled())
		req.Equal("watch-1", c.MetricsSourceId)
	})

	t.Run("yaml config is loaded", func(t *testing.T) {
		req := require.New(t)
		path := writeConfig(t, "stepcounter.yaml", "bridge: turbo\nprobeTimeout: 1500\n")

		c, err := NewFromFile(path)
		req.NoError(err)
		req.Equal(sensor.BridgeTurbo, c.Bridge)
		req.Equal(1500*time.Millisecond, c.ProbeTimeout.Duration())
		req.False(c.ProbeOnStart)
		req.True(c.BackgroundServiceEnabled())
	})

	t.Run("missing fields keep defaults", func(t *testing.T) {
		req := require.New(t)
		c, err := NewFromFile(writeConfig(t, "empty.json", `{}`))
		req.NoError(err)
		req.Equal(sensor.BridgeAuto, c.Bridge)
		req.Equal(DefaultProbeTimeout, c.ProbeTimeout.Duration())
	})

	t.Run("millisecond durations are accepted in json", func(t *testing.T) {
		c, err := NewFromFile(writeConfig(t, "ms.json", `{"probeTimeout": 250}`))
		require.NoError(t, err)
		require.Equal(t, 250*time.Millisecond, c.ProbeTimeout.Duration())
	})

	t.Run("symlinks are followed", func(t *testing.T) {
		req := require.New(t)
		target := writeConfig(t, "real.yml", "bridge: legacy\n")
		link := filepath.Join(t.TempDir(), "link.yml")
		req.NoError(os.Symlink(target, link))

		c, err := NewFromFile(link)
		req.NoError(err)
		req.Equal(sensor.BridgeLegacy, c.Bridge)
	})

	t.Run("bad input is rejected", func(t *testing.T) {
		for name, contents := range map[string]string{
			"bad-bridge.json":   `{"bridge": "bluetooth"}`,
			"bad-duration.json": `{"probeTimeout": "soon"}`,
			"bad-type.json":     `{"probeTimeout": true}`,
			"negative.yaml":     "probeTimeout: -1s\n",
			"broken.json":       `{"bridge":`,
		} {
			_, err := NewFromFile(writeConfig(t, name, contents))
			require.Error(t, err, name)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}

func Test_NewFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		t.Setenv(EnvFile, "")
		c, err := NewFromEnv()
		require.NoError(t, err)
		require.Equal(t, New(), c)
	})

	t.Run("file named by the environment", func(t *testing.T) {
		t.Setenv(EnvFile, writeConfig(t, "env.yaml", "probeOnStart: true\n"))
		c, err := NewFromEnv()
		require.NoError(t, err)
		require.True(t, c.ProbeOnStart)
	})
}

func Test_DurationMarshal(t *testing.T) {
	b, err := Duration(3 * time.Second).MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"3s"`, string(b))
}
