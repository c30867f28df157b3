package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitconn/packages/conn"
	"github.com/abdul-hamid-achik/hitconn/packages/security"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetAllowTrace())
	assert.Equal(t, 30*time.Second, c.TimeoutDuration())
	assert.Equal(t, conn.DefaultChunkSize, c.ChunkSize)
	assert.True(t, c.IsDefault())
	assert.NoError(t, c.Validate())
}

func TestGetters_NilMeansDefault(t *testing.T) {
	c := &Config{}
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetAllowTrace())
	assert.False(t, c.GetVerbose())
	assert.False(t, c.GetNoColor())
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.json", `{
		"timeout": 5000,
		"followRedirects": false,
		"headers": {"User-Agent": "hitconn"},
		"rateLimit": 2.5
	}`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, c.Timeout)
	assert.False(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL(), "unset fields keep their defaults")
	assert.Equal(t, "hitconn", c.Headers["User-Agent"])
	assert.Equal(t, 2.5, c.RateLimit)
	assert.False(t, c.IsDefault())
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yml", `
timeout: 1500
allowTrace: true
maxRedirects: 3
proxy: http://proxy.local:3128
output: json
logLevel: debug
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1500, c.Timeout)
	assert.True(t, c.GetAllowTrace())
	assert.Equal(t, 3, c.MaxRedirects)
	assert.Equal(t, "http://proxy.local:3128", c.Proxy)
	assert.Equal(t, "json", c.Output)
	assert.Equal(t, logrus.DebugLevel, c.Level())
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(writeFile(t, dir, "broken.json", `{"timeout": `))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, dir, "neg.yaml", "timeout: -1\n"))
	assert.ErrorContains(t, err, "timeout")

	_, err = LoadConfig(writeFile(t, dir, "out.yaml", "output: xml\n"))
	assert.ErrorContains(t, err, "unknown output")

	_, err = LoadConfig(writeFile(t, dir, "lvl.json", `{"logLevel": "loud"}`))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFindAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	c, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, c.IsDefault(), "no file means defaults")

	writeFile(t, dir, "hitconn.yaml", "count: 7\n")
	c, err = FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Count)

	writeFile(t, dir, ".hitconn.json", `{"count": 9}`)
	c, err = FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, c.Count, "json files are searched first")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1", "B": "2"}

	other := &Config{
		Timeout:         100,
		FollowRedirects: BoolPtr(false),
		Headers:         map[string]string{"B": "override"},
		Output:          "json",
	}

	merged := base.Merge(other)
	assert.Equal(t, 100, merged.Timeout)
	assert.False(t, merged.GetFollowRedirects())
	assert.True(t, merged.GetValidateSSL())
	assert.Equal(t, "json", merged.Output)
	assert.Equal(t, map[string]string{"A": "1", "B": "override"}, merged.Headers)
	assert.Equal(t, "2", base.Headers["B"], "merge does not touch the receiver")

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTripsByExtension(t *testing.T) {
	dir := t.TempDir()
	c := DefaultConfig()
	c.Proxy = "http://proxy:8080"
	c.AllowTrace = BoolPtr(true)

	for _, name := range []string{"out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, c.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err, name)
		assert.Equal(t, "http://proxy:8080", loaded.Proxy, name)
		assert.True(t, loaded.GetAllowTrace(), name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "proxy: http://proxy:8080")
}

func TestApply(t *testing.T) {
	c := DefaultConfig()
	c.FollowRedirects = BoolPtr(false)
	c.AllowTrace = BoolPtr(true)

	defaults := conn.NewDefaults()
	policy := security.DefaultPolicy()
	require.NoError(t, c.Apply(defaults, policy))

	assert.False(t, defaults.FollowRedirects())
	assert.NoError(t, policy.Check(security.GrantAllowTrace))
}

func TestApply_Denied(t *testing.T) {
	c := DefaultConfig()
	c.FollowRedirects = BoolPtr(false)

	defaults := conn.NewDefaults()
	err := c.Apply(defaults, security.NewPolicy())
	assert.ErrorIs(t, err, conn.ErrPermissionDenied)
	assert.True(t, defaults.FollowRedirects())

	c.FollowRedirects = BoolPtr(true)
	assert.NoError(t, c.Apply(defaults, security.NewPolicy()), "no change needs no grant")
}

func TestTransportOptions(t *testing.T) {
	assert.Len(t, DefaultConfig().TransportOptions(), 3)

	c := DefaultConfig()
	c.Proxy = "http://proxy"
	c.Headers = map[string]string{"X": "y"}
	c.RateLimit = 5
	c.MaxBodySize = 1024
	assert.Len(t, c.TransportOptions(), 7)
}

func TestLevel(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, logrus.WarnLevel, c.Level())
	c.LogLevel = "info"
	assert.Equal(t, logrus.InfoLevel, c.Level())
	c.Verbose = BoolPtr(true)
	assert.Equal(t, logrus.DebugLevel, c.Level())
}
