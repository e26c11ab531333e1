package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

type testOptions struct {
	Port int    `json:"port"`
	Name string `json:"name"`
	BaseOptions
}

func (o *testOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.Port, "port", o.Port, "")
	fs.StringVar(&o.Name, "name", o.Name, "")
}

func newTestOptions() *testOptions {
	return &testOptions{Port: 8080, Name: "default", BaseOptions: NewDefaultBaseOptions()}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseAndApplyConfigFile(t *testing.T) {
	path := writeConfig(t, "port: 9090\nname: from-file\nLogging:\n  verbosity: 3\n")
	o := newTestOptions()
	args := []string{"--config", path, "--name", "from-flag"}

	fs := pflag.NewFlagSet("", pflag.ContinueOnError)
	o.AddFlags(fs)
	o.addConfigFile(fs)
	o.addLogging(fs)
	require.NoError(t, fs.Parse(args))

	require.NoError(t, ParseAndApplyConfigFile(o, args))
	assert.Equal(t, 9090, o.Port)
	assert.Equal(t, "from-flag", o.Name, "flags take precedence over the file")
	assert.EqualValues(t, 3, o.Logging.Verbosity)
	assert.Equal(t, "text", o.Logging.Format)
}

func TestParseAndApplyConfigFileWithoutFile(t *testing.T) {
	o := newTestOptions()
	require.NoError(t, ParseAndApplyConfigFile(o, nil))
	assert.Equal(t, 8080, o.Port)
}

func TestParseAndApplyConfigFileErrors(t *testing.T) {
	o := newTestOptions()
	o.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, ParseAndApplyConfigFile(o, nil))

	o.ConfigFile = writeConfig(t, "port: [")
	assert.Error(t, ParseAndApplyConfigFile(o, nil))
}

func TestDefaultConfigRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(newTestOptions())
	require.NoError(t, err)
	assert.Contains(t, string(data), "format: text")
	assert.NotContains(t, string(data), "ConfigFile")

	o := &testOptions{}
	require.NoError(t, yaml.Unmarshal(data, o))
	assert.Equal(t, newTestOptions(), o)
}
