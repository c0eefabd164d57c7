package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigGet(t *testing.T) {
	c := NewC()
	c.Settings["simple"] = "value"
	c.Settings["nested"] = map[interface{}]interface{}{"sub": 1}

	assert.Equal(t, "value", c.Get("simple"))
	assert.Equal(t, 1, c.Get("nested.sub"))
	assert.Nil(t, c.Get("missing"))
	assert.Nil(t, c.Get("simple.not.a.map"))
}

func TestConfigGetters(t *testing.T) {
	c := NewC()
	c.Settings["string"] = "a"
	c.Settings["int"] = 7
	c.Settings["bool"] = true
	c.Settings["yes"] = "yes"
	c.Settings["duration"] = "2m"

	assert.Equal(t, "a", c.GetString("string", "d"))
	assert.Equal(t, "d", c.GetString("missing", "d"))

	assert.Equal(t, 7, c.GetInt("int", 1))
	assert.Equal(t, 1, c.GetInt("string", 1))

	assert.True(t, c.GetBool("bool", false))
	assert.True(t, c.GetBool("yes", false))
	assert.False(t, c.GetBool("missing", false))

	assert.Equal(t, 2*time.Minute, c.GetDuration("duration", time.Second))
	assert.Equal(t, time.Second, c.GetDuration("missing", time.Second))

	assert.True(t, c.IsSet("int"))
	assert.False(t, c.IsSet("missing"))
}

func TestConfigLoadString(t *testing.T) {
	c := NewC()
	require.NoError(t, c.LoadString(`
outer:
  inner: hello
list:
  - a
  - b
`))

	assert.Equal(t, "hello", c.GetString("outer.inner", ""))
	assert.Error(t, c.LoadString(""))
}

func TestConfigLoadDirectoryMerge(t *testing.T) {
	dir := t.TempDir()

	err := ioutil.WriteFile(filepath.Join(dir, "01.yaml"), []byte("a: 1\nb: base\n"), 0644)
	require.NoError(t, err)
	err = ioutil.WriteFile(filepath.Join(dir, "02.yml"), []byte("b: override\n"), 0644)
	require.NoError(t, err)
	// Non yaml files in a directory are skipped
	err = ioutil.WriteFile(filepath.Join(dir, "notes.txt"), []byte("b: nope\n"), 0644)
	require.NoError(t, err)

	c := NewC()
	require.NoError(t, c.Load(dir))

	assert.Equal(t, 1, c.GetInt("a", 0))
	assert.Equal(t, "override", c.GetString("b", ""))
}

func TestConfigLoadMissing(t *testing.T) {
	c := NewC()
	assert.Error(t, c.Load(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestConfigReloadCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("key: one\n"), 0644))

	c := NewC()
	require.NoError(t, c.Load(path))
	assert.Equal(t, "one", c.GetString("key", ""))

	fired := false
	c.RegisterReloadCallback(func(c *C) { fired = true })

	require.NoError(t, ioutil.WriteFile(path, []byte("key: two\n"), 0644))
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	c.ReloadConfig(l)

	assert.True(t, fired)
	assert.Equal(t, "two", c.GetString("key", ""))
}
