package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwilliamson/zuice"
)

type ServerConfig struct {
	Port int `ini:"port" env:"ZUICE_TEST_PORT"`
}

type appConfig struct {
	ServerConfig `ini:",extends"`

	Greeting string `ini:"greeting" env:"ZUICE_TEST_GREETING" inject:"greeting"`
	Name     string `ini:"name" env:"ZUICE_TEST_NAME" inject:"name"`
	Debug    bool   `ini:"debug" env:"ZUICE_TEST_DEBUG"`
}

type nestedConfig struct {
	Server struct {
		Host string `inject:"host"`
	}
	Ignored string `inject:"-"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads from ini", func(t *testing.T) {
		path := writeFile(t, "app.ini", `
greeting = Hello
name = Bob
port = 8080
`)

		var cfg appConfig
		require.NoError(t, Load(&cfg, FromINI(path)))

		assert.Equal(t, "Hello", cfg.Greeting)
		assert.Equal(t, "Bob", cfg.Name)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("environment overrides ini", func(t *testing.T) {
		path := writeFile(t, "app.ini", `
greeting = Hello
name = Bob
`)
		t.Setenv("ZUICE_TEST_NAME", "Jim")

		var cfg appConfig
		require.NoError(t, Load(&cfg, FromINI(path)))

		assert.Equal(t, "Hello", cfg.Greeting)
		assert.Equal(t, "Jim", cfg.Name)
	})

	t.Run("loads the section of the run mode", func(t *testing.T) {
		path := writeFile(t, "app.ini", `
[dev]
greeting = Hi

[prod]
greeting = Good day
`)
		t.Setenv(RunModeEnv, "prod")

		var cfg appConfig
		require.NoError(t, Load(&cfg, FromINISection(path, "")))
		assert.Equal(t, "Good day", cfg.Greeting)

		cfg = appConfig{}
		require.NoError(t, Load(&cfg, FromINISection(path, "dev")))
		assert.Equal(t, "Hi", cfg.Greeting)
	})

	t.Run("loads dotenv files", func(t *testing.T) {
		path := writeFile(t, ".env", "ZUICE_TEST_DEBUG=true\n")
		t.Setenv("ZUICE_TEST_DEBUG", "")
		require.NoError(t, os.Unsetenv("ZUICE_TEST_DEBUG"))

		var cfg appConfig
		require.NoError(t, Load(&cfg, FromDotenv(path)))
		assert.True(t, cfg.Debug)
	})

	t.Run("ignores missing dotenv files", func(t *testing.T) {
		var cfg appConfig
		assert.NoError(t, Load(&cfg, FromDotenv(filepath.Join(t.TempDir(), "missing.env"))))
	})

	t.Run("fails for missing ini files", func(t *testing.T) {
		var cfg appConfig
		assert.Error(t, Load(&cfg, FromINI(filepath.Join(t.TempDir(), "missing.ini"))))
	})

	t.Run("rejects targets that are not struct pointers", func(t *testing.T) {
		var cfg appConfig
		assert.Error(t, Load(cfg))
		assert.Error(t, Load(nil))
		assert.Error(t, Load((*appConfig)(nil)))
	})
}

func TestBind(t *testing.T) {
	t.Run("binds tagged fields by name and the config by type", func(t *testing.T) {
		cfg := &appConfig{Greeting: "Hello", Name: "Bob"}

		bindings := zuice.NewBindings()
		require.NoError(t, Bind(bindings, cfg))

		injector, err := zuice.NewInjector(bindings)
		require.NoError(t, err)

		greeting, err := zuice.Get[string](injector, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "Hello", greeting)

		name, err := zuice.Get[string](injector, "name")
		require.NoError(t, err)
		assert.Equal(t, "Bob", name)

		got, err := zuice.Resolve[*appConfig](injector)
		require.NoError(t, err)
		assert.Same(t, cfg, got)

		assert.False(t, bindings.Contains("debug"))
	})

	t.Run("descends into nested structs", func(t *testing.T) {
		cfg := &nestedConfig{}
		cfg.Server.Host = "localhost"

		bindings := zuice.NewBindings()
		require.NoError(t, Bind(bindings, cfg))

		assert.True(t, bindings.Contains("host"))
		assert.False(t, bindings.Contains("-"))
	})

	t.Run("reports conflicts with existing bindings", func(t *testing.T) {
		bindings := zuice.NewBindings()
		bindings.Bind("greeting").ToInstance("Hi")

		err := Bind(bindings, &appConfig{})
		assert.ErrorIs(t, err, zuice.ErrAlreadyBound)
	})

	t.Run("works as a module", func(t *testing.T) {
		bindings := zuice.NewBindings()
		require.NoError(t, bindings.Install(Module(&appConfig{Name: "Bob"})))

		assert.True(t, bindings.Contains("name"))
	})
}
