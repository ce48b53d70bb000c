package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findStringFlag(cmd *cli.Command, name string) *cli.StringFlag {
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docingest.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"docingest"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestIngestCommandFlags(t *testing.T) {
	app := newApp()
	cmd := findCommand(t, app, "ingest")

	t.Run("doctype is required", func(t *testing.T) {
		f := findStringFlag(cmd, "doctype")
		require.NotNil(t, f)
		assert.True(t, f.Required)
		assert.Equal(t, []string{"t"}, f.Aliases)
	})

	t.Run("parser defaults to text", func(t *testing.T) {
		f := findStringFlag(cmd, "parser")
		require.NotNil(t, f)
		assert.Equal(t, "text", f.Value)
	})

	t.Run("encoding defaults to utf-8", func(t *testing.T) {
		f := findStringFlag(cmd, "encoding")
		require.NotNil(t, f)
		assert.Equal(t, "utf-8", f.Value)
	})

	t.Run("missing doctype fails", func(t *testing.T) {
		_, _, err := runApp(t, "", "ingest", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "doctype")
	})
}

func TestIngestCommandValidation(t *testing.T) {
	cfg := writeConfig(t, `
[store]
backend = "badger"
in_memory = true
`)

	t.Run("no items", func(t *testing.T) {
		_, _, err := runApp(t, "", "--config", cfg, "ingest", "--doctype", "note")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no items")
	})

	t.Run("unknown parser", func(t *testing.T) {
		_, _, err := runApp(t, "", "--config", cfg, "ingest", "--doctype", "note", "--parser", "pdf", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown parser")
	})

	t.Run("llm parser needs declared fields", func(t *testing.T) {
		_, _, err := runApp(t, "", "--config", cfg, "ingest", "--doctype", "note", "--parser", "llm", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm parser")
	})

	t.Run("bad config file", func(t *testing.T) {
		bad := writeConfig(t, "no_such_key = 1\n")
		_, _, err := runApp(t, "", "--config", bad, "ingest", "--doctype", "note", "x")
		require.Error(t, err)
	})
}

func TestIngestThenSearch(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	cfg := writeConfig(t, `
index = "notes"
workers = 2

[store]
backend = "badger"
path = "`+filepath.ToSlash(dataDir)+`"

[doctypes.note]
text = { type = "text" }
words = { type = "long" }
`)

	stdin := "the lazy dog sleeps\n\nan unrelated sentence\n"
	_, stderr, err := runApp(t, stdin, "-l", "error", "--config", cfg,
		"ingest", "--doctype", "note", "--stdin", "the quick brown fox")
	require.NoError(t, err)
	assert.Contains(t, stderr, "completed")
	assert.Contains(t, stderr, "indexed:        3")

	stdout, _, err := runApp(t, "", "-l", "error", "--config", cfg,
		"search", "--doctype", "note", "quick", "fox")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1. ")
	assert.Contains(t, stdout, "the quick brown fox")
	assert.NotContains(t, stdout, "unrelated")

	stdout, _, err = runApp(t, "", "-l", "error", "--config", cfg,
		"doctypes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "note (2 fields)")
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	cfg := writeConfig(t, `
[store]
backend = "badger"
in_memory = true
`)
	_, _, err := runApp(t, "", "--config", cfg, "search", "--doctype", "note")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestDemoCommand(t *testing.T) {
	cfg := writeConfig(t, `
[store]
backend = "badger"
in_memory = true
`)

	_, stderr, err := runApp(t, "", "-l", "error", "--config", cfg, "demo")
	require.NoError(t, err)
	assert.Contains(t, stderr, "ingest returned while documents are still being parsed")
	assert.Contains(t, stderr, "items:          4")
	assert.Contains(t, stderr, "indexed:        4")
	assert.Contains(t, stderr, "parse failures: 0")
}

func TestDemoIndexDefault(t *testing.T) {
	cmd := findCommand(t, newApp(), "demo")
	f := findStringFlag(cmd, "index")
	require.NotNil(t, f)
	assert.Equal(t, "testindex", f.Value)
}

func TestFormatBody(t *testing.T) {
	long := strings.Repeat("ж", 100)
	lines := formatBody(map[string]any{
		"title": "line one\nline two",
		"body":  long,
		"count": int64(3),
	})
	require.Len(t, lines, 3)
	assert.Equal(t, "body: "+strings.Repeat("ж", 77)+"...", lines[0])
	assert.True(t, utf8.ValidString(lines[0]))
	assert.Equal(t, "count: 3", lines[1])
	assert.Equal(t, "title: line one line two", lines[2])
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
				assert.True(t, slog.Default().Enabled(t.Context(), tc.expected))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, _, err := runApp(t, "", "--log-level", "invalid", "doctypes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				assert.Equal(t, "debug", c.String("log-level"))
				return nil
			},
		}

		err := app.Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
