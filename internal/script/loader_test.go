package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScriptSuccess(t *testing.T) {
	path := writeScript(t, "echo.js", `function inspect(obj) { return "type=" + typeof obj; }`)

	insp, info, err := loadScript(path, 64)
	require.NoError(t, err)
	defer insp.Close()

	assert.Len(t, info.Checksum, 64)
	assert.Len(t, info.LoadID, 8)
	assert.False(t, info.LoadedAt.IsZero())

	out, err := insp.Inspect(map[string]any{"a": 1}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "type=object", out)
}

func TestLoadScriptMissingFile(t *testing.T) {
	insp, _, err := loadScript(filepath.Join(t.TempDir(), "nope.js"), 64)
	require.Error(t, err)
	assert.Nil(t, insp)
	assert.Contains(t, err.Error(), "script not found")
}

func TestLoadScriptSyntaxError(t *testing.T) {
	path := writeScript(t, "bad.js", `function inspect(obj) { return`)

	insp, _, err := loadScript(path, 64)
	require.Error(t, err)
	assert.Nil(t, insp)
}

func TestLoadScriptNoInspectFunction(t *testing.T) {
	path := writeScript(t, "empty.js", `var x = 1;`)

	insp, _, err := loadScript(path, 64)
	require.Error(t, err)
	assert.Nil(t, insp)
	assert.Contains(t, err.Error(), "does not define an 'inspect' function")
}

func TestLoadScriptWrongArity(t *testing.T) {
	path := writeScript(t, "arity.js", `function inspect(a, b) { return "x"; }`)

	insp, _, err := loadScript(path, 64)
	require.Error(t, err)
	assert.Nil(t, insp)
	assert.Contains(t, err.Error(), "exactly one argument")
}

func TestLoadScriptChecksumTracksContent(t *testing.T) {
	body := `function inspect(obj) { return "a"; }`
	p1 := writeScript(t, "a.js", body)
	p2 := writeScript(t, "b.js", body)
	p3 := writeScript(t, "c.js", `function inspect(obj) { return "b"; }`)

	i1, info1, err := loadScript(p1, 64)
	require.NoError(t, err)
	defer i1.Close()
	i2, info2, err := loadScript(p2, 64)
	require.NoError(t, err)
	defer i2.Close()
	i3, info3, err := loadScript(p3, 64)
	require.NoError(t, err)
	defer i3.Close()

	assert.Equal(t, info1.Checksum, info2.Checksum)
	assert.NotEqual(t, info1.Checksum, info3.Checksum)
	assert.NotEqual(t, info1.LoadID, info2.LoadID)
}

func TestLoadScriptFreshStatePerLoad(t *testing.T) {
	// Module-level state must not leak between loads of the same file.
	path := writeScript(t, "counter.js", `
		var calls = 0;
		function inspect(obj) { calls++; return String(calls); }
	`)

	first, _, err := loadScript(path, 64)
	require.NoError(t, err)
	defer first.Close()

	out, err := first.Inspect(nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "1", out)

	second, _, err := loadScript(path, 64)
	require.NoError(t, err)
	defer second.Close()

	out, err = second.Inspect(nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "1", out)
}

func TestInspectPreservesAstralRunes(t *testing.T) {
	// Runes above U+FFFF that are legal in JSON strings but have no
	// printable form (tag characters, private use planes) must round-trip
	// into the VM unchanged.
	path := writeScript(t, "echo.js", `function inspect(obj) { return obj.s; }`)

	insp, _, err := loadScript(path, 64)
	require.NoError(t, err)
	defer insp.Close()

	for _, in := range []string{
		"a\U000E0020b", // tag space
		"\U0010FFFD",   // private use plane 16
		"plain ascii",
		"bmp é ok",
	} {
		out, err := insp.Inspect(map[string]any{"s": in}, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestInspectErrorSurfaces(t *testing.T) {
	path := writeScript(t, "throw.js", `function inspect(obj) { throw new Error("boom"); }`)

	insp, _, err := loadScript(path, 64)
	require.NoError(t, err)
	defer insp.Close()

	_, err = insp.Inspect(map[string]any{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inspect call failed")
}

func TestInspectAfterClose(t *testing.T) {
	path := writeScript(t, "ok.js", `function inspect(obj) { return "ok"; }`)

	insp, _, err := loadScript(path, 64)
	require.NoError(t, err)
	insp.Close()
	insp.Close()

	_, err = insp.Inspect(nil, time.Time{})
	require.Error(t, err)
}

func TestDefaultScriptsLoadAndRun(t *testing.T) {
	cases := []struct {
		file string
		obj  map[string]any
		want string
	}{
		{
			file: "dataframe.js",
			obj: map[string]any{
				"shape": []any{3.0, 2.0},
				"columns": []any{
					map[string]any{"name": "id", "dtype": "int64", "nullCount": 0.0},
					map[string]any{"name": "score", "dtype": "float64", "nullCount": 1.0},
				},
				"preview":     []any{[]any{1.0, 0.5}, []any{2.0, nil}},
				"memoryBytes": 2048.0,
			},
			want: "Shape: (3 rows × 2 columns)",
		},
		{
			file: "series.js",
			obj: map[string]any{
				"name":        "score",
				"length":      3.0,
				"dtype":       "float64",
				"values":      []any{1.0, 2.0, 3.0},
				"memoryBytes": 512.0,
			},
			want: "Name: score",
		},
		{
			file: "ndarray.js",
			obj: map[string]any{
				"shape":       []any{4.0},
				"dtype":       "float64",
				"size":        4.0,
				"values":      []any{1.0, 2.0, 3.0, 4.0},
				"memoryBytes": 32.0,
			},
			want: "Dimensions: 1D vector",
		},
	}

	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			path := filepath.Join("..", "..", "inspection_scripts", tc.file)
			insp, _, err := loadScript(path, 64)
			require.NoError(t, err)
			defer insp.Close()

			out, err := insp.Inspect(tc.obj, time.Time{})
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}
