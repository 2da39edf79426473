package codec

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryClosedSet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, ok := r.Get("json")
	assert.True(t, ok)
	_, ok = r.Get("gob")
	assert.True(t, ok)

	_, ok = r.Get("pickle")
	assert.False(t, ok, "unknown tags must be rejected, not guessed")
	_, ok = r.Get("")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"json", "gob"}, r.Tags())
}

func TestJSONDecode(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	c, _ := r.Get("json")

	obj, err := c.Decode([]byte(`{"rows": 3, "name": "df"}`))
	require.NoError(t, err)

	m, ok := obj.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), m["rows"])
	assert.Equal(t, "df", m["name"])
}

func TestJSONDecodeInvalid(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	c, _ := r.Get("json")

	_, err := c.Decode([]byte(`{"rows": `))
	assert.Error(t, err)
}

func TestGobDecode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var in any = map[string]any{
		"shape":  []any{float64(2), float64(3)},
		"values": []float64{1.5, 2.5},
	}
	require.NoError(t, gob.NewEncoder(&buf).Encode(&in))

	r := NewRegistry()
	c, _ := r.Get("gob")

	obj, err := c.Decode(buf.Bytes())
	require.NoError(t, err)

	m, ok := obj.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, 2.5}, m["values"])
}

func TestGobDecodeInvalid(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	c, _ := r.Get("gob")

	_, err := c.Decode([]byte{0x01, 0x02, 0x03})
	assert.Error(t, err)
}
