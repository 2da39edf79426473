// Package codec decodes serialized inspection payloads into in-memory
// objects. The set of serialization tags is closed: unknown tags are
// rejected by lookup, never guessed.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Deserializer turns a raw payload into an in-memory object graph.
type Deserializer interface {
	Decode(data []byte) (any, error)
}

// Registry maps serialization tags to deserializers.
type Registry struct {
	codecs map[string]Deserializer
}

// NewRegistry returns a registry with the built-in deserializers
// ("json" and "gob") registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Deserializer)}
	r.codecs["json"] = jsonCodec{}
	r.codecs["gob"] = gobCodec{}
	return r
}

// Get returns the deserializer for a serialization tag.
func (r *Registry) Get(tag string) (Deserializer, bool) {
	c, ok := r.codecs[tag]
	return c, ok
}

// Tags returns the registered serialization tags.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.codecs))
	for tag := range r.codecs {
		tags = append(tags, tag)
	}
	return tags
}

type jsonCodec struct{}

func (jsonCodec) Decode(data []byte) (any, error) {
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode json payload: %w", err)
	}
	return obj, nil
}

type gobCodec struct{}

func init() {
	// Container and scalar shapes an encoder may put inside an interface
	// value. Senders using other concrete types must gob-register them on
	// their side and will get a decode error here otherwise.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register([]string{})
	gob.Register([]float64{})
	gob.Register([]int{})
	gob.Register(map[string]string{})
	gob.Register(map[string]float64{})
}

func (gobCodec) Decode(data []byte) (any, error) {
	var obj any
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode gob payload: %w", err)
	}
	return obj, nil
}
