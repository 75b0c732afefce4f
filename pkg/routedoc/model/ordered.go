package model

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// OrderedMap is a string-keyed map that remembers insertion order. Setting an
// existing key replaces its value but keeps its original position.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set stores value under key.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil || m.values == nil {
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len reports the number of keys.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap[V]) Range(fn func(key string, value V) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy.
func (m *OrderedMap[V]) Clone() *OrderedMap[V] {
	out := NewOrderedMap[V]()
	m.Range(func(k string, v V) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	i := 0
	m.Range(func(k string, v V) bool {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		var key, val []byte
		if key, err = json.Marshal(k); err != nil {
			return false
		}
		if val, err = json.Marshal(v); err != nil {
			return false
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the map as a YAML mapping in insertion order.
func (m *OrderedMap[V]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	var err error
	m.Range(func(k string, v V) bool {
		value := &yaml.Node{}
		if err = value.Encode(v); err != nil {
			return false
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			value,
		)
		return true
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}
