// Package tree provides the ordered JSON value model the converter deposits
// documents into. Objects preserve key insertion order so the serialized
// output matches the order fields were discovered in the source stream.
package tree

import (
	"encoding/json"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is any JSON value: *Object, *Array, or a plain string.
type Node any

// Object is a JSON object with insertion-ordered keys.
type Object struct {
	m *orderedmap.OrderedMap[string, Node]
}

// NewObject creates an empty ordered object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Node]()}
}

// Set adds or replaces a key.
func (o *Object) Set(key string, v Node) {
	o.m.Set(key, v)
}

// SetString adds or replaces a string-valued key.
func (o *Object) SetString(key, val string) {
	o.m.Set(key, Node(val))
}

// Get returns the value for key and whether it exists.
func (o *Object) Get(key string) (Node, bool) {
	return o.m.Get(key)
}

// GetString returns the string value for key, or "" if absent or not a string.
func (o *Object) GetString(key string) string {
	v, ok := o.m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetArray returns the array value for key, or nil if absent or not an array.
func (o *Object) GetArray(key string) *Array {
	v, ok := o.m.Get(key)
	if !ok {
		return nil
	}
	a, _ := v.(*Array)
	return a
}

// GetObject returns the object value for key, or nil if absent or not an object.
func (o *Object) GetObject(key string) *Object {
	v, ok := o.m.Get(key)
	if !ok {
		return nil
	}
	inner, _ := v.(*Object)
	return inner
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return o.m.Len()
}

// MarshalJSON implements json.Marshaler, preserving key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.m)
}

// Array is an ordered list of nodes.
type Array struct {
	items []Node
}

// NewArray creates an empty array. Empty arrays serialize as [], not null.
func NewArray() *Array {
	return &Array{items: []Node{}}
}

// Append adds a node to the end of the array.
func (a *Array) Append(v Node) {
	a.items = append(a.items, v)
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the i-th element.
func (a *Array) At(i int) Node {
	return a.items[i]
}

// MarshalJSON implements json.Marshaler.
func (a *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.items)
}

// Encode serializes root to w. Pretty output uses two-space indentation; both
// modes end with a trailing newline.
func Encode(w io.Writer, root Node, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(root)
}
