// Package features extracts typed signal records from URLs, app links, and
// content links.
//
// Each record implements Set, whose Lookup method is the explicit table the
// ML encoder reads. Keys are fixed per record type and never omitted.
package features

// Kind identifies the artifact type a feature set was extracted from.
type Kind string

const (
	KindURL     Kind = "url"
	KindApp     Kind = "app"
	KindContent Kind = "content"
)

// Set is a typed feature record for one artifact.
type Set interface {
	Kind() Kind
	// Lookup returns the named feature, or false when the record has no such key.
	Lookup(name string) (Value, bool)
}

// Empty is the feature set of an artifact that was rejected before
// extraction. It has no keys and serializes as an empty object.
type Empty struct {
	Type Kind `json:"-"`
}

func (e Empty) Kind() Kind                 { return e.Type }
func (Empty) Lookup(string) (Value, bool) { return Value{}, false }

// ValueKind tags the shape of a feature value for encoding.
type ValueKind int

const (
	Null ValueKind = iota
	Number
	Bool
	String
	List
	Mapping
)

// Value is a single feature value as seen by encoders.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
	Str  string
	List []string
}

func num[T int | float64](v T) Value { return Value{Kind: Number, Num: float64(v)} }
func boolean(v bool) Value          { return Value{Kind: Bool, Bool: v} }
func str(v string) Value            { return Value{Kind: String, Str: v} }
func list(v []string) Value         { return Value{Kind: List, List: v} }
func mapping() Value                { return Value{Kind: Mapping} }

func nullableBool(v *bool) Value {
	if v == nil {
		return Value{Kind: Null}
	}
	return boolean(*v)
}
