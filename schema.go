package tyrell

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"
)

// JSON Schema type names used in derived schemas.
const (
	SchemaTypeObject  = "object"
	SchemaTypeArray   = "array"
	SchemaTypeString  = "string"
	SchemaTypeInteger = "integer"
	SchemaTypeNumber  = "number"
	SchemaTypeBoolean = "boolean"
	SchemaTypeNull    = "null"
)

// SchemaType is the "type" keyword of a schema fragment.
// A single entry encodes as a string, several as an array (e.g. ["integer","null"]),
// and an empty value is omitted, which leaves the fragment unconstrained.
type SchemaType []string

func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = SchemaType{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("schema type must be a string or an array of strings: %w", err)
	}
	*t = many
	return nil
}

// Schema is one property's schema fragment.
type Schema struct {
	Type                 SchemaType         `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Format               string             `json:"format,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
}

// Primary returns the first non-null type, or "" for an unconstrained fragment.
func (s *Schema) Primary() string {
	for _, t := range s.Type {
		if t != SchemaTypeNull {
			return t
		}
	}
	return ""
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	out.Type = slices.Clone(s.Type)
	out.Minimum = clonePtr(s.Minimum)
	out.Enum = slices.Clone(s.Enum)
	out.Items = s.Items.Clone()
	out.Properties = cloneProperties(s.Properties)
	out.Required = slices.Clone(s.Required)
	out.AdditionalProperties = s.AdditionalProperties.Clone()
	return &out
}

func cloneProperties(properties map[string]*Schema) map[string]*Schema {
	if properties == nil {
		return nil
	}
	out := make(map[string]*Schema, len(properties))
	for name, prop := range properties {
		out[name] = prop.Clone()
	}
	return out
}

// Nullable returns true if the fragment admits null.
func (s *Schema) Nullable() bool {
	return slices.Contains(s.Type, SchemaTypeNull)
}

// InputSchema is a tool's input_schema. It is always an object schema and
// always carries a "required" array, possibly empty, sorted ascending.
type InputSchema struct {
	Properties map[string]*Schema
	Required   []string
}

func (s *InputSchema) MarshalJSON() ([]byte, error) {
	properties := s.Properties
	if properties == nil {
		properties = map[string]*Schema{}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return json.Marshal(struct {
		Type       string             `json:"type"`
		Properties map[string]*Schema `json:"properties"`
		Required   []string           `json:"required"`
	}{SchemaTypeObject, properties, required})
}

func (s *InputSchema) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type       string             `json:"type"`
		Properties map[string]*Schema `json:"properties"`
		Required   []string           `json:"required"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Type != SchemaTypeObject {
		return &DecodeError{
			Path:   "input_schema.type",
			Reason: fmt.Sprintf("input schema must have type \"object\", got %q", wire.Type),
			Err:    ErrSchemaMismatch,
		}
	}
	s.Properties = wire.Properties
	s.Required = slices.Sorted(slices.Values(wire.Required))
	return nil
}

// Clone returns a deep copy of s.
func (s *InputSchema) Clone() *InputSchema {
	if s == nil {
		return nil
	}
	return &InputSchema{Properties: cloneProperties(s.Properties), Required: slices.Clone(s.Required)}
}

// IsRequired returns true if the named property must be present.
func (s *InputSchema) IsRequired(name string) bool {
	_, found := slices.BinarySearch(s.Required, name)
	return found
}

// Enumerator is implemented by named string types that restrict their values.
// The derived schema becomes {"type":"string","enum":EnumValues()}.
type Enumerator interface {
	EnumValues() []string
}

var (
	schemaCache sync.Map // reflect.Type -> *InputSchema

	enumeratorType = reflect.TypeFor[Enumerator]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
	timeType       = reflect.TypeFor[time.Time]()
)

// SchemaFor derives the input schema for T, which must be a struct or a pointer to one.
// Derivation runs once per type; each call returns a private copy.
func SchemaFor[T any]() (*InputSchema, error) {
	return DeriveSchema(reflect.TypeFor[T]())
}

// DeriveSchema derives the input schema for a struct type.
//
// Field names follow encoding/json tags. A `description:"..."` tag sets the
// property description. Pointer fields and omitempty fields are optional;
// pointer fields additionally admit null.
func DeriveSchema(t reflect.Type) (*InputSchema, error) {
	schema, err := sharedSchema(t)
	if err != nil {
		return nil, err
	}
	return schema.Clone(), nil
}

// sharedSchema returns the cached schema for t. Callers must not modify it.
func sharedSchema(t reflect.Type) (*InputSchema, error) {
	if t == nil {
		return nil, &SchemaError{Type: "<nil>", Reason: "no type given", Err: ErrUnsupportedType}
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*InputSchema), nil
	}

	root := t
	if root.Kind() == reflect.Pointer {
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct || root == timeType {
		return nil, &SchemaError{
			Type:   t.String(),
			Reason: fmt.Sprintf("tool input must be a struct, got %s", t.Kind()),
			Err:    ErrUnsupportedType,
		}
	}

	d := &deriver{root: t.String(), visiting: map[reflect.Type]bool{}}
	obj, err := d.object(root, "")
	if err != nil {
		return nil, err
	}

	schema := &InputSchema{Properties: obj.Properties, Required: obj.Required}
	actual, _ := schemaCache.LoadOrStore(t, schema)
	return actual.(*InputSchema), nil
}

type deriver struct {
	root     string
	visiting map[reflect.Type]bool
}

func (d *deriver) unsupported(path, reason string) error {
	return &SchemaError{Type: d.root, Field: path, Reason: reason, Err: ErrUnsupportedType}
}

// object builds an object fragment from a struct, flattening untagged embedded structs.
func (d *deriver) object(t reflect.Type, path string) (*Schema, error) {
	if d.visiting[t] {
		return nil, d.unsupported(path, fmt.Sprintf("recursive type %s", t))
	}
	d.visiting[t] = true
	defer delete(d.visiting, t)

	obj := &Schema{Type: SchemaType{SchemaTypeObject}, Properties: map[string]*Schema{}}
	if err := d.fields(t, path, obj); err != nil {
		return nil, err
	}
	slices.Sort(obj.Required)
	obj.Required = slices.Compact(obj.Required)
	return obj, nil
}

// fieldCandidate is a struct field visible at some embedding depth.
type fieldCandidate struct {
	name   string
	depth  int
	tagged bool
	opts   []string
	field  reflect.StructField
}

// fields adds t's properties to obj. Names promoted from embedded structs
// resolve the way encoding/json resolves them: the shallowest field wins, a
// tagged field beats untagged ones at the same depth, and any other tie
// drops the name.
func (d *deriver) fields(t reflect.Type, path string, obj *Schema) error {
	var candidates []fieldCandidate
	if err := d.collect(t, path, 0, &candidates); err != nil {
		return err
	}

	byName := map[string][]fieldCandidate{}
	var order []string
	for _, c := range candidates {
		if _, seen := byName[c.name]; !seen {
			order = append(order, c.name)
		}
		byName[c.name] = append(byName[c.name], c)
	}

	for _, name := range order {
		field, ok := dominantField(byName[name])
		if !ok {
			continue
		}
		if err := d.property(field, path, obj); err != nil {
			return err
		}
	}
	return nil
}

// collect gathers the candidate fields of t, descending into untagged embedded structs.
func (d *deriver) collect(t reflect.Type, path string, depth int, out *[]fieldCandidate) error {
	for i := range t.NumField() {
		field := t.Field(i)
		name, opts, skip := jsonFieldName(field)
		if skip {
			continue
		}

		if field.Anonymous && name == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct && embedded != timeType {
				if d.visiting[embedded] {
					return d.unsupported(path, fmt.Sprintf("recursive type %s", embedded))
				}
				d.visiting[embedded] = true
				err := d.collect(embedded, path, depth+1, out)
				delete(d.visiting, embedded)
				if err != nil {
					return err
				}
				continue
			}
			if !field.IsExported() {
				continue
			}
		}

		tagged := name != ""
		if !tagged {
			name = field.Name
		}
		*out = append(*out, fieldCandidate{name: name, depth: depth, tagged: tagged, opts: opts, field: field})
	}
	return nil
}

func dominantField(candidates []fieldCandidate) (fieldCandidate, bool) {
	shallowest := slices.MinFunc(candidates, func(a, b fieldCandidate) int { return a.depth - b.depth }).depth
	var top []fieldCandidate
	for _, c := range candidates {
		if c.depth == shallowest {
			top = append(top, c)
		}
	}
	if len(top) == 1 {
		return top[0], true
	}
	var tagged []fieldCandidate
	for _, c := range top {
		if c.tagged {
			tagged = append(tagged, c)
		}
	}
	if len(tagged) == 1 {
		return tagged[0], true
	}
	return fieldCandidate{}, false
}

func (d *deriver) property(c fieldCandidate, path string, obj *Schema) error {
	field := c.field
	fieldPath := joinPath(path, c.name)
	fragment, err := d.fragment(field.Type, fieldPath)
	if err != nil {
		return err
	}
	if values, ok := field.Tag.Lookup("enum"); ok {
		if fragment.Primary() != SchemaTypeString {
			return d.unsupported(fieldPath, "enum tag is only valid on string fields")
		}
		fragment.Enum = splitEnum(values)
	}
	if desc := field.Tag.Get("description"); desc != "" {
		fragment.Description = desc
	}

	obj.Properties[c.name] = fragment
	if field.Type.Kind() != reflect.Pointer && !slices.Contains(c.opts, "omitempty") && !slices.Contains(c.opts, "omitzero") {
		obj.Required = append(obj.Required, c.name)
	}
	return nil
}

// fragment maps one Go type to its schema fragment.
func (d *deriver) fragment(t reflect.Type, path string) (*Schema, error) {
	switch t {
	case rawMessageType:
		return &Schema{}, nil
	case timeType:
		return &Schema{Type: SchemaType{SchemaTypeString}, Format: "date-time"}, nil
	}

	if values, ok := enumValues(t); ok {
		if t.Kind() != reflect.String {
			return nil, d.unsupported(path, fmt.Sprintf("enumerator %s must have a string underlying type", t))
		}
		return &Schema{Type: SchemaType{SchemaTypeString}, Enum: values}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: SchemaType{SchemaTypeBoolean}}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Schema{Type: SchemaType{SchemaTypeInteger}, Format: t.Kind().String()}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		zero := 0.0
		return &Schema{Type: SchemaType{SchemaTypeInteger}, Format: t.Kind().String(), Minimum: &zero}, nil

	case reflect.Float32:
		return &Schema{Type: SchemaType{SchemaTypeNumber}, Format: "float"}, nil

	case reflect.Float64:
		return &Schema{Type: SchemaType{SchemaTypeNumber}, Format: "double"}, nil

	case reflect.String:
		return &Schema{Type: SchemaType{SchemaTypeString}}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: SchemaType{SchemaTypeString}, Format: "byte"}, nil
		}
		fallthrough

	case reflect.Array:
		items, err := d.fragment(t.Elem(), path+"[]")
		if err != nil {
			return nil, err
		}
		return &Schema{Type: SchemaType{SchemaTypeArray}, Items: items}, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, d.unsupported(path, fmt.Sprintf("map key must be a string, got %s", t.Key()))
		}
		values, err := d.fragment(t.Elem(), path+"{}")
		if err != nil {
			return nil, err
		}
		return &Schema{Type: SchemaType{SchemaTypeObject}, AdditionalProperties: values}, nil

	case reflect.Struct:
		return d.object(t, path)

	case reflect.Pointer:
		inner, err := d.fragment(t.Elem(), path)
		if err != nil {
			return nil, err
		}
		if len(inner.Type) > 0 && !inner.Nullable() {
			inner.Type = append(slices.Clone(inner.Type), SchemaTypeNull)
		}
		return inner, nil

	case reflect.Interface:
		return &Schema{}, nil
	}

	return nil, d.unsupported(path, fmt.Sprintf("type %s (kind %s) has no JSON schema", t, t.Kind()))
}

func enumValues(t reflect.Type) ([]string, bool) {
	switch {
	case t.Implements(enumeratorType):
		if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
			return nil, false
		}
		return reflect.Zero(t).Interface().(Enumerator).EnumValues(), true
	case reflect.PointerTo(t).Implements(enumeratorType):
		return reflect.New(t).Interface().(Enumerator).EnumValues(), true
	}
	return nil, false
}

// jsonFieldName reads the encoding/json tag. skip is true for "-" and for
// unexported non-embedded fields.
func jsonFieldName(field reflect.StructField) (name string, opts []string, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", nil, true
	}
	if !field.IsExported() && !field.Anonymous {
		return "", nil, true
	}
	parts := strings.Split(tag, ",")
	return parts[0], parts[1:], false
}

func splitEnum(tag string) []string {
	var values []string
	for _, v := range strings.Split(tag, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
