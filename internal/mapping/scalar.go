package mapping

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/hanpama/typegraph/internal/naming"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typeinfo"
)

// ScalarDef describes a scalar type and its value hooks.
type ScalarDef struct {
	Name        string
	Description string
	SpecifiedBy string
	// Serialize turns a Go value into a JSON-safe value. Pointers are
	// dereferenced before it is called.
	Serialize func(v any) (any, error)
	// Parse turns a coerced input value into a Go value, which is then
	// converted to the mapped Go type.
	Parse func(v any) (any, error)
}

var (
	StringScalar = &ScalarDef{
		Name:      "String",
		Serialize: serializeString,
		Parse:     parseString,
	}
	IntScalar = &ScalarDef{
		Name:      "Int",
		Serialize: serializeInt32,
		Parse:     parseInt32,
	}
	FloatScalar = &ScalarDef{
		Name:      "Float",
		Serialize: func(v any) (any, error) { return toFloat64(v) },
		Parse:     func(v any) (any, error) { return toFloat64(v) },
	}
	BooleanScalar = &ScalarDef{
		Name:      "Boolean",
		Serialize: parseBool,
		Parse:     parseBool,
	}
	IDScalar = &ScalarDef{
		Name:      "ID",
		Serialize: serializeString,
		Parse:     parseID,
	}
	LongScalar = &ScalarDef{
		Name:        "Long",
		Description: "A 64-bit signed integer.",
		Serialize:   func(v any) (any, error) { return toInt64(v) },
		Parse:       func(v any) (any, error) { return toInt64(v) },
	}
	DateTimeScalar = &ScalarDef{
		Name:        "DateTime",
		Description: "An RFC 3339 timestamp.",
		SpecifiedBy: "https://scalars.graphql.org/andimarek/date-time",
		Serialize: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("DateTime cannot represent %T", v)
			}
			return t.Format(time.RFC3339Nano), nil
		},
		Parse: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("DateTime must be a string, got %T", v)
			}
			return time.Parse(time.RFC3339Nano, s)
		},
	}
	DurationScalar = &ScalarDef{
		Name:        "Duration",
		Description: "A duration such as \"1h30m\".",
		Serialize: func(v any) (any, error) {
			d, ok := v.(time.Duration)
			if !ok {
				return nil, fmt.Errorf("Duration cannot represent %T", v)
			}
			return d.String(), nil
		},
		Parse: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("Duration must be a string, got %T", v)
			}
			return time.ParseDuration(s)
		},
	}
	UUIDScalar = &ScalarDef{
		Name:        "UUID",
		SpecifiedBy: "https://tools.ietf.org/html/rfc4122",
		Serialize: func(v any) (any, error) {
			id, ok := v.(uuid.UUID)
			if !ok {
				return nil, fmt.Errorf("UUID cannot represent %T", v)
			}
			return id.String(), nil
		},
		Parse: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("UUID must be a string, got %T", v)
			}
			return uuid.Parse(s)
		},
	}
	BytesScalar = &ScalarDef{
		Name:        "Bytes",
		Description: "Base64 encoded binary data.",
		Serialize: func(v any) (any, error) {
			b, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("Bytes cannot represent %T", v)
			}
			return base64.StdEncoding.EncodeToString(b), nil
		},
		Parse: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("Bytes must be a base64 string, got %T", v)
			}
			return base64.StdEncoding.DecodeString(s)
		},
	}
	JSONScalar = &ScalarDef{
		Name:        "JSON",
		Description: "An arbitrary JSON object. Inputs may also be given as a JSON encoded string.",
		Serialize:   func(v any) (any, error) { return v, nil },
		Parse: func(v any) (any, error) {
			switch v := v.(type) {
			case map[string]any:
				return v, nil
			case string:
				var m map[string]any
				if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(v, &m); err != nil {
					return nil, fmt.Errorf("JSON string does not hold an object: %w", err)
				}
				return m, nil
			}
			return nil, fmt.Errorf("JSON must be an object, got %T", v)
		},
	}
)

func serializeString(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.String:
		return rv.String(), nil
	case rv.Kind() == reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case isInt(rv.Kind()) || isUint(rv.Kind()):
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(i, 10), nil
	case isFloat(rv.Kind()):
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return nil, fmt.Errorf("String cannot represent %T", v)
}

func parseString(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return nil, fmt.Errorf("String cannot represent a non string value: %v", v)
	}
	return rv.String(), nil
}

func parseID(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.String:
		return rv.String(), nil
	case isInt(rv.Kind()) || isUint(rv.Kind()):
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(i, 10), nil
	}
	return nil, fmt.Errorf("ID cannot represent %v", v)
}

func serializeInt32(v any) (any, error) {
	i, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	if i > math.MaxInt32 || i < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", i)
	}
	return int(i), nil
}

func parseInt32(v any) (any, error) {
	if reflect.ValueOf(v).Kind() == reflect.String {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %q", v)
	}
	return serializeInt32(v)
}

func parseBool(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Bool {
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", v)
	}
	return rv.Bool(), nil
}

// kindScalars maps primitive kinds to their scalar.
var kindScalars = map[reflect.Kind]*ScalarDef{
	reflect.String:  StringScalar,
	reflect.Bool:    BooleanScalar,
	reflect.Int:     IntScalar,
	reflect.Int8:    IntScalar,
	reflect.Int16:   IntScalar,
	reflect.Int32:   IntScalar,
	reflect.Uint8:   IntScalar,
	reflect.Uint16:  IntScalar,
	reflect.Int64:   LongScalar,
	reflect.Uint:    LongScalar,
	reflect.Uint32:  LongScalar,
	reflect.Uint64:  LongScalar,
	reflect.Float32: FloatScalar,
	reflect.Float64: FloatScalar,
}

// useScalar registers def in the schema arena and the runtime once.
func (c *Context) useScalar(def *ScalarDef) error {
	if err := c.ClaimTypeName(def.Name, def); err != nil {
		return err
	}
	if c.Type(def.Name) == nil && !schema.IsBuiltinScalar(def.Name) {
		c.AddType(schema.NewType(def.Name, schema.TypeKindScalar, def.Description).SetSpecifiedByURL(def.SpecifiedBy))
	}
	c.runtime.bindScalar(def)
	return nil
}

func scalarMapping(c *Context, def *ScalarDef, rt reflect.Type, input bool) (Resolved, error) {
	if err := c.useScalar(def); err != nil {
		return Resolved{}, err
	}
	r := Named(def.Name)
	if !input {
		return r, nil
	}
	return r.WithConversion(func(_ *Env, v any) (any, error) {
		if v == nil {
			return reflect.Zero(rt).Interface(), nil
		}
		parsed, err := def.Parse(v)
		if err != nil {
			return nil, err
		}
		out, err := assign(parsed, rt)
		if err != nil {
			return nil, err
		}
		return out.Interface(), nil
	}), nil
}

// scalarResolver binds one Go type to a scalar definition.
type scalarResolver struct {
	rt  reflect.Type
	def *ScalarDef
}

// Scalar returns a resolver mapping exactly rt to def in both directions.
func Scalar(rt reflect.Type, def *ScalarDef) Resolver {
	return &scalarResolver{rt: rt, def: def}
}

func (s *scalarResolver) SupportsOutput(t typeinfo.Type) bool { return t.Reflect() == s.rt }
func (s *scalarResolver) SupportsInput(t typeinfo.Type) bool  { return t.Reflect() == s.rt }

func (s *scalarResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	return scalarMapping(e.ctx, s.def, s.rt, false)
}

func (s *scalarResolver) ResolveInput(e *Encounter) (Resolved, error) {
	return scalarMapping(e.ctx, s.def, s.rt, true)
}

// kindResolver maps Go types by primitive kind.
type kindResolver struct{}

func (kindResolver) SupportsOutput(t typeinfo.Type) bool {
	_, ok := kindScalars[t.Reflect().Kind()]
	return ok
}

func (k kindResolver) SupportsInput(t typeinfo.Type) bool { return k.SupportsOutput(t) }

func (kindResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	return scalarMapping(e.ctx, kindScalars[e.Type.Reflect().Kind()], e.Type.Reflect(), false)
}

func (kindResolver) ResolveInput(e *Encounter) (Resolved, error) {
	return scalarMapping(e.ctx, kindScalars[e.Type.Reflect().Kind()], e.Type.Reflect(), true)
}

var (
	marshalerType   = reflect.TypeOf((*typeinfo.Marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*typeinfo.Unmarshaler)(nil)).Elem()
)

// declaredScalarResolver maps types that declare a scalar marker or
// implement Marshaler with Unmarshaler on the pointer.
type declaredScalarResolver struct {
	defs map[reflect.Type]*ScalarDef
}

func (d *declaredScalarResolver) SupportsOutput(t typeinfo.Type) bool {
	rt := t.Reflect()
	if rt.Kind() == reflect.Pointer || rt.Kind() == reflect.Interface {
		return false
	}
	if rt.Implements(marshalerType) && reflect.PointerTo(rt).Implements(unmarshalerType) {
		return true
	}
	return t.Has(typeinfo.KindScalar)
}

func (d *declaredScalarResolver) SupportsInput(t typeinfo.Type) bool { return d.SupportsOutput(t) }

func (d *declaredScalarResolver) ResolveOutput(e *Encounter) (Resolved, error) {
	def, err := d.def(e)
	if err != nil {
		return Resolved{}, err
	}
	return scalarMapping(e.ctx, def, e.Type.Reflect(), false)
}

func (d *declaredScalarResolver) ResolveInput(e *Encounter) (Resolved, error) {
	def, err := d.def(e)
	if err != nil {
		return Resolved{}, err
	}
	return scalarMapping(e.ctx, def, e.Type.Reflect(), true)
}

func (d *declaredScalarResolver) def(e *Encounter) (*ScalarDef, error) {
	rt := e.Type.Reflect()
	if def, ok := d.defs[rt]; ok {
		return def, nil
	}
	name := naming.TypeName(e.Type, false)
	if name == "" {
		return nil, e.ctx.Errorf("cannot derive a scalar name for Go type %s", rt)
	}
	ms := e.Type.Markers()
	def := &ScalarDef{
		Name:        name,
		Description: ms.Value(typeinfo.KindDescription),
		SpecifiedBy: ms.Value(typeinfo.KindSpecifiedBy),
	}
	if rt.Implements(marshalerType) {
		def.Serialize = func(v any) (any, error) {
			m, ok := v.(typeinfo.Marshaler)
			if !ok {
				return nil, fmt.Errorf("%s cannot represent %T", name, v)
			}
			return m.MarshalGraphQL()
		}
	} else if prim, ok := kindScalars[rt.Kind()]; ok {
		def.Serialize = prim.Serialize
	} else {
		return nil, e.ctx.Errorf("scalar %s must implement typeinfo.Marshaler or have a primitive kind", rt)
	}
	if reflect.PointerTo(rt).Implements(unmarshalerType) {
		def.Parse = func(v any) (any, error) {
			p := reflect.New(rt)
			if err := p.Interface().(typeinfo.Unmarshaler).UnmarshalGraphQL(v); err != nil {
				return nil, err
			}
			return p.Elem().Interface(), nil
		}
	} else {
		def.Parse = func(v any) (any, error) {
			out, err := assign(v, rt)
			if err != nil {
				return nil, err
			}
			return out.Interface(), nil
		}
	}
	d.defs[rt] = def
	return def, nil
}
