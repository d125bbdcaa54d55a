package executor

import (
	"encoding/json"
	"fmt"
	"strconv"

	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

// coercer checks input values against schema types. Built-in scalars are
// normalized; custom scalars pass through for the runtime to parse.
type coercer struct {
	schema *schema.Schema
}

// variables coerces the request variables against the operation's variable
// definitions. Omitted nullable variables without a default stay absent.
func (c coercer) variables(op *language.OperationDefinition, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		v, ok := raw[def.Variable]
		switch {
		case ok:
		case def.DefaultValue != nil:
			v = literal(def.DefaultValue, nil)
		case def.Type.NonNull:
			return nil, fmt.Errorf("variable $%s of required type %s was not provided", def.Variable, def.Type)
		default:
			continue
		}
		if v == nil && def.Type.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", def.Variable, def.Type)
		}
		cv, err := c.value(v, typeRefOf(def.Type))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", def.Variable, def.Type, err)
		}
		out[def.Variable] = cv
	}
	return out, nil
}

func (c coercer) value(v any, typ *schema.TypeRef) (any, error) {
	if schema.IsNonNull(typ) {
		if v == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return c.value(v, schema.Unwrap(typ))
	}
	if v == nil {
		return nil, nil
	}
	if schema.IsList(typ) {
		return c.list(v, schema.Unwrap(typ))
	}

	name := schema.GetNamedType(typ)
	if scalar, ok := builtinScalars[name]; ok {
		return scalar(v)
	}
	t := c.schema.Types[name]
	if t == nil {
		return v, nil
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		return c.enum(t, v)
	case schema.TypeKindInputObject:
		return c.inputObject(t, v)
	}
	return v, nil
}

// list coerces each item; a single value becomes a list of one.
func (c coercer) list(v any, elem *schema.TypeRef) (any, error) {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	out := make([]any, len(items))
	for i, item := range items {
		cv, err := c.value(item, elem)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func (c coercer) enum(t *schema.Type, v any) (any, error) {
	name, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("enum %s expects a name, got %T", t.Name, v)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("%q is not a value of enum %s", name, t.Name)
}

// inputObject coerces the provided fields, applies declared defaults and
// rejects unknown or missing required fields. Omitted fields without a
// default stay absent.
func (c coercer) inputObject(t *schema.Type, v any) (any, error) {
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input object %s expects an object, got %T", t.Name, v)
	}
	for name := range fields {
		if t.InputFieldByName(name) == nil {
			return nil, fmt.Errorf("field '%s' is not defined by input object %s", name, t.Name)
		}
	}
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		fv, present := fields[f.Name]
		if !present {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("required field '%s' of input object %s was not provided", f.Name, t.Name)
			}
			continue
		}
		cv, err := c.value(fv, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of input object %s: %w", f.Name, t.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

// arguments coerces the arguments of a field. Problems are recorded at path
// and the argument is left out. An argument bound to an omitted variable is
// treated as omitted.
func (e *execution) arguments(def *schema.Field, args language.ArgumentList, path Path) map[string]any {
	c := coercer{e.schema}
	out := make(map[string]any, len(def.Arguments))
	for _, arg := range args {
		argDef := def.ArgumentByName(arg.Name)
		if argDef == nil {
			continue
		}
		if arg.Value != nil && arg.Value.Kind == language.Variable {
			if _, ok := e.vars[arg.Value.Raw]; !ok {
				continue
			}
		}
		cv, err := c.value(literal(arg.Value, e.vars), argDef.Type)
		if err != nil {
			e.fail(path, fmt.Errorf("argument '%s' cannot be coerced: %v", arg.Name, err))
			continue
		}
		out[arg.Name] = cv
	}
	for _, argDef := range def.Arguments {
		if _, ok := out[argDef.Name]; ok {
			continue
		}
		if argDef.DefaultValue != nil {
			out[argDef.Name] = argDef.DefaultValue
		} else if schema.IsNonNull(argDef.Type) {
			e.fail(path, fmt.Errorf("argument '%s' of required type was not provided", argDef.Name))
		}
	}
	return out
}

// literal converts a query value to Go, reading variables from vars.
func literal(v *language.Value, vars map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return vars[v.Raw]
	case language.IntValue:
		if i, err := strconv.Atoi(v.Raw); err == nil {
			return i
		}
		// out of range; left to the scalar coercion to accept or reject
		return json.Number(v.Raw)
	case language.FloatValue:
		if f, err := strconv.ParseFloat(v.Raw, 64); err == nil {
			return f
		}
		return json.Number(v.Raw)
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, child := range v.Children {
			out[i] = literal(child.Value, vars)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			out[child.Name] = literal(child.Value, vars)
		}
		return out
	}
	return nil
}

func typeRefOf(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefOf(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}

var builtinScalars = map[string]func(any) (any, error){
	"Int":     coerceInt,
	"Float":   coerceFloat,
	"String":  coerceString,
	"Boolean": coerceBoolean,
	"ID":      coerceID,
}

func coerceInt(v any) (any, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case float32:
		if v == float32(int(v)) {
			return int(v), nil
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", v, v)
}

func coerceFloat(v any) (any, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", v, v)
}

func coerceString(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func coerceBoolean(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", v, v)
}

func coerceID(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return fmt.Sprint(v), nil
}
