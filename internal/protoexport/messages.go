package protoexport

import (
	"fmt"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/hanpama/typegraph/internal/schema"
)

func (b *builder) addEnum(typ *schema.Type) error {
	eb := protobuilder.NewEnum(protoreflect.Name(typ.Name))
	eb.SetComments(comment(typ.Description))
	b.enums[typ.Name] = eb

	// proto3 enums open with a zero value.
	zero := protobuilder.NewEnumValue(nameEnumValue(typ.Name, "UNSPECIFIED"))
	zero.SetNumber(0)
	eb.AddValue(zero)

	values := make([]*protobuilder.EnumValueBuilder, 0, len(typ.EnumValues))
	for _, v := range typ.EnumValues {
		if v.Name == "UNSPECIFIED" {
			continue
		}
		evb := protobuilder.NewEnumValue(nameEnumValue(typ.Name, v.Name))
		evb.SetComments(comment(v.Description))
		if v.IsDeprecated {
			evb.SetOptions(&descriptorpb.EnumValueOptions{Deprecated: proto.Bool(true)})
		}
		eb.AddValue(evb)
		values = append(values, evb)
	}
	if err := allocateEnumValueNumbers(values); err != nil {
		return fmt.Errorf("enum %s: %w", typ.Name, err)
	}
	b.file.AddEnum(eb)
	return nil
}

// addObjectFields adds the plain fields of an object to its message. Fields
// with arguments or batched resolution become methods instead.
func (b *builder) addObjectFields(typ *schema.Type) error {
	mb := b.messages[typ.Name]
	fields := make([]*protobuilder.FieldBuilder, 0, len(typ.Fields))
	for _, f := range typ.Fields {
		if len(f.Arguments) > 0 || f.Async {
			if err := b.addMethod(typ, f, false); err != nil {
				return err
			}
			continue
		}
		fb, err := b.newField(f.Name, f.Description, f.Type)
		if err != nil {
			return err
		}
		if f.IsDeprecated {
			fb.SetOptions(&descriptorpb.FieldOptions{Deprecated: proto.Bool(true)})
		}
		mb.AddField(fb)
		fields = append(fields, fb)
	}
	return allocateFieldNumbers(fields)
}

// addChoices gives an abstract type's message a oneof over its possible
// types.
func (b *builder) addChoices(typ *schema.Type) error {
	mb := b.messages[typ.Name]
	oneof := protobuilder.NewOneof("value")
	mb.AddOneOf(oneof)

	fields := make([]*protobuilder.FieldBuilder, 0, len(typ.PossibleTypes))
	for _, name := range typ.PossibleTypes {
		member, ok := b.messages[name]
		if !ok {
			return fmt.Errorf("possible type %s has no message", name)
		}
		fb := protobuilder.NewField(nameField(name), protobuilder.FieldTypeMessage(member))
		oneof.AddChoice(fb)
		fields = append(fields, fb)
	}
	return allocateFieldNumbers(fields)
}

func (b *builder) addInputFields(typ *schema.Type) error {
	mb := b.messages[typ.Name]
	fields := make([]*protobuilder.FieldBuilder, 0, len(typ.InputFields))
	for _, v := range typ.InputFields {
		fb, err := b.newField(v.Name, v.Description, v.Type)
		if err != nil {
			return err
		}
		mb.AddField(fb)
		fields = append(fields, fb)
	}
	return allocateFieldNumbers(fields)
}
