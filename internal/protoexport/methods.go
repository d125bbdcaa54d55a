package protoexport

import (
	"fmt"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/typegraph/internal/schema"
)

// addRootMethods turns every field of a root type into a method.
// Subscription fields stream their responses.
func (b *builder) addRootMethods(typ *schema.Type) error {
	for _, f := range typ.Fields {
		if err := b.addMethod(typ, f, typ.Name == b.schema.SubscriptionType); err != nil {
			return err
		}
	}
	return nil
}

// addMethod adds the resolver method of field f. Fields of non-root types
// receive their parent as the source field of the request. Async fields get
// a batch method taking many requests at once.
func (b *builder) addMethod(typ *schema.Type, f *schema.Field, stream bool) error {
	name := nameResolverMethod(typ.Name, f.Name)
	req, err := b.request(name+"Request", typ, f)
	if err != nil {
		return fmt.Errorf("field %s: %w", f.Name, err)
	}
	res, err := b.response(name+"Response", f)
	if err != nil {
		return fmt.Errorf("field %s: %w", f.Name, err)
	}

	if f.Async && !stream {
		name = nameBatchResolverMethod(typ.Name, f.Name)
		req = b.batchOf(name+"Request", req)
		res = b.batchOf(name+"Response", res)
	}

	mb := protobuilder.NewMethod(name,
		protobuilder.RpcTypeMessage(req, false),
		protobuilder.RpcTypeMessage(res, stream),
	)
	mb.SetComments(comment(f.Description))
	b.service.AddMethod(mb)
	b.methods++
	return nil
}

func (b *builder) request(name protoreflect.Name, typ *schema.Type, f *schema.Field) (*protobuilder.MessageBuilder, error) {
	mb := protobuilder.NewMessage(name)
	fields := make([]*protobuilder.FieldBuilder, 0, len(f.Arguments)+1)
	if !b.isRoot(typ.Name) {
		source := protobuilder.NewField("source", protobuilder.FieldTypeMessage(b.messages[typ.Name]))
		mb.AddField(source)
		fields = append(fields, source)
	}
	for _, arg := range f.Arguments {
		fb, err := b.newField(arg.Name, arg.Description, arg.Type)
		if err != nil {
			return nil, err
		}
		if fb.Name() == "source" && !b.isRoot(typ.Name) {
			return nil, fmt.Errorf("argument %s clashes with the source field", arg.Name)
		}
		mb.AddField(fb)
		fields = append(fields, fb)
	}
	if err := allocateFieldNumbers(fields); err != nil {
		return nil, err
	}
	b.file.AddMessage(mb)
	return mb, nil
}

func (b *builder) response(name protoreflect.Name, f *schema.Field) (*protobuilder.MessageBuilder, error) {
	mb := protobuilder.NewMessage(name)
	fb, err := b.newField("data", "", f.Type)
	if err != nil {
		return nil, err
	}
	fb.SetNumber(1)
	mb.AddField(fb)
	b.file.AddMessage(mb)
	return mb, nil
}

func (b *builder) batchOf(name protoreflect.Name, single *protobuilder.MessageBuilder) *protobuilder.MessageBuilder {
	mb := protobuilder.NewMessage(name)
	fb := protobuilder.NewField("batches", protobuilder.FieldTypeMessage(single))
	fb.SetNumber(1)
	fb.SetRepeated()
	mb.AddField(fb)
	b.file.AddMessage(mb)
	return mb
}
