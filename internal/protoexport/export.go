// Package protoexport describes a built GraphQL schema as a proto3 file:
// object, interface, union and input types become messages, enums become
// enums, and fields that need resolving become service methods.
package protoexport

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/jhump/protoreflect/v2/protoprint"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/typegraph/internal/schema"
)

// Options controls the generated file.
type Options struct {
	// Package is the proto package, for example "bookstore.v1".
	Package string
	// Path is the file path recorded in the descriptor. It defaults to the
	// package with dots turned into slashes and a ".proto" suffix.
	Path string
	// Service names the service holding resolver methods. Default "Graph".
	Service string
	// Scalars maps custom scalar names to proto kinds. Custom scalars not
	// listed here become strings.
	Scalars map[string]protoreflect.Kind
}

var defaultScalars = map[string]protoreflect.Kind{
	"String":  protoreflect.StringKind,
	"ID":      protoreflect.StringKind,
	"Int":     protoreflect.Int32Kind,
	"Float":   protoreflect.DoubleKind,
	"Boolean": protoreflect.BoolKind,
	"Long":    protoreflect.Int64Kind,
	"Bytes":   protoreflect.BytesKind,
}

type builder struct {
	schema   *schema.Schema
	scalars  map[string]protoreflect.Kind
	file     *protobuilder.FileBuilder
	service  *protobuilder.ServiceBuilder
	messages map[string]*protobuilder.MessageBuilder
	enums    map[string]*protobuilder.EnumBuilder
	methods  int
}

// Build converts s to a file descriptor.
func Build(s *schema.Schema, opt Options) (protoreflect.FileDescriptor, error) {
	if opt.Package == "" {
		return nil, fmt.Errorf("a proto package name is required")
	}
	if opt.Path == "" {
		opt.Path = strings.ReplaceAll(opt.Package, ".", "/") + ".proto"
	}
	if opt.Service == "" {
		opt.Service = "Graph"
	}
	b := &builder{
		schema:   s,
		scalars:  make(map[string]protoreflect.Kind, len(defaultScalars)+len(opt.Scalars)),
		messages: make(map[string]*protobuilder.MessageBuilder),
		enums:    make(map[string]*protobuilder.EnumBuilder),
	}
	for k, v := range defaultScalars {
		b.scalars[k] = v
	}
	for k, v := range opt.Scalars {
		b.scalars[k] = v
	}

	b.file = protobuilder.NewFile(opt.Path)
	b.file.SetPackageName(protoreflect.FullName(opt.Package))
	b.file.SetSyntax(protoreflect.Proto3)
	b.service = protobuilder.NewService(nameService(opt.Service))

	names := b.typeNames()

	// Pass 1: declare every message and enum so fields can refer to them.
	for _, name := range names {
		typ := s.Types[name]
		switch {
		case b.isRoot(name):
		case typ.Kind == schema.TypeKindEnum:
			if err := b.addEnum(typ); err != nil {
				return nil, err
			}
		case typ.Kind != schema.TypeKindScalar:
			mb := protobuilder.NewMessage(protoreflect.Name(typ.Name))
			mb.SetComments(comment(typ.Description))
			b.messages[typ.Name] = mb
			b.file.AddMessage(mb)
		}
	}

	// Pass 2: fill messages and collect resolver methods.
	for _, name := range names {
		typ := s.Types[name]
		var err error
		switch {
		case b.isRoot(name):
			err = b.addRootMethods(typ)
		case typ.Kind == schema.TypeKindObject:
			err = b.addObjectFields(typ)
		case typ.Kind == schema.TypeKindInterface, typ.Kind == schema.TypeKindUnion:
			err = b.addChoices(typ)
		case typ.Kind == schema.TypeKindInputObject:
			err = b.addInputFields(typ)
		}
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
	}

	if b.methods > 0 {
		b.file.AddService(b.service)
	}
	return b.file.Build()
}

// typeNames lists the user types of the schema in name order.
func (b *builder) typeNames() []string {
	names := make([]string, 0, len(b.schema.Types))
	for name := range b.schema.Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *builder) isRoot(name string) bool {
	return name == b.schema.QueryType || name == b.schema.MutationType || name == b.schema.SubscriptionType
}

type resolvedType struct {
	isRepeated bool
	isOptional bool
	fieldType  *protobuilder.FieldType
}

func (b *builder) resolveTypeRef(ref *schema.TypeRef) (resolvedType, error) {
	switch ref.Kind {
	case schema.TypeRefKindNamed:
		ft, err := b.namedFieldType(ref.Named)
		if err != nil {
			return resolvedType{}, err
		}
		return resolvedType{isOptional: true, fieldType: ft}, nil
	case schema.TypeRefKindList:
		elem, err := b.resolveTypeRef(ref.OfType)
		if err != nil {
			return resolvedType{}, err
		}
		if elem.isRepeated {
			return resolvedType{}, fmt.Errorf("nested list %s has no proto representation", typeString(ref))
		}
		return resolvedType{isRepeated: true, fieldType: elem.fieldType}, nil
	case schema.TypeRefKindNonNull:
		inner, err := b.resolveTypeRef(ref.OfType)
		if err != nil {
			return resolvedType{}, err
		}
		inner.isOptional = false
		return inner, nil
	}
	return resolvedType{}, fmt.Errorf("unknown type reference kind %q", ref.Kind)
}

func (b *builder) namedFieldType(name string) (*protobuilder.FieldType, error) {
	if mb, ok := b.messages[name]; ok {
		return protobuilder.FieldTypeMessage(mb), nil
	}
	if eb, ok := b.enums[name]; ok {
		return protobuilder.FieldTypeEnum(eb), nil
	}
	typ, ok := b.schema.Types[name]
	if !ok || typ.Kind != schema.TypeKindScalar {
		return nil, fmt.Errorf("type %s cannot be used as a proto field", name)
	}
	kind, ok := b.scalars[name]
	if !ok {
		kind = protoreflect.StringKind
	}
	return protobuilder.FieldTypeScalar(kind), nil
}

// newField builds a field of the given GraphQL type.
func (b *builder) newField(name, description string, ref *schema.TypeRef) (*protobuilder.FieldBuilder, error) {
	rt, err := b.resolveTypeRef(ref)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	fb := protobuilder.NewField(nameField(name), rt.fieldType)
	fb.SetComments(comment(description))
	// Message fields carry presence already.
	if rt.isOptional && rt.fieldType.Kind() != protoreflect.MessageKind {
		fb.SetProto3Optional(true)
	}
	if rt.isRepeated {
		fb.SetRepeated()
	}
	return fb, nil
}

func typeString(ref *schema.TypeRef) string {
	switch ref.Kind {
	case schema.TypeRefKindList:
		return "[" + typeString(ref.OfType) + "]"
	case schema.TypeRefKindNonNull:
		return typeString(ref.OfType) + "!"
	}
	return ref.Named
}

// Render prints fd as proto source.
func Render(w io.Writer, fd protoreflect.FileDescriptor) error {
	pp := protoprint.Printer{}
	return pp.PrintProtoFile(fd, w)
}

// WriteFile renders fd below outDir at the descriptor's path.
func WriteFile(outDir string, fd protoreflect.FileDescriptor) error {
	fp := path.Join(outDir, fd.Path())
	if err := os.MkdirAll(path.Dir(fp), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Render(f, fd); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
