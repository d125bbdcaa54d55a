package protoexport

import (
	"strings"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func nameField(graphQLName string) protoreflect.Name {
	return protoreflect.Name(snakeCase(graphQLName))
}

func nameEnumValue(enumName, valueName string) protoreflect.Name {
	return protoreflect.Name(strings.ToUpper(snakeCase(enumName)) + "_" + strings.ToUpper(valueName))
}

func nameService(serviceName string) protoreflect.Name {
	return protoreflect.Name(capitalize(serviceName) + "Service")
}

func nameResolverMethod(objectType, field string) protoreflect.Name {
	return protoreflect.Name("Resolve" + capitalize(objectType) + capitalize(field))
}

func nameBatchResolverMethod(objectType, field string) protoreflect.Name {
	return protoreflect.Name("BatchResolve" + capitalize(objectType) + capitalize(field))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// snakeCase converts CamelCase or PascalCase to snake_case. Runs of capitals
// stay together, so "userID" becomes "user_id".
func snakeCase(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && rs[i+1] >= 'a' && rs[i+1] <= 'z'
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') || (prev >= 'A' && prev <= 'Z' && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func comment(desc string) protobuilder.Comments {
	if desc == "" {
		return protobuilder.Comments{}
	}
	lines := strings.Split(desc, "\n")
	for i, line := range lines {
		lines[i] = " " + line
	}
	return protobuilder.Comments{LeadingComment: strings.Join(lines, "\n") + "\n"}
}
