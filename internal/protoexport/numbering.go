package protoexport

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	maxNumber     = 31767
	reservedFirst = 19000
	reservedLast  = 19999
)

func allocateFieldNumbers(fieldBuilders []*protobuilder.FieldBuilder) error {
	names := make([]string, len(fieldBuilders))
	for i, fb := range fieldBuilders {
		names[i] = string(fb.Name())
	}
	numbers, err := hashNumbers(names)
	if err != nil {
		return err
	}
	for i, fb := range fieldBuilders {
		fb.SetNumber(protoreflect.FieldNumber(numbers[i]))
	}
	return nil
}

func allocateEnumValueNumbers(valueBuilders []*protobuilder.EnumValueBuilder) error {
	names := make([]string, len(valueBuilders))
	for i, evb := range valueBuilders {
		names[i] = string(evb.Name())
	}
	numbers, err := hashNumbers(names)
	if err != nil {
		return err
	}
	for i, evb := range valueBuilders {
		evb.SetNumber(protoreflect.EnumNumber(numbers[i]))
	}
	return nil
}

// hashNumbers gives every name a tag in 1..31767 derived from its FNV-32a
// hash, so adding a field never renumbers the others. Collisions and the
// range reserved by protobuf probe linearly; names are visited in sorted
// order so the outcome does not depend on declaration order.
func hashNumbers(names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) > maxNumber-(reservedLast-reservedFirst+1) {
		return nil, fmt.Errorf("%d names exceed the available tag numbers", len(names))
	}
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return names[order[i]] < names[order[j]] })

	out := make([]int, len(names))
	used := make(map[int]bool, len(names))
	for _, idx := range order {
		cand := int(fnv32(names[idx])%maxNumber) + 1
		for used[cand] || (cand >= reservedFirst && cand <= reservedLast) {
			cand++
			if cand > maxNumber {
				cand = 1
			}
		}
		used[cand] = true
		out[idx] = cand
	}
	return out, nil
}

func fnv32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
