package lorem

import (
	"encoding/base64"
	"math/rand/v2"
	"time"

	loremgen "github.com/bozaro/golorem"

	"github.com/haowjy/tyrell-go"
)

// fakeObject builds an input object that satisfies schema: every property is
// present and non-null, so required-field checks always pass.
func fakeObject(gen *loremgen.Lorem, schema *tyrell.InputSchema) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	return fakeProperties(gen, schema.Properties)
}

func fakeProperties(gen *loremgen.Lorem, properties map[string]*tyrell.Schema) map[string]any {
	out := make(map[string]any, len(properties))
	for name, prop := range properties {
		out[name] = fakeValue(gen, prop, 0)
	}
	return out
}

// fakeValue produces one value for a schema fragment. Integers stay within
// 1..100 so they fit every integer format, including int8 and uint8.
func fakeValue(gen *loremgen.Lorem, s *tyrell.Schema, depth int) any {
	if s == nil {
		return gen.Word(3, 8)
	}

	switch s.Primary() {
	case tyrell.SchemaTypeBoolean:
		return rand.IntN(2) == 1

	case tyrell.SchemaTypeInteger:
		return 1 + rand.IntN(100)

	case tyrell.SchemaTypeNumber:
		return float64(rand.IntN(10000)) / 100

	case tyrell.SchemaTypeString:
		switch {
		case len(s.Enum) > 0:
			return s.Enum[rand.IntN(len(s.Enum))]
		case s.Format == "date-time":
			return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
		case s.Format == "byte":
			return base64.StdEncoding.EncodeToString([]byte(gen.Word(3, 8)))
		default:
			return gen.Sentence(2, 6)
		}

	case tyrell.SchemaTypeArray:
		n := 1 + rand.IntN(3)
		if depth > 3 {
			n = 0
		}
		items := make([]any, n)
		for i := range items {
			items[i] = fakeValue(gen, s.Items, depth+1)
		}
		return items

	case tyrell.SchemaTypeObject:
		if s.Properties != nil {
			out := make(map[string]any, len(s.Properties))
			for name, prop := range s.Properties {
				out[name] = fakeValue(gen, prop, depth+1)
			}
			return out
		}
		out := map[string]any{}
		if s.AdditionalProperties != nil && depth <= 3 {
			out[gen.Word(3, 8)] = fakeValue(gen, s.AdditionalProperties, depth+1)
		}
		return out

	default:
		return gen.Word(3, 8)
	}
}
