//go:build property

package build

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTemplateSerializationProperties validates that serializing template
// contents into a module and evaluating the resulting string literal is
// lossless for arbitrary input.
func TestTemplateSerializationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("serialization round-trips arbitrary content", prop.ForAll(
		func(contents string) bool {
			decoded, err := decodeTemplateModule(SerializeTemplateModule(contents))
			return err == nil && decoded == contents
		},
		gen.AnyString(),
	))

	properties.Property("serialized literal never contains a raw newline", prop.ForAll(
		func(contents string) bool {
			module := SerializeTemplateModule(contents)
			// The only newline is the trailing one after the statement.
			body := module[:len(module)-1]
			for _, r := range body {
				if r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029' {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
