package jsonfmt

import (
	"io"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Name is the registry name of the JSON format.
const Name = "json"

type jsonFormat struct{}

func (jsonFormat) Name() string         { return Name }
func (jsonFormat) Extensions() []string { return []string{".json"} }

// Decl returns "": JSON has no comment syntax to carry a content
// declaration.
func (jsonFormat) Decl() string { return "" }

func (jsonFormat) NewWriter(w io.Writer) format.Writer { return NewWriter(w) }

func (jsonFormat) Parse(data []byte, source string) (*policy.Policy, error) {
	return Parse(data, source)
}

func init() {
	format.Register(jsonFormat{})
}
