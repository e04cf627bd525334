package yamlfmt

import (
	"io"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Name is the registry name of the YAML format.
const Name = "yaml"

type yamlFormat struct{}

func (yamlFormat) Name() string         { return Name }
func (yamlFormat) Extensions() []string { return []string{".yaml", ".yml"} }
func (yamlFormat) Decl() string         { return Decl }

func (yamlFormat) NewWriter(w io.Writer) format.Writer { return NewWriter(w) }

func (yamlFormat) Parse(data []byte, source string) (*policy.Policy, error) {
	return Parse(data, source)
}

func init() {
	format.Register(yamlFormat{})
}
