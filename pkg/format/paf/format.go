package paf

import (
	"io"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Name is the registry name of the PAF format.
const Name = "paf"

type pafFormat struct{}

func (pafFormat) Name() string          { return Name }
func (pafFormat) Extensions() []string  { return []string{".paf"} }
func (pafFormat) Decl() string          { return Decl }
func (pafFormat) NewWriter(w io.Writer) format.Writer { return NewWriter(w) }

func (pafFormat) Parse(data []byte, source string) (*policy.Policy, error) {
	return Parse(data, source)
}

func init() {
	format.Register(pafFormat{})
}
