//go:build strffi_nojson

package transcoder

import (
	"github.com/wippyai/strffi"
	"github.com/wippyai/strffi/errors"
)

// StructuredTransport reports whether structured (JSON) transport is compiled
// in. Build without the strffi_nojson tag to enable it.
const StructuredTransport = false

func defaultStructuredCodec() strffi.StructuredCodec {
	return disabledCodec{}
}

type disabledCodec struct{}

func (disabledCodec) Unmarshal(string, any) error {
	return errors.Unsupported(errors.PhaseDecode, "structured transport is disabled")
}

func (disabledCodec) Marshal(any) (string, error) {
	return "", errors.Unsupported(errors.PhaseEncode, "structured transport is disabled")
}

func lift(ct *CompiledType, _ any, _ []string) (any, error) {
	return nil, errors.Unsupported(errors.PhaseDecode, "structured transport is disabled for "+ct.Name)
}

func lower(ct *CompiledType, _ any, _ []string) (any, error) {
	return nil, errors.Unsupported(errors.PhaseEncode, "structured transport is disabled for "+ct.Name)
}
