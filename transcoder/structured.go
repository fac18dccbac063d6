//go:build !strffi_nojson

package transcoder

import (
	stderrors "errors"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/wippyai/strffi"
)

// StructuredTransport reports whether structured (JSON) transport is compiled
// in. Build with -tags strffi_nojson to remove it.
const StructuredTransport = true

// JSON is the structured transport codec.
type JSON struct{}

var _ strffi.StructuredCodec = JSON{}

var (
	errEmptyDocument = stderrors.New("empty document")
	errTrailingData  = stderrors.New("unexpected data after top-level value")
)

// Unmarshal decodes exactly one JSON value from text into v. Numbers decode
// as json.Number when the destination is untyped. Unknown object fields are
// rejected for typed destinations.
func (JSON) Unmarshal(text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if _, generic := v.(*any); !generic {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errEmptyDocument
		}
		return err
	}

	var extra any
	if err := dec.Decode(&extra); !stderrors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

// Marshal encodes v as compact JSON without HTML escaping.
func (JSON) Marshal(v any) (string, error) {
	data, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func defaultStructuredCodec() strffi.StructuredCodec {
	return JSON{}
}
