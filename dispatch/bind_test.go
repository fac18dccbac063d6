package dispatch

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/signature"
)

type vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func TestBind_Primitives(t *testing.T) {
	d, err := Bind("add-optional", func(a int32, b *int32) int32 {
		if b != nil {
			return a + *b
		}
		return a
	}, WithParamNames("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, "add_optional", d.Plan().Symbol())
	assert.Equal(t, "2", d.CallWire(context.Background(), []string{"2"}))
	assert.Equal(t, "5", d.CallWire(context.Background(), []string{"2", "3"}))
}

func TestBind_Context(t *testing.T) {
	type key struct{}
	d, err := Bind("whoami", func(ctx context.Context) string {
		return ctx.Value(key{}).(string)
	})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), key{}, "host")
	assert.Equal(t, "host", d.CallWire(ctx, nil))
}

func TestBind_Fallible(t *testing.T) {
	d, err := Bind("parse-port", func(s string) (uint16, error) {
		if s == "" {
			return 0, stderrors.New("empty port")
		}
		return 8080, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "8080", d.CallWire(context.Background(), []string{"x"}))
	assert.Equal(t, "@@ERR@@|FN||empty port", d.CallWire(context.Background(), []string{""}))
}

func TestBind_Structured(t *testing.T) {
	d, err := Bind("scale", func(v vec, k float64) vec {
		return vec{X: v.X * k, Y: v.Y * k}
	}, WithParamNames("v", "k"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"x":2,"y":4}`, d.CallWire(context.Background(), []string{`{"x":1,"y":2}`, "2"}))

	diag, ok := errors.ParseWire(d.CallWire(context.Background(), []string{`{"x":1,"z":2}`, "2"}))
	require.True(t, ok)
	assert.Equal(t, errors.TypeDeserialize, diag.Type)
}

func TestBind_TransportDisabled(t *testing.T) {
	_, err := Bind("scale", func(v vec) vec { return v },
		WithAnalyzeOptions(signature.Options{StructuredTransport: false}))
	var fe *errors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, errors.KindTransportDisabled, fe.Kind)
}

func TestBind_Panic(t *testing.T) {
	d, err := Bind("index", func(xs []int, i int) int { return xs[i] }, WithParamNames("xs", "i"))
	require.NoError(t, err)

	assert.Equal(t, "3", d.CallWire(context.Background(), []string{"[1,2,3]", "2"}))

	diag, ok := errors.ParseWire(d.CallWire(context.Background(), []string{"[1]", "5"}))
	require.True(t, ok)
	assert.Equal(t, errors.TypePanic, diag.Type)
}

func TestBind_OrderingRejected(t *testing.T) {
	_, err := Bind("f", func(a *int32, b int32) {})
	var fe *errors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, errors.KindOrdering, fe.Kind)
}
