package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloatRoundTrips(t *testing.T) {
	require.Equal(t, float32(3.5), DecodeF32(EncodeF32(3.5)))
	require.Equal(t, float64(-2.25), DecodeF64(EncodeF64(-2.25)))
}

func TestIntegerRoundTrips(t *testing.T) {
	require.Equal(t, int32(-1), DecodeI32(EncodeI32(-1)))
	require.Equal(t, int64(-1), DecodeI64(EncodeI64(-1)))
}

func TestValueTypeNameCoversEveryType(t *testing.T) {
	for _, tc := range []struct {
		vt   ValueType
		want string
	}{
		{ValueTypeI32, "i32"},
		{ValueTypeI64, "i64"},
		{ValueTypeF32, "f32"},
		{ValueTypeF64, "f64"},
		{ValueTypeV128, "v128"},
		{ValueTypeFuncref, "funcref"},
		{ValueTypeExternref, "externref"},
	} {
		require.Equal(t, tc.want, ValueTypeName(tc.vt))
	}
}
