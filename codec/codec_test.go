package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type arrayHeader struct {
	DType string  `json:"dtype" yaml:"dtype"`
	Shape []int64 `json:"shape" yaml:"shape"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json", "yaml"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecs_Interchangeable(t *testing.T) {
	in := arrayHeader{DType: "F32", Shape: []int64{10, 16}}

	// go-json and encoding/json produce compatible documents.
	data := MustMarshal(GoJSON{}, in)
	var out arrayHeader
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	data = MustMarshal(nil, in)
	out = arrayHeader{}
	require.NoError(t, GoJSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestYAML(t *testing.T) {
	var out arrayHeader
	require.NoError(t, YAML{}.Unmarshal([]byte("dtype: F16\nshape: [4, 8]\n"), &out))
	assert.Equal(t, arrayHeader{DType: "F16", Shape: []int64{4, 8}}, out)
}

func TestMustMarshal_Panics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
