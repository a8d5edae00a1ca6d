package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(empty)", MaskKey(""))
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "****", MaskKey("fifteen-chars-x"))
	assert.Equal(t, "sk-ant-a...wxyz", MaskKey("sk-ant-api03-abcdefwxyz"))
}

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"content": "<thinking>1 & 2</thinking>"})
	require.NoError(t, err)
	assert.Equal(t, `{"content":"<thinking>1 & 2</thinking>"}`, string(out))
}
