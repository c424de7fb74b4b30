package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSON(&buf, map[string]string{"url": "https://repo.msys2.org/msys/x86_64/a"}))

	assert.Equal(t, "{\n\t\"url\": \"https://repo.msys2.org/msys/x86_64/a\"\n}\n", buf.String())
}

func TestWriteJSON_Unsupported(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSON(&buf, make(chan int))

	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
