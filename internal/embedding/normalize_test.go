package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTexts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"texts list", `{"texts":["a","b"]}`, []string{"a", "b"}},
		{"texts string", `{"texts":"hello"}`, []string{"hello"}},
		{"text fallback", `{"text":"hello"}`, []string{"hello"}},
		{"content fallback", `{"content":["x","y"]}`, []string{"x", "y"}},
		{"texts beats text", `{"texts":["a"],"text":"b"}`, []string{"a"}},
		{"null texts falls back", `{"texts":null,"content":"c"}`, []string{"c"}},
		{"text beats content", `{"text":"t","content":"c"}`, []string{"t"}},
		{"unicode", `{"texts":["你好","世界"]}`, []string{"你好", "世界"}},
		{"surrounding whitespace", "  \n{\"texts\":\"a\"}\n", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTexts([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTexts_Invalid(t *testing.T) {
	bodies := map[string]string{
		"empty body":         ``,
		"whitespace":         "   ",
		"json null":          `null`,
		"empty object":       `{}`,
		"array body":         `["a"]`,
		"malformed":          `{"texts":`,
		"empty list":         `{"texts":[]}`,
		"number":             `{"texts":42}`,
		"object":             `{"texts":{"a":1}}`,
		"mixed list":         `{"texts":["a",1]}`,
		"null item":          `{"texts":["a",null]}`,
		"no known field":     `{"input":"a"}`,
		"null text":          `{"text":null,"content":"c"}`,
		"empty content list": `{"content":[]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeTexts([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
