package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Gạo ST25 túi 5kg", "gao-st25-tui-5kg"},
		{"Đường   cát!", "duong-cat"},
		{"  Nước mắm Phú Quốc  ", "nuoc-mam-phu-quoc"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestSKU(t *testing.T) {
	assert.Equal(t, "GAO-ST25", SKU("Gạo ST25", 0))
	assert.Equal(t, "NUOC-MAM", SKU("Nước mắm Phú Quốc", 9))
	assert.Equal(t, "", SKU("", 10))
}
