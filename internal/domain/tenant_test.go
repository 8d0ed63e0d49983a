package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "79991234567", DigitsOnly("+79991234567"))
	assert.Equal(t, "79991234567", DigitsOnly("79991234567"))
	assert.Equal(t, "79991234567", DigitsOnly("+7 (999) 123-45-67"))
	assert.Equal(t, "", DigitsOnly("+"))
}

func TestNormalizeContactPhone(t *testing.T) {
	assert.Equal(t, "79991234567", NormalizeContactPhone("89991234567"))
	assert.Equal(t, "79991234567", NormalizeContactPhone("+79991234567"))
	assert.Equal(t, "79991234567", NormalizeContactPhone("+8 999 123 45 67"))
	// не российский формат не трогаем
	assert.Equal(t, "8123", NormalizeContactPhone("8123"))
	assert.Equal(t, "4915112345678", NormalizeContactPhone("+4915112345678"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "79*******67", MaskPhone("79991234567"))
	assert.Equal(t, "****", MaskPhone("123"))
}
