package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15550000001", NormalizePhone("+1 (555) 000-0001"))
	assert.Equal(t, "+442071234567", NormalizePhone("+44 20.7123.4567"))
	assert.Equal(t, "+15550000001", NormalizePhone("+15550000001"))
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+15550000001", "+44 20 7123 4567", "+1 (555) 000-0001"}
	for _, phone := range valid {
		assert.True(t, ValidatePhone(phone), phone)
	}

	invalid := []string{"", "15550000001", "+0123456", "+1", "555-0001", "+1555abc0001"}
	for _, phone := range invalid {
		assert.False(t, ValidatePhone(phone), phone)
	}
}
