package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("ada@tenants.test"))
	assert.False(t, IsValidEmail("ada@tenants"))
	assert.False(t, IsValidEmail("ada tenants@x.io"))
	assert.False(t, IsValidEmail(""))
}

func TestIsValidFullname(t *testing.T) {
	assert.True(t, IsValidFullname("Ada O'Neil-Okafor"))
	assert.True(t, IsValidFullname("Zoë Müller"))
	assert.False(t, IsValidFullname("   "))
	assert.False(t, IsValidFullname("R2D2"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "+2348012345678", NormalizePhone(" +234 (801) 234-5678 "))
	assert.True(t, IsValidPhone("+234 801 234 5678"))
	assert.True(t, IsValidPhone("0801-234-5678"))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("call me"))
	assert.False(t, IsValidPhone("++2348012345678"))
}
