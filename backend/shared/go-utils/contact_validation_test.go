package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSenderAddress(t *testing.T) {
	assert.NoError(t, ValidateSenderAddress("dispatch@drivers.example.com", "drivers.example.com"))
	assert.NoError(t, ValidateSenderAddress("Dispatch@Drivers.Example.com", "drivers.example.com"))

	cases := []struct{ from, domain string }{
		{"", "drivers.example.com"},
		{"dispatch@drivers.example.com", ""},
		{"not-an-email", "drivers.example.com"},
		{"dispatch@other.example.com", "drivers.example.com"},
	}
	for _, c := range cases {
		err := ValidateSenderAddress(c.from, c.domain)
		assert.True(t, errors.Is(err, ErrConfiguration), "from=%q domain=%q", c.from, c.domain)
	}
}

func TestIsE164(t *testing.T) {
	assert.True(t, IsE164("+4915112345678"))
	assert.False(t, IsE164("015112345678"))
	assert.False(t, IsE164("+0123"))
}

func TestRandomURLTokenLengthAndUniqueness(t *testing.T) {
	a, err := RandomURLToken(InviteTokenBytes)
	assert.NoError(t, err)
	b, err := RandomURLToken(InviteTokenBytes)
	assert.NoError(t, err)

	assert.Len(t, a, 43)
	assert.Len(t, b, 43)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, HashToken(a), HashToken(b))
	assert.Equal(t, HashToken(a), HashToken(a))
}
