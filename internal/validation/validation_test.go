package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "secret1", false},
		{"Exactly Min Length", "abcdef", false},
		{"Exactly Max Length", strings.Repeat("p", 128), false},
		{"Too Short", "abc", true},
		{"Too Long", strings.Repeat("p", 129), true},
		{"Unicode Counts Runes", "पासवर्ड", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	// 254 chars total: 64 local + @ + 185 domain label + ".com" (4)
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "asha@example.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Too Long", "a" + emailAt254, true},
		{"Empty", "", true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Space In Local Part", "user @example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateName("Asha Rao"))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("n", 101)))
}

func TestValidateSliceKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"sherise_cart", false},
		{"notes.v2", false},
		{"user:prefs", false},
		{"", true},
		{strings.Repeat("k", 129), true},
		{"has space", true},
		{"semi;colon", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateSliceKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
