// ABOUTME: Tests for plaintext and bcrypt secret verification
// ABOUTME: Covers matches, mismatches, empty stored values, and mode selection

package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaintextVerifier(t *testing.T) {
	v := PlaintextVerifier{}

	assert.True(t, v.Verify("secret123", "secret123"))
	assert.False(t, v.Verify("secret123", "secret124"))
	assert.False(t, v.Verify("secret123", ""))
	assert.False(t, v.Verify("", "secret123"))
	assert.False(t, v.Verify("", ""))
}

func TestBcryptVerifier(t *testing.T) {
	hash, err := HashSecret("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	v := BcryptVerifier{}
	assert.True(t, v.Verify(hash, "secret123"))
	assert.False(t, v.Verify(hash, "wrong"))
	assert.False(t, v.Verify("", "secret123"))
	assert.False(t, v.Verify("secret123", "secret123"), "a plaintext stored value is not a hash")
}

func TestNewVerifier(t *testing.T) {
	tests := []struct {
		mode    string
		want    string
		wantErr bool
	}{
		{mode: "", want: "plaintext"},
		{mode: "plaintext", want: "plaintext"},
		{mode: "bcrypt", want: "bcrypt"},
		{mode: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			v, err := NewVerifier(tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Name())
		})
	}
}
