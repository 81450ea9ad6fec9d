package encryption

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEncrypter(t *testing.T) {
	fs := afero.NewMemMapFs()
	log := zap.NewNop().Sugar()

	// Key too short
	_, err := New(log, &EncrypterConfig{Key: "tooshortkey", FS: fs})
	require.EqualError(t, err, "key length: 11 invalid, must be 32 bytes")

	// Key too long
	_, err = New(log, &EncrypterConfig{Key: "toolooooooooooooooooooooooooooooooooongkey", FS: fs})
	require.EqualError(t, err, "key length: 42 invalid, must be 32 bytes")

	_, err = New(log, &EncrypterConfig{Key: "äöüäöüäöüäöüäöüä", FS: fs})
	require.EqualError(t, err, "key must only contain ascii characters")

	e, err := New(log, &EncrypterConfig{Key: "01234567891234560123456789123456", FS: fs})
	require.NoError(t, err)

	cleartextInput := []byte("This is the content of the file")
	err = afero.WriteFile(fs, "encrypt", cleartextInput, 0600)
	require.NoError(t, err)

	output, err := e.Encrypt("encrypt")
	require.NoError(t, err)
	require.Equal(t, "encrypt"+suffix, output)

	encryptedText, err := afero.ReadFile(fs, output)
	require.NoError(t, err)
	require.NotEqual(t, cleartextInput, encryptedText)

	cleartextFile, err := e.Decrypt(output)
	require.NoError(t, err)

	cleartext, err := afero.ReadFile(fs, cleartextFile)
	require.NoError(t, err)
	require.Equal(t, cleartextInput, cleartext)

	// decrypting a file without the suffix must be refused
	_, err = e.Decrypt("encrypt")
	require.Error(t, err)
}

func TestIsEncrypted(t *testing.T) {
	require.True(t, IsEncrypted("dump.tar.gz.aes"))
	require.False(t, IsEncrypted("dump.tar.gz"))
}
