package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// suffix is appended on encryption and removed on decryption from given input
const suffix = ".aes"

// Encrypter is used to encrypt/decrypt dump archives
type Encrypter struct {
	fs  afero.Fs
	key string
	log *zap.SugaredLogger
}

type EncrypterConfig struct {
	FS  afero.Fs
	Key string
}

// New creates a new Encrypter with the given key.
// The key must be 32 bytes (AES-256)
func New(log *zap.SugaredLogger, config *EncrypterConfig) (*Encrypter, error) {
	if len(config.Key) != 32 {
		return nil, fmt.Errorf("key length: %d invalid, must be 32 bytes", len(config.Key))
	}
	if !isASCII(config.Key) {
		return nil, fmt.Errorf("key must only contain ascii characters")
	}
	if config.FS == nil {
		config.FS = afero.NewOsFs()
	}

	return &Encrypter{
		log: log,
		key: config.Key,
		fs:  config.FS,
	}, nil
}

// Encrypt the given file with the key and store the result with the suffix appended
func (e *Encrypter) Encrypt(inputPath string) (string, error) {
	outputPath := inputPath + suffix
	e.log.Debugw("encrypting", "input", inputPath, "output", outputPath)

	block, err := e.createCipher()
	if err != nil {
		return "", err
	}

	iv, err := e.generateIV(block)
	if err != nil {
		return "", err
	}

	input, err := e.fs.Open(inputPath)
	if err != nil {
		return "", err
	}
	defer input.Close()

	output, err := e.fs.Create(outputPath)
	if err != nil {
		return "", err
	}
	defer output.Close()

	if _, err := output.Write(iv); err != nil {
		return "", fmt.Errorf("could not write iv: %w", err)
	}

	if err := e.stream(input, output, block, iv); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Decrypt the given file with the key and store the result with the suffix removed
func (e *Encrypter) Decrypt(inputPath string) (string, error) {
	if !IsEncrypted(inputPath) {
		return "", fmt.Errorf("input is not encrypted: %s", inputPath)
	}

	outputPath := strings.TrimSuffix(inputPath, suffix)
	e.log.Debugw("decrypting", "input", inputPath, "output", outputPath)

	block, err := e.createCipher()
	if err != nil {
		return "", err
	}

	input, err := e.fs.Open(inputPath)
	if err != nil {
		return "", err
	}
	defer input.Close()

	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(input, iv); err != nil {
		return "", fmt.Errorf("could not read iv: %w", err)
	}

	output, err := e.fs.Create(outputPath)
	if err != nil {
		return "", err
	}
	defer output.Close()

	if err := e.stream(input, output, block, iv); err != nil {
		return "", err
	}

	return outputPath, nil
}

// IsEncrypted tests if the target file carries the encryption suffix
func IsEncrypted(path string) bool {
	return filepath.Ext(path) == suffix
}

// Extension returns the file extension of encrypted files
func (e *Encrypter) Extension() string {
	return suffix
}

func isASCII(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// createCipher returns a new cipher block for encryption/decryption based on the key
func (e *Encrypter) createCipher() (cipher.Block, error) {
	return aes.NewCipher([]byte(e.key))
}

// generateIV returns a unique initialization vector of the same size as the cipher block
func (e *Encrypter) generateIV(block cipher.Block) ([]byte, error) {
	iv := make([]byte, block.BlockSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// stream transforms input to output using CTR mode, CTR is symmetric so this serves both directions
func (e *Encrypter) stream(input io.Reader, output io.Writer, block cipher.Block, iv []byte) error {
	stream := cipher.NewCTR(block, iv)
	writer := &cipher.StreamWriter{S: stream, W: output}

	if _, err := io.Copy(writer, input); err != nil {
		return fmt.Errorf("error streaming cipher text: %w", err)
	}

	return nil
}
