package engine

import (
	"io"
	"os"
)

// Plaintext is the default Decryptor for unencrypted model files.
type Plaintext struct{}

func (Plaintext) Decrypt(path string) (io.ReadCloser, error) {
	return os.Open(path)
}
