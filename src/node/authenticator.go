package node

import (
	"crypto/hmac"
	"crypto/rand"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"
)

const (
	challengeSize    = 32
	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 4096
)

// authenticator proves knowledge of the table password without sending it.
// The key is derived from the password with PBKDF2 over SHA3-256; the
// response to a challenge is the HMAC-SHA3-256 of the challenge under that
// key.
type authenticator struct {
	key []byte
}

func newAuthenticator(password []byte, salt []byte) *authenticator {
	return &authenticator{
		key: pbkdf2.Key(password, salt, pbkdf2Iterations, keySize, sha3.New256),
	}
}

// respond returns the response to challenge.
func (a *authenticator) respond(challenge []byte) []byte {
	mac := hmac.New(sha3.New256, a.key)
	mac.Write(challenge)
	return mac.Sum(nil)
}

// verify checks response in constant time.
func (a *authenticator) verify(challenge []byte, response []byte) bool {
	return hmac.Equal(a.respond(challenge), response)
}

func (a *authenticator) dispose() {
	for i := range a.key {
		a.key[i] = 0
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
