package uds

import (
	"crypto/aes"
	"errors"

	"github.com/chmike/cmac-go"
)

// KeyDeriver computes the SecurityAccess key for a seed issued by the
// server. The algorithm is ECU specific; callers supply their own or use
// CMACKeyDeriver.
type KeyDeriver func(seed []byte) ([]byte, error)

// CMACKeyDeriver derives the key as AES-CMAC(secret, seed), a common
// scheme for ECUs with 16 byte secrets.
func CMACKeyDeriver(secret []byte) KeyDeriver {
	return func(seed []byte) ([]byte, error) {
		if len(seed) == 0 {
			return nil, errors.New("uds: empty seed")
		}
		cm, err := cmac.New(aes.NewCipher, secret)
		if err != nil {
			return nil, err
		}
		if _, err := cm.Write(seed); err != nil {
			return nil, err
		}
		return cm.Sum(nil), nil
	}
}
