package uds

import (
	"crypto/aes"
	"testing"

	"github.com/chmike/cmac-go"
	"github.com/stretchr/testify/assert"
)

func TestCMACKeyDeriver(t *testing.T) {
	secret := []byte("0123456789abcdef")
	seed := []byte{0x11, 0x22, 0x33, 0x44}

	derive := CMACKeyDeriver(secret)
	key, err := derive(seed)
	assert.NoError(t, err)
	assert.Equal(t, aes.BlockSize, len(key))

	cm, err := cmac.New(aes.NewCipher, secret)
	assert.NoError(t, err)
	_, err = cm.Write(seed)
	assert.NoError(t, err)
	assert.Equal(t, cm.Sum(nil), key)
}

func TestCMACKeyDeriverRejectsEmptySeed(t *testing.T) {
	derive := CMACKeyDeriver([]byte("0123456789abcdef"))
	_, err := derive(nil)
	assert.Error(t, err)
}

func TestCMACKeyDeriverBadSecret(t *testing.T) {
	derive := CMACKeyDeriver([]byte("short"))
	_, err := derive([]byte{0x01})
	assert.Error(t, err)
}
