package doip_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openmotive/godiag/doip"
	"github.com/openmotive/godiag/doip/doiptest"
)

func TestDiscover(t *testing.T) {
	srv, err := doiptest.NewServer(nil, func(s *doiptest.Server) {
		s.VIN = "1HGCM82633A123456"
		s.Logical = 0x1D01
	})
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	ann, err := doip.Discover(nil, srv.UDPAddr(), 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "1HGCM82633A123456", ann.VIN)
	assert.Equal(t, uint16(0x1D01), ann.LogicalAddress)
	assert.NotNil(t, ann.IP)
	assert.NotZero(t, ann.Port)
}

func TestDiscoverTimeout(t *testing.T) {
	// a UDP socket that never answers
	srv, err := doiptest.NewServer(nil, nil)
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	udpAddr := srv.UDPAddr()
	srv.Close()

	start := time.Now()
	_, err = doip.Discover(nil, udpAddr, 100*time.Millisecond)
	assert.Equal(t, doip.ErrTimeout, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
