package doip_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openmotive/godiag/doip"
	"github.com/openmotive/godiag/doip/doiptest"
)

const testerAddr uint16 = 0x0E80

func TestConnectAndExchange(t *testing.T) {
	srv, err := doiptest.NewServer(nil, nil)
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	c := doip.NewConn(nil, testerAddr, srv.Addr())
	err = c.Connect()
	assert.NoError(t, err)
	defer c.Disconnect()

	// default handler echoes the payload
	req := []byte{0x3E, 0x00}
	resp, err := c.Exchange(srv.Logical, req)
	assert.NoError(t, err)
	assert.Equal(t, req, resp)
}

func TestConnectRoutingActivationDenied(t *testing.T) {
	srv, err := doiptest.NewServer(nil, func(s *doiptest.Server) {
		s.ActivationCode = doip.RoutingDeniedUnknownSA
	})
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	c := doip.NewConn(nil, testerAddr, srv.Addr())
	err = c.Connect()
	assert.Error(t, err)

	raErr, ok := err.(*doip.RoutingActivationError)
	if assert.True(t, ok, "expected *RoutingActivationError, got %T", err) {
		assert.Equal(t, doip.RoutingDeniedUnknownSA, raErr.Code)
	}

	// the socket was closed again, a send must fail
	err = c.Send(0x1D01, []byte{0x3E, 0x00})
	assert.Equal(t, doip.ErrLinkDown, err)
}

func TestReceiveTimeout(t *testing.T) {
	srv, err := doiptest.NewServer(nil, func(s *doiptest.Server) {
		s.AckDiagnostics = false
		s.Diag = func(request []byte) [][]byte { return nil }
	})
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	c := doip.NewConn(nil, testerAddr, srv.Addr())
	c.SetReadTimeout(50 * time.Millisecond)
	assert.NoError(t, c.Connect())
	defer c.Disconnect()

	assert.NoError(t, c.Send(srv.Logical, []byte{0x22, 0xF1, 0x90}))
	_, _, _, err = c.Receive()
	assert.Equal(t, doip.ErrTimeout, err)

	dErr := err.(*doip.Error)
	assert.True(t, dErr.IsTimeout())
	assert.False(t, dErr.IsDisconnected())
}

func TestReceiveAfterServerDrop(t *testing.T) {
	srv, err := doiptest.NewServer(nil, nil)
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	c := doip.NewConn(nil, testerAddr, srv.Addr())
	c.SetReadTimeout(2 * time.Second)
	assert.NoError(t, c.Connect())
	defer c.Disconnect()

	srv.DropConnections()

	_, _, _, err = c.Receive()
	assert.Equal(t, doip.ErrLinkDown, err)

	dErr := err.(*doip.Error)
	assert.True(t, dErr.IsDisconnected())
}

func TestReconnectAfterServerDrop(t *testing.T) {
	srv, err := doiptest.NewServer(nil, nil)
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	c := doip.NewConn(nil, testerAddr, srv.Addr())
	assert.NoError(t, c.Connect())
	defer c.Disconnect()

	srv.DropConnections()
	_, _, _, err = c.Receive()
	assert.Equal(t, doip.ErrLinkDown, err)

	assert.NoError(t, c.Reconnect())

	req := []byte{0x3E, 0x00}
	resp, err := c.Exchange(srv.Logical, req)
	assert.NoError(t, err)
	assert.Equal(t, req, resp)
}

func TestFramesForOtherTestersAreDropped(t *testing.T) {
	srv, err := doiptest.NewServer(nil, func(s *doiptest.Server) {
		s.AckDiagnostics = false
		s.Diag = func(request []byte) [][]byte {
			// one response for somebody else, then the echo
			return [][]byte{request, request}
		}
	})
	if err != nil {
		t.Fatalf("failed to start loopback entity: %v", err)
	}
	defer srv.Close()

	// both responses target this tester here; the drop path is covered by
	// a second connection with a different logical address
	other := doip.NewConn(nil, 0x0EFF, srv.Addr())
	assert.NoError(t, other.Connect())
	defer other.Disconnect()

	c := doip.NewConn(nil, testerAddr, srv.Addr())
	c.SetReadTimeout(100 * time.Millisecond)
	assert.NoError(t, c.Connect())
	defer c.Disconnect()

	// the other tester's exchange must not leak into this connection
	req := []byte{0x3E, 0x00}
	resp, err := other.Exchange(srv.Logical, req)
	assert.NoError(t, err)
	assert.Equal(t, req, resp)

	_, _, _, err = c.Receive()
	assert.Equal(t, doip.ErrTimeout, err)
}

func TestSendWhenNotConnected(t *testing.T) {
	c := doip.NewConn(nil, testerAddr, "127.0.0.1:1")
	err := c.Send(0x1D01, []byte{0x3E, 0x00})
	assert.Equal(t, doip.ErrLinkDown, err)
}
