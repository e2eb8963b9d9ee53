package gateway

import (
	"bufio"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/go-tessera/config"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/query"
)

func startTestServer(t *testing.T) (*Server, *PeerContext, chan *types.Transaction, chan *types.PeerMessage) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	gwCfg := cfg.Gateway
	gwCfg.ListenAddr = "127.0.0.1:0"

	pctx, _, _ := newTestContext(t)
	txCh := make(chan *types.Transaction, 1024)
	msgCh := make(chan *types.PeerMessage, 1024)
	pctx.TxOutbox = txCh
	pctx.MsgOutbox = msgCh

	srv := NewServer(gwCfg, pctx)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		require.NoError(t, srv.Stop())
	})

	return srv, pctx, txCh, msgCh
}

func dialGateway(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	return conn, bufio.NewReader(conn)
}

// readStatus consumes one response's status line and the blank line
// after it.
func readStatus(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	status, err := r.ReadString('\n')
	require.NoError(t, err)
	blank, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "\r\n", blank)
	return status
}

func TestServerAcceptsTransaction(t *testing.T) {
	srv, _, txCh, _ := startTestServer(t)

	conn, r := dialGateway(t, srv)
	defer conn.Close()

	payload, err := signedTransfer(t, "alice", 0).Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(conn, &Request{Path: RouteInstruction, Payload: payload}))

	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, r))
	assert.Len(t, txCh, 1)
}

func TestServerKeepsConnectionAfterBadPayload(t *testing.T) {
	srv, _, txCh, _ := startTestServer(t)

	conn, r := dialGateway(t, srv)
	defer conn.Close()

	// Several malformed payloads in a row; each is answered and the
	// connection survives.
	for i := 0; i < 3; i++ {
		require.NoError(t, WriteRequest(conn, &Request{Path: RouteInstruction, Payload: []byte("junk")}))
		assert.Equal(t, "HTTP/1.1 500 Internal Server Error\r\n", readStatus(t, r))
	}
	assert.Len(t, txCh, 0)

	payload, err := signedTransfer(t, "alice", 0).Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(conn, &Request{Path: RouteInstruction, Payload: payload}))

	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, r))
	assert.Len(t, txCh, 1)
}

func TestServerServesQueryBody(t *testing.T) {
	srv, pctx, _, _ := startTestServer(t)

	conn, r := dialGateway(t, srv)
	defer conn.Close()

	req := &query.Request{Kind: query.GetHeight}
	payload, err := req.Encode()
	require.NoError(t, err)

	expected, err := query.NewEngine().Execute(req, pctx.State)
	require.NoError(t, err)

	require.NoError(t, WriteRequest(conn, &Request{Path: RouteQuery, Payload: payload}))
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, r))

	body := make([]byte, len(expected))
	_, err = io.ReadFull(r, body)
	require.NoError(t, err)
	assert.Equal(t, expected, body)
}

func TestServerAbortsConnectionOnUnknownPath(t *testing.T) {
	srv, _, txCh, msgCh := startTestServer(t)

	conn, r := dialGateway(t, srv)
	defer conn.Close()

	require.NoError(t, WriteRequest(conn, &Request{Path: "/metrics", Payload: []byte("x")}))

	// No response at all: the server drops the connection.
	_, err := r.ReadByte()
	assert.Equal(t, io.EOF, err)
	assert.Len(t, txCh, 0)
	assert.Len(t, msgCh, 0)

	// Other connections are unaffected.
	conn2, r2 := dialGateway(t, srv)
	defer conn2.Close()

	payload, err := signedTransfer(t, "alice", 0).Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(conn2, &Request{Path: RouteInstruction, Payload: payload}))
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, r2))
}

func TestServerConcurrentConnections(t *testing.T) {
	srv, _, txCh, _ := startTestServer(t)

	const conns = 8
	const requestsPerConn = 20

	payload, err := signedTransfer(t, "alice", 0).Encode()
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, conns)

	for c := 0; c < conns; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := net.Dial("tcp", srv.Addr().String())
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			r := bufio.NewReader(conn)

			for i := 0; i < requestsPerConn; i++ {
				if err := WriteRequest(conn, &Request{Path: RouteInstruction, Payload: payload}); err != nil {
					errs <- err
					return
				}
				status, err := r.ReadString('\n')
				if err != nil {
					errs <- err
					return
				}
				if _, err := r.ReadString('\n'); err != nil {
					errs <- err
					return
				}
				if status != "HTTP/1.1 200 OK\r\n" {
					errs <- io.ErrUnexpectedEOF
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Exactly one enqueue per successful request, no more, no fewer.
	assert.Len(t, txCh, conns*requestsPerConn)
}

func TestServerStopSeversIdleConnections(t *testing.T) {
	srv, _, _, _ := startTestServer(t)

	conn, r := dialGateway(t, srv)
	defer conn.Close()

	// One round trip so the connection is known to have a handler
	// parked in its read loop before shutdown begins.
	payload, err := signedTransfer(t, "alice", 0).Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(conn, &Request{Path: RouteInstruction, Payload: payload}))
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, r))

	done := make(chan error, 1)
	go func() { done <- srv.Stop() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return while a peer sat idle")
	}

	// The idle peer is cut off rather than kept waiting.
	_, err = r.ReadByte()
	assert.Error(t, err)
}

func TestServerFullOutboxStallsOnlyProducer(t *testing.T) {
	srv, pctx, _, _ := startTestServer(t)

	// Capacity-one outbox with nothing consuming it: the second
	// enqueue must block its connection while others keep going.
	tiny := make(chan *types.Transaction, 1)
	pctx.TxOutbox = tiny
	t.Cleanup(func() {
		// Release the stalled handler so shutdown can complete.
		<-tiny
		<-tiny
	})

	producer, pr := dialGateway(t, srv)
	defer producer.Close()

	first, err := signedTransfer(t, "alice", 0).Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(producer, &Request{Path: RouteInstruction, Payload: first}))
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, pr))

	second, err := signedTransfer(t, "alice", 1).Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(producer, &Request{Path: RouteInstruction, Payload: second}))

	// The producer gets no response while its enqueue is stalled.
	require.NoError(t, producer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err = pr.ReadByte()
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())

	// An independent connection is fully serviceable meanwhile.
	other, or := dialGateway(t, srv)
	defer other.Close()

	req := &query.Request{Kind: query.GetHeight}
	payload, err := req.Encode()
	require.NoError(t, err)
	require.NoError(t, WriteRequest(other, &Request{Path: RouteQuery, Payload: payload}))
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", readStatus(t, or))
}
