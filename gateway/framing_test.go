package gateway

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := &Request{Path: RouteInstruction, Payload: []byte("payload bytes")}
	require.NoError(t, WriteRequest(&buf, want))

	got, err := ReadRequest(bufio.NewReader(&buf), 1024)
	require.NoError(t, err)
	assert.Equal(t, want.Path, got.Path)
	assert.Equal(t, want.Payload, got.Payload)
}

func TestReadRequestEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, &Request{Path: RouteQuery}))

	got, err := ReadRequest(bufio.NewReader(&buf), 1024)
	require.NoError(t, err)
	assert.Equal(t, RouteQuery, got.Path)
	assert.Empty(t, got.Payload)
}

func TestReadRequestSequential(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, &Request{Path: RouteInstruction, Payload: []byte("one")}))
	require.NoError(t, WriteRequest(&buf, &Request{Path: RouteBlock, Payload: []byte("two")}))

	r := bufio.NewReader(&buf)

	first, err := ReadRequest(r, 1024)
	require.NoError(t, err)
	assert.Equal(t, RouteInstruction, first.Path)

	second, err := ReadRequest(r, 1024)
	require.NoError(t, err)
	assert.Equal(t, RouteBlock, second.Path)
	assert.Equal(t, []byte("two"), second.Payload)

	// Clean end of stream between requests is plain EOF.
	_, err = ReadRequest(r, 1024)
	assert.Equal(t, io.EOF, err)
}

func TestReadRequestMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"bad request line", "POST /instruction\r\n\r\n"},
		{"bad header", "POST /instruction HTTP/1.1\r\nContent-Length\r\n\r\n"},
		{"missing content length", "POST /instruction HTTP/1.1\r\n\r\n"},
		{"negative content length", "POST /instruction HTTP/1.1\r\nContent-Length: -1\r\n\r\n"},
		{"non numeric content length", "POST /instruction HTTP/1.1\r\nContent-Length: ten\r\n\r\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadRequest(bufio.NewReader(strings.NewReader(tc.input)), 1024)
			assert.Error(t, err)
		})
	}
}

func TestReadRequestPayloadTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, &Request{Path: RouteInstruction, Payload: make([]byte, 128)}))

	_, err := ReadRequest(bufio.NewReader(&buf), 64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestReadRequestHeaderExceedsLimit(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{
			"oversized header line",
			"POST /query HTTP/1.1\r\nX-Filler: " + strings.Repeat("a", 4096) + "\r\nContent-Length: 2\r\n\r\nhi",
		},
		{
			"unterminated request line",
			"POST /" + strings.Repeat("a", 4096),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadRequest(bufio.NewReader(strings.NewReader(tc.input)), 256)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "frame limit")
		})
	}
}

func TestReadRequestTruncatedPayload(t *testing.T) {
	input := "POST /instruction HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), 1024)
	assert.Error(t, err)
}

func TestReadRequestToleratesBareLF(t *testing.T) {
	input := "POST /query HTTP/1.1\nContent-Length: 2\n\nhi"
	got, err := ReadRequest(bufio.NewReader(strings.NewReader(input)), 1024)
	require.NoError(t, err)
	assert.Equal(t, RouteQuery, got.Path)
	assert.Equal(t, []byte("hi"), got.Payload)
}

func TestResponseWireFormat(t *testing.T) {
	assert.Equal(t, []byte("HTTP/1.1 200 OK\r\n\r\n"), OKResponse(nil))
	assert.Equal(t, []byte("HTTP/1.1 200 OK\r\n\r\nresult"), OKResponse([]byte("result")))
	assert.Equal(t, []byte("HTTP/1.1 500 Internal Server Error\r\n\r\n"), ErrorResponse())
}
