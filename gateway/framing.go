package gateway

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The fixed route identifiers clients address. Compared for exact
// equality; no prefix or pattern matching.
const (
	RouteInstruction = "/instruction"
	RouteQuery       = "/query"
	RouteBlock       = "/block"
)

// Wire status lines. A query result is appended immediately after the
// OK line; error responses carry no body.
var (
	respOK            = []byte("HTTP/1.1 200 OK\r\n\r\n")
	respInternalError = []byte("HTTP/1.1 500 Internal Server Error\r\n\r\n")
)

// Request is one framed inbound request: a route path and an opaque
// payload. Immutable once read.
type Request struct {
	Path    string
	Payload []byte
}

// ReadRequest reads one framed request from r. The frame is a minimal
// HTTP-shaped exchange: a request line, a Content-Length header, a
// blank line, then exactly Content-Length payload bytes.
//
// io.EOF is returned unwrapped when the peer closes the stream cleanly
// between requests.
func ReadRequest(r *bufio.Reader, maxPayload int) (*Request, error) {
	// The request line and headers share the frame budget with the
	// payload, so an unterminated or oversized line cannot grow
	// per-connection memory past the configured cap.
	headerBudget := maxPayload

	line, err := readLine(r, &headerBudget)
	if err != nil {
		return nil, err
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed request line %q", line)
	}
	path := parts[1]

	contentLength := -1
	for {
		header, err := readLine(r, &headerBudget)
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if header == "" {
			break
		}
		name, value, found := strings.Cut(header, ":")
		if !found {
			return nil, fmt.Errorf("malformed header %q", header)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid Content-Length %q", strings.TrimSpace(value))
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("request missing Content-Length header")
	}
	if contentLength > maxPayload {
		return nil, fmt.Errorf("request payload %d exceeds limit %d", contentLength, maxPayload)
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read request payload: %w", err)
	}

	return &Request{Path: path, Payload: payload}, nil
}

// WriteRequest writes one framed request to w. The client half of the
// framing contract; used by tooling and tests.
func WriteRequest(w io.Writer, req *Request) error {
	if _, err := fmt.Fprintf(w, "POST %s HTTP/1.1\r\nContent-Length: %d\r\n\r\n", req.Path, len(req.Payload)); err != nil {
		return err
	}
	_, err := w.Write(req.Payload)
	return err
}

// OKResponse builds a success response, with body appended directly
// after the status line.
func OKResponse(body []byte) []byte {
	if len(body) == 0 {
		return respOK
	}
	out := make([]byte, 0, len(respOK)+len(body))
	out = append(out, respOK...)
	return append(out, body...)
}

// ErrorResponse builds the uniform internal-error response.
func ErrorResponse() []byte {
	return respInternalError
}

// readLine reads one CRLF-terminated line, tolerating bare LF. Every
// byte consumed is charged against budget; once it is exhausted the
// read fails without buffering the rest of the line.
func readLine(r *bufio.Reader, budget *int) (string, error) {
	var line []byte
	for {
		frag, err := r.ReadSlice('\n')
		*budget -= len(frag)
		if *budget < 0 {
			return "", fmt.Errorf("request header exceeds frame limit")
		}
		line = append(line, frag...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err == io.EOF && len(line) != 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		return strings.TrimRight(string(line), "\r\n"), nil
	}
}
