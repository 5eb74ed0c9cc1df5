package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Response is built once per request and written once.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func Text(status int, body string) Response {
	return Response{Status: status, ContentType: ContentTypeText, Body: []byte(body)}
}

// JSON encodes v without a trailing newline. An unencodable value turns into a
// 500 error envelope.
func JSON(status int, v interface{}) Response {
	b, err := json.Marshal(v)
	if err != nil {
		return JSONError(500, "Internal error")
	}
	return Response{Status: status, ContentType: ContentTypeJSON, Body: b}
}

// JSONError is the envelope shared by every non-2xx response: {"error":"msg"}.
func JSONError(status int, msg string) Response {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return Response{Status: status, ContentType: ContentTypeJSON, Body: b}
}

// StatusText returns the reason phrase written on the status line. Codes the
// server never produces fall back to "OK".
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return "OK"
	}
}

func (r Response) Bytes() []byte {
	var b bytes.Buffer
	b.Grow(128 + len(r.Body))
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(StatusText(r.Status))
	b.WriteString("\r\nContent-Type: ")
	b.WriteString(r.ContentType)
	b.WriteString("\r\nContent-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString("\r\nConnection: close\r\n\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

func (r Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
