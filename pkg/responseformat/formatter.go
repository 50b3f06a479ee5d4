// Package responseformat writes API responses as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Content types produced by Formatter.
const (
	ContentTypeJSON    = "application/json; charset=utf-8"
	ContentTypeMsgPack = "application/x-msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// WantsMsgPack reports whether the request asked for MessagePack, either
// with format=msgpack or an Accept header.
func WantsMsgPack(req *http.Request) bool {
	if req.URL.Query().Get("format") == "msgpack" {
		return true
	}
	return req.Header.Get("Accept") == ContentTypeMsgPack
}

// WriteResponse writes data with the given status. JSON is the default
// format; MessagePack is used when the request asks for it.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, status int, data any) error {
	if WantsMsgPack(req) {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteError writes {"error": message} with the given status.
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, message string) error {
	return f.WriteResponse(w, req, status, ErrorBody{Error: message})
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeMsgPack)
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
