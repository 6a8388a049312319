// Package response defines the envelope every boundary operation returns.
package response

import (
	"encoding/json"
	"fmt"
)

// Status classifies an envelope
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// Envelope is a status, a human-readable message and a payload
type Envelope struct {
	Status  Status  `json:"status" yaml:"status"`
	Message string  `json:"message" yaml:"message"`
	Data    Payload `json:"data" yaml:"data"`
}

// Payload is one of List, Object, Text or Empty
type Payload interface {
	payload()
	// Value returns the payload as a plain value for encoders
	Value() any
}

// List carries a sequence of records
type List[T any] []T

// Object carries a single structured value
type Object[T any] struct {
	V T
}

// Text carries a string, such as a cleared-file count
type Text string

// Empty carries nothing
type Empty struct{}

func (List[T]) payload()   {}
func (Object[T]) payload() {}
func (Text) payload()      {}
func (Empty) payload()     {}

func (l List[T]) Value() any {
	if l == nil {
		return []T{}
	}
	return []T(l)
}

func (o Object[T]) Value() any { return o.V }
func (t Text) Value() any      { return string(t) }
func (Empty) Value() any       { return nil }

func (o Object[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.V)
}

func (o Object[T]) MarshalYAML() (any, error) {
	return o.V, nil
}

func (l List[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Value())
}

func (l List[T]) MarshalYAML() (any, error) {
	return l.Value(), nil
}

func (Empty) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (Empty) MarshalYAML() (any, error) {
	return nil, nil
}

// Success builds a success envelope
func Success(message string, data Payload) Envelope {
	return newEnvelope(StatusSuccess, message, data)
}

// Info builds an informational envelope
func Info(message string, data Payload) Envelope {
	return newEnvelope(StatusInfo, message, data)
}

// Error builds an error envelope with no payload
func Error(message string) Envelope {
	return newEnvelope(StatusError, message, Empty{})
}

// Errorf builds an error envelope from a format string
func Errorf(format string, args ...any) Envelope {
	return Error(fmt.Sprintf(format, args...))
}

// Count is the Text payload used by clear-all operations
func Count(n int) Text {
	return Text(fmt.Sprint(n))
}

func newEnvelope(status Status, message string, data Payload) Envelope {
	if data == nil {
		data = Empty{}
	}
	return Envelope{Status: status, Message: message, Data: data}
}

// OK reports whether the envelope is not an error
func (e Envelope) OK() bool {
	return e.Status != StatusError
}

// Err converts an error envelope into an error
func (e Envelope) Err() error {
	if e.OK() {
		return nil
	}
	return fmt.Errorf("%s", e.Message)
}
