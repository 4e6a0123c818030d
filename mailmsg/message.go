// Package mailmsg implements the engine's message interface over a parsed
// RFC 5322 message.
//
// Hosts with their own message store can implement [sieve.Message]
// directly; this package covers the common case of filtering a message that
// is available as a byte stream.
package mailmsg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/d--j/go-sieve"
)

const helperKey = "Helper"

// Envelope carries the SMTP envelope of the message. The zero value is a
// message without envelope information; the envelope test then matches
// nothing.
type Envelope struct {
	// From is the envelope sender (MAIL FROM).
	From string
	// To are the envelope recipients relevant for this execution
	// (usually exactly the one recipient whose script runs).
	To []string
	// OrigTo are the original recipient addresses before aliasing.
	OrigTo []string
	// Auth is the authenticated submission identity, if any.
	Auth string
}

// Message is a parsed mail message. It implements [sieve.Message].
type Message struct {
	raw      []byte
	header   textproto.Header
	helper   *mail.Header
	envelope Envelope
}

var _ sieve.Message = (*Message)(nil)

// Parse reads a whole message from r and parses its header section.
func Parse(r io.Reader, envelope Envelope) (*Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("mailmsg: read message: %w", err)
	}
	return FromBytes(data, envelope)
}

// FromBytes parses the header section of a raw message.
func FromBytes(data []byte, envelope Envelope) (*Message, error) {
	hdr, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("mailmsg: parse header: %w", err)
	}
	return &Message{raw: data, header: hdr, envelope: envelope}, nil
}

// PhysicalSize returns the size of the message as stored.
func (m *Message) PhysicalSize() (uint64, error) {
	return uint64(len(m.raw)), nil
}

// newHelper builds the single-field header used to decode values through
// the go-message codecs.
func newHelper() *mail.Header {
	helper := mail.HeaderFromMap(map[string][]string{helperKey: {" "}})
	return &helper
}

// HeaderValues returns the values of all fields named name in message
// order. With decoded set, RFC 2047 encoded words in the value are
// decoded; an undecodable value is returned raw.
func (m *Message) HeaderValues(name string, decoded bool) ([]string, error) {
	var values []string
	// FieldsByKey iterates the occurrences in their original message order
	fields := m.header.FieldsByKey(name)
	for fields.Next() {
		values = append(values, fields.Value())
	}
	if !decoded {
		return values, nil
	}
	if m.helper == nil {
		m.helper = newHelper()
	}
	for i, v := range values {
		m.helper.Set(helperKey, v)
		if text, err := m.helper.Text(helperKey); err == nil {
			values[i] = text
		}
	}
	return values, nil
}

// Envelope returns the addresses of the given envelope field.
func (m *Message) Envelope(field sieve.EnvelopeField) []string {
	switch field {
	case sieve.EnvelopeFrom:
		if m.envelope.From == "" {
			return nil
		}
		return []string{m.envelope.From}
	case sieve.EnvelopeTo:
		return m.envelope.To
	case sieve.EnvelopeOrigTo:
		if m.envelope.OrigTo == nil {
			// fall back to the final recipients
			return m.envelope.To
		}
		return m.envelope.OrigTo
	case sieve.EnvelopeAuth:
		if m.envelope.Auth == "" {
			return nil
		}
		return []string{m.envelope.Auth}
	}
	return nil
}

// AddressList parses the named header field as an address list, decoding
// internationalized forms the way the go-message codecs do.
func (m *Message) AddressList(name string) ([]*mail.Address, error) {
	if m.helper == nil {
		m.helper = newHelper()
	}
	fields := m.header.FieldsByKey(name)
	if !fields.Next() {
		return nil, nil
	}
	m.helper.Set(helperKey, fields.Value())
	return m.helper.AddressList(helperKey)
}
