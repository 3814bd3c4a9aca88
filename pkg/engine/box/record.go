package box

import (
	"encoding/binary"

	"github.com/wraptls/wraptls-go/pkg/engine"
)

// Record framing: a 3-byte header (type, 2-byte big-endian body
// length) followed by the body. Handshake records are plaintext; data
// and close records carry sealed bodies.
const (
	recordHeaderLen = 3

	// maxPlaintext is the largest plaintext payload per record.
	maxPlaintext = 16384

	// maxRecordBody covers a full plaintext payload plus the AEAD tag.
	maxRecordBody = maxPlaintext + tagLen

	tagLen = 16
)

// Record types. The values echo the TLS content types they imitate.
const (
	recordClose     = 0x15
	recordHandshake = 0x16
	recordData      = 0x17
)

// flush drains pending wire bytes through the sender, retaining
// whatever the transport does not accept.
func (e *Engine) flush() int {
	for len(e.out) > 0 {
		n := e.sender.Send(e.out)
		if n < 0 {
			return n
		}
		if n == 0 {
			return engine.CodeWantWrite
		}
		e.out = e.out[n:]
	}
	e.out = nil
	return 0
}

// readRecord assembles one record from the receiver, header first.
// Partial progress survives CodeWantRead: the next call resumes where
// the transport blocked.
func (e *Engine) readRecord() (byte, []byte, int) {
	for e.inHdrN < recordHeaderLen {
		n := e.receiver.Recv(e.inHdr[e.inHdrN:])
		if n < 0 {
			return 0, nil, n
		}
		if n == 0 {
			return 0, nil, engine.CodeUnexpectedEOF
		}
		e.inHdrN += n
	}
	bodyLen := int(e.inHdr[1])<<8 | int(e.inHdr[2])
	if bodyLen > maxRecordBody {
		return 0, nil, engine.CodeBadRecord
	}
	if e.inBody == nil {
		e.inBody = make([]byte, bodyLen)
		e.inBodyN = 0
	}
	for e.inBodyN < bodyLen {
		n := e.receiver.Recv(e.inBody[e.inBodyN:bodyLen])
		if n < 0 {
			return 0, nil, n
		}
		if n == 0 {
			return 0, nil, engine.CodeUnexpectedEOF
		}
		e.inBodyN += n
	}
	typ := e.inHdr[0]
	body := e.inBody[:bodyLen]
	e.inHdrN, e.inBody, e.inBodyN = 0, nil, 0
	return typ, body, 0
}

// appendRecord frames a plaintext body (handshake records).
func (e *Engine) appendRecord(typ byte, body []byte) {
	e.out = append(e.out, typ, byte(len(body)>>8), byte(len(body)))
	e.out = append(e.out, body...)
}

// sealRecord encrypts plaintext into a framed record on the outgoing
// buffer. The record header is bound as additional data.
func (e *Engine) sealRecord(typ byte, plaintext []byte) {
	bodyLen := len(plaintext) + tagLen
	header := [recordHeaderLen]byte{typ, byte(bodyLen >> 8), byte(bodyLen)}

	var nonce [12]byte
	binary.BigEndian.PutUint64(nonce[4:], e.sendSeq)
	e.sendSeq++

	e.out = append(e.out, header[:]...)
	e.out = e.sealer.Seal(e.out, nonce[:], plaintext, header[:])
}

// openRecord authenticates and decrypts a sealed record body.
func (e *Engine) openRecord(typ byte, body []byte) ([]byte, int) {
	if len(body) < tagLen {
		return nil, engine.CodeBadRecord
	}
	header := [recordHeaderLen]byte{typ, byte(len(body) >> 8), byte(len(body))}

	var nonce [12]byte
	binary.BigEndian.PutUint64(nonce[4:], e.recvSeq)

	plaintext, err := e.opener.Open(nil, nonce[:], body, header[:])
	if err != nil {
		return nil, engine.CodeBadRecord
	}
	e.recvSeq++
	return plaintext, 0
}
