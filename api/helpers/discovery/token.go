// Package discovery describes the out-of-band token two peers exchange to
// arm a ranging session against each other.
package discovery

import (
	"sync"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"

	"github.com/multisense-org/sensor-native/api/errorkinds"
)

// Role describes the side of a ranging exchange a peer takes.
type Role uint8

const (
	RoleInitiator Role = iota
	RoleResponder
)

// Token describes the discovery token exchanged between two ranging peers
// before a session starts. Tokens travel out of band, over a transport
// chosen by the application, in CBOR form.
type Token struct {
	SessionID uuid.UUID `codec:"session_id"`
	PeerID    uuid.UUID `codec:"peer_id"`
	Role      Role      `codec:"role"`
	Payload   []byte    `codec:"payload,omitempty"`
}

// resolver holds an encoder and decoder.
type resolver struct {
	check bool

	cborEncoder *codec.Encoder
	cborDecoder *codec.Decoder
	cborHandle  codec.CborHandle

	cborData []byte

	cborMu sync.Mutex
}

var gencoder resolver

func init() {
	if !gencoder.check {
		gencoder.cborHandle = codec.CborHandle{}
		gencoder.cborHandle.TypeInfos = codec.NewTypeInfos([]string{"codec"})
		gencoder.cborEncoder = codec.NewEncoderBytes(&gencoder.cborData, &gencoder.cborHandle)
		gencoder.cborDecoder = codec.NewDecoderBytes(gencoder.cborData, &gencoder.cborHandle)

		gencoder.cborData = make([]byte, 0, 256)
		gencoder.check = true
	}
}

// NewToken returns a new discovery token that identifies the local peer
// within a fresh ranging exchange.
func NewToken(role Role) *Token {
	return &Token{
		SessionID: uuid.New(),
		PeerID:    uuid.New(),
		Role:      role,
	}
}

// Valid reports whether the token identifies both an exchange and a peer.
func (t *Token) Valid() bool {
	return t != nil && t.SessionID != uuid.Nil && t.PeerID != uuid.Nil
}

// Marshal encodes the token to its wire form.
func (t *Token) Marshal() ([]byte, error) {
	if !t.Valid() {
		return nil, errorkinds.ErrTokenInvalid
	}

	gencoder.cborMu.Lock()
	defer gencoder.cborMu.Unlock()

	gencoder.cborEncoder.ResetBytes(&gencoder.cborData)
	if err := gencoder.cborEncoder.Encode(t); err != nil {
		return nil, err
	}

	return append([]byte(nil), gencoder.cborData...), nil
}

// Unmarshal decodes a token from its wire form.
func Unmarshal(data []byte) (*Token, error) {
	var token Token

	gencoder.cborMu.Lock()
	gencoder.cborDecoder.ResetBytes(data)
	err := gencoder.cborDecoder.Decode(&token)
	gencoder.cborMu.Unlock()

	if err != nil {
		return nil, err
	}
	if !token.Valid() {
		return nil, errorkinds.ErrTokenInvalid
	}

	return &token, nil
}

// String converts a Role to a string.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	}
	return "unknown"
}
