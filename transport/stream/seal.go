package stream

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealedConn encrypts each Write as one length-prefixed AEAD packet and
// decrypts packets on Read. Nonces are a per-direction counter, so a sealed
// conn must only ever pair with one peer per direction.
type sealedConn struct {
	net.Conn
	aead    cipher.AEAD
	sendCtr uint64
	recvCtr uint64
	recvBuf bytes.Buffer
	mu      sync.Mutex
}

// Reports are tiny; anything bigger than this is a corrupt or hostile peer.
const maxPacketSize = 64 * 1024

// Seal wraps conn with a ChaCha20-Poly1305 layer keyed from the pre-shared
// key. Both ends must use the same psk.
func Seal(conn net.Conn, psk []byte) (net.Conn, error) {
	key := sha256.Sum256(psk)
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return &sealedConn{Conn: conn, aead: aead}, nil
}

func (s *sealedConn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], s.sendCtr)
	s.sendCtr++

	ct := s.aead.Seal(nil, nonce, p, nil)

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(ct)))
	if _, err := s.Conn.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := s.Conn.Write(ct); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *sealedConn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxPacketSize {
			return 0, io.ErrUnexpectedEOF
		}

		ct := make([]byte, length)
		if _, err := io.ReadFull(s.Conn, ct); err != nil {
			return 0, err
		}

		nonce := make([]byte, chacha20poly1305.NonceSize)
		binary.BigEndian.PutUint64(nonce[4:], s.recvCtr)
		s.recvCtr++

		pt, err := s.aead.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
