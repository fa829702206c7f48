package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const (
	sessionFormatVersionCurrent = 1

	flagPersistent byte = 1 << 0
)

// ErrCorrupt is returned when a stored session blob cannot be decoded.
var ErrCorrupt = errors.New("session blob corrupt")

// Encode serializes s without its ID, which lives in the Redis key.
//
//	version(1) | subjectLen(1) | subject | issuedAt(8) | expiresAt(8) | flags(1)
func Encode(s *Session) ([]byte, error) {
	if len(s.Subject) == 0 {
		return nil, errors.New("subject required")
	}
	if len(s.Subject) > 255 {
		return nil, errors.New("subject too long")
	}

	var buf bytes.Buffer
	buf.Grow(2 + len(s.Subject) + 17)

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.WriteByte(byte(len(s.Subject)))
	buf.WriteString(s.Subject)

	if err := binary.Write(&buf, binary.BigEndian, s.IssuedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt.UnixNano()); err != nil {
		return nil, err
	}

	var flags byte
	if s.Persistent {
		flags |= flagPersistent
	}
	buf.WriteByte(flags)

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode]. Any malformed input yields ErrCorrupt.
func Decode(data []byte) (*Session, error) {
	s, err := decode(data)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return s, nil
}

func decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	subjectLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if subjectLen == 0 {
		return nil, errors.New("empty subject")
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}

	var issuedAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &issuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes")
	}

	return &Session{
		Subject:    string(subject),
		IssuedAt:   time.Unix(0, issuedAt),
		ExpiresAt:  time.Unix(0, expiresAt),
		Persistent: flags&flagPersistent != 0,
	}, nil
}
