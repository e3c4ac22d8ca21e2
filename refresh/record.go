package refresh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

// Version 1 used single-byte length prefixes and could not hold usernames or
// roles longer than 255 bytes. Version 2 uses uvarint prefixes throughout.
const recordFormatVersionCurrent = 2

// Record is the value stored for a live refresh token. It is written once and
// never updated in place.
type Record struct {
	Username  string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer usable at now. A record
// whose expiry equals now is expired.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Encode serializes r into the compact binary form stored in Redis:
// version byte, uvarint-prefixed username, uvarint role count and
// uvarint-prefixed roles, then issue and expiry as big-endian unix milliseconds.
func Encode(r *Record) ([]byte, error) {
	size := 1 + binary.MaxVarintLen64*(2+len(r.Roles)) + len(r.Username) + 16
	for _, role := range r.Roles {
		size += len(role)
	}
	buf := make([]byte, 0, size)

	buf = append(buf, recordFormatVersionCurrent)
	buf = appendString(buf, r.Username)

	buf = binary.AppendUvarint(buf, uint64(len(r.Roles)))
	for _, role := range r.Roles {
		buf = appendString(buf, role)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(r.IssuedAt.UnixMilli()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.ExpiresAt.UnixMilli()))

	return buf, nil
}

// Decode parses a blob produced by Encode. Unknown versions, truncated input
// and trailing bytes are errors.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errors.New("invalid record version")
	}

	r := &Record{}

	username, err := readString(reader)
	if err != nil {
		return nil, err
	}
	r.Username = username

	roleCount, err := binary.ReadUvarint(reader)
	if err != nil {
		return nil, err
	}
	// Every role costs at least its one-byte length prefix.
	if roleCount > uint64(reader.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	r.Roles = make([]string, 0, roleCount)
	for i := uint64(0); i < roleCount; i++ {
		role, err := readString(reader)
		if err != nil {
			return nil, err
		}
		r.Roles = append(r.Roles, role)
	}

	var issued, expires int64
	if err := binary.Read(reader, binary.BigEndian, &issued); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return nil, err
	}
	r.IssuedAt = time.UnixMilli(issued)
	r.ExpiresAt = time.UnixMilli(expires)

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after record")
	}
	return r, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(reader)
	if err != nil {
		return "", err
	}
	if n > uint64(reader.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
