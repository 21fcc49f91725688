package credential

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"time"

	"github.com/MrEthical07/goSession/session"
)

const (
	pairFormatVersionV1      = 1
	pairFormatVersionCurrent = 2
)

// ErrInvalidEncoding is returned by Decode for blobs that are not a known pair format.
var ErrInvalidEncoding = errors.New("invalid credential encoding")

// Encode serializes a pair into the compact binary format used by [RedisBackend].
//
// Layout (v2): version byte, u16 access length, access bytes, u16 refresh length,
// refresh bytes, i64 expiry in unix milliseconds (0 when unknown), u16 user
// length, user as JSON (length 0 when unknown). v1 stops after the expiry.
func Encode(p Pair) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(p.AccessToken) + 2 + len(p.RefreshToken) + 8 + 2)

	buf.WriteByte(pairFormatVersionCurrent)

	if err := writeString(&buf, p.AccessToken); err != nil {
		return nil, err
	}
	if err := writeString(&buf, p.RefreshToken); err != nil {
		return nil, err
	}

	var expires int64
	if !p.ExpiresAt.IsZero() {
		expires = p.ExpiresAt.UnixMilli()
	}
	if err := binary.Write(&buf, binary.BigEndian, expires); err != nil {
		return nil, err
	}

	var user []byte
	if p.User != nil {
		var err error
		if user, err = json.Marshal(p.User); err != nil {
			return nil, err
		}
	}
	if err := writeString(&buf, string(user)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (Pair, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Pair{}, ErrInvalidEncoding
	}
	if version != pairFormatVersionV1 && version != pairFormatVersionCurrent {
		return Pair{}, ErrInvalidEncoding
	}

	var p Pair
	if p.AccessToken, err = readString(reader); err != nil {
		return Pair{}, err
	}
	if p.RefreshToken, err = readString(reader); err != nil {
		return Pair{}, err
	}

	var expires int64
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return Pair{}, ErrInvalidEncoding
	}
	if expires != 0 {
		p.ExpiresAt = time.UnixMilli(expires)
	}

	if version >= pairFormatVersionCurrent {
		raw, err := readString(reader)
		if err != nil {
			return Pair{}, err
		}
		if raw != "" {
			var user session.User
			if err := json.Unmarshal([]byte(raw), &user); err != nil {
				return Pair{}, ErrInvalidEncoding
			}
			p.User = &user
		}
	}

	if reader.Len() != 0 {
		return Pair{}, ErrInvalidEncoding
	}
	return p, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.New("field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", ErrInvalidEncoding
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return "", ErrInvalidEncoding
	}
	return string(out), nil
}
