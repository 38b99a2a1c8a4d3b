package wire

import "encoding/binary"

// maxRemainingLength is the largest value representable in MQTT's 4-byte
// variable-length remaining-length encoding.
const maxRemainingLength = 268435455

// encodeRemainingLength appends length's MQTT variable-length-integer
// encoding to dst and returns the result. The encoding is the same
// base-128, continuation-bit-per-byte scheme as encoding/binary's uvarint,
// which is what powers PutUvarint here — grounded in the same technique
// used for MQTT fixed headers elsewhere in this ecosystem.
func encodeRemainingLength(dst []byte, length int) ([]byte, error) {
	if length < 0 || length > maxRemainingLength {
		return nil, newDecodeError(0, "remaining length %d out of range [0, %d]", length, maxRemainingLength)
	}
	var tmp [4]byte
	n := binary.PutUvarint(tmp[:], uint64(length))
	return append(dst, tmp[:n]...), nil
}

// decodeRemainingLength reads an MQTT variable-length integer from the
// front of src. It returns the decoded value and the number of bytes
// consumed (1-4); decode never requires minimal encoding, but it does
// reject anything needing a 5th continuation byte, matching MQTT's hard
// 4-byte cap.
func decodeRemainingLength(src []byte) (value int, n int, err error) {
	limit := len(src)
	if limit > 4 {
		limit = 5 // allow a 5th byte to exist only so we can detect and reject it
	}

	v, n64 := binary.Uvarint(src[:min(limit, len(src))])
	if n64 <= 0 {
		return 0, 0, newDecodeError(0, "malformed remaining length")
	}
	if n64 > 4 {
		return 0, 0, newDecodeError(0, "remaining length exceeds 4 bytes")
	}
	if v > maxRemainingLength {
		return 0, 0, newDecodeError(0, "remaining length %d exceeds maximum %d", v, maxRemainingLength)
	}

	return int(v), n64, nil
}

// encodeString appends a 2-byte-length-prefixed UTF-8 string to dst.
func encodeString(dst []byte, s string) ([]byte, error) {
	if len(s) > 0xffff {
		return nil, newDecodeError(0, "string too long: %d bytes", len(s))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, s...)
	return dst, nil
}

// decodeString reads a 2-byte-length-prefixed UTF-8 string from the front
// of src, returning the string and the unconsumed remainder.
func decodeString(src []byte, t PacketType) (string, []byte, error) {
	if len(src) < 2 {
		return "", nil, newDecodeError(t, "truncated string length")
	}
	l := int(binary.BigEndian.Uint16(src[:2]))
	src = src[2:]
	if len(src) < l {
		return "", nil, newDecodeError(t, "truncated string: need %d bytes, have %d", l, len(src))
	}
	return string(src[:l]), src[l:], nil
}
