package wire

// Property identifiers recognized in a PUBLISH packet's properties block.
// Any other identifier is a protocol error: unlike the outer
// remaining-length framing, a property entry's length is not
// self-describing for unknown identifiers, so a decoder cannot safely skip
// over one it doesn't recognize.
const (
	propPayloadFormatIndicator byte = 0x01
	propContentType            byte = 0x03
)

// PublishProperties mirrors the two MQTT 5 properties this subset
// understands. The zero value (no payload format indicator, no content
// type) is the "unspecified binary payload, no content type" case and
// needs no explicit Has flag: a PayloadFormatIndicator of 0 is
// indistinguishable from, and means the same thing as, its absence.
type PublishProperties struct {
	PayloadFormatIndicator byte
	HasContentType         bool
	ContentType            string
}

// IsUTF8 reports whether the payload format indicator marks the payload as
// UTF-8 text rather than unspecified bytes.
func (p PublishProperties) IsUTF8() bool {
	return p.PayloadFormatIndicator == 1
}

func encodeProperties(p PublishProperties) ([]byte, error) {
	buf := make([]byte, 0, 8)

	buf = append(buf, propPayloadFormatIndicator, p.PayloadFormatIndicator)

	if p.HasContentType {
		ct := []byte(p.ContentType)
		if len(ct) > 0xff {
			return nil, newDecodeError(PublishType, "content type too long: %d bytes", len(ct))
		}
		buf = append(buf, propContentType, byte(len(ct)))
		buf = append(buf, ct...)
	}

	if len(buf) > 0xff {
		return nil, newDecodeError(PublishType, "properties block too long: %d bytes", len(buf))
	}

	return buf, nil
}

// decodeProperties reads a PUBLISH properties block of exactly n bytes from
// src, returning the parsed properties and any unconsumed tail of src
// (which is the application payload).
func decodeProperties(src []byte, n int) (PublishProperties, []byte, error) {
	if len(src) < n {
		return PublishProperties{}, nil, newDecodeError(PublishType, "properties block truncated")
	}

	block, rest := src[:n], src[n:]
	var props PublishProperties

	for len(block) > 0 {
		id := block[0]
		block = block[1:]

		switch id {
		case propPayloadFormatIndicator:
			if len(block) < 1 {
				return PublishProperties{}, nil, newDecodeError(PublishType, "truncated payload format indicator")
			}
			props.PayloadFormatIndicator = block[0]
			block = block[1:]

		case propContentType:
			if len(block) < 1 {
				return PublishProperties{}, nil, newDecodeError(PublishType, "truncated content type length")
			}
			l := int(block[0])
			block = block[1:]
			if len(block) < l {
				return PublishProperties{}, nil, newDecodeError(PublishType, "truncated content type")
			}
			props.HasContentType = true
			props.ContentType = string(block[:l])
			block = block[l:]

		default:
			return PublishProperties{}, nil, newDecodeError(PublishType, "unknown property id 0x%02x", id)
		}
	}

	return props, rest, nil
}
