package wire

// ParseTopic extracts just the topic name from a PUBLISH frame, without
// touching the properties block or payload. The broker uses this to route a
// message to subscribers; it then re-emits the original frame bytes
// verbatim rather than re-encoding a decoded Publish, so nothing here needs
// to understand properties at all.
func ParseTopic(frame []byte) (string, error) {
	if len(frame) < 1 {
		return "", newDecodeError(0, "empty frame")
	}

	t := PacketType(frame[0] >> 4)
	if t != PublishType {
		return "", newDecodeError(t, "not a PUBLISH frame")
	}

	rest := frame[1:]
	length, n, err := decodeRemainingLength(rest)
	if err != nil {
		return "", err
	}
	rest = rest[n:]

	if len(rest) < length {
		return "", newDecodeError(t, "truncated body: need %d bytes, have %d", length, len(rest))
	}
	body := rest[:length]

	topic, _, err := decodeString(body, PublishType)
	if err != nil {
		return "", err
	}
	return topic, nil
}
