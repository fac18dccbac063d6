package wasm

// appendULEB128 appends v in unsigned LEB128 format.
func appendULEB128(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// appendSLEB128 appends v in signed LEB128 format.
func appendSLEB128(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func appendName(dst []byte, name string) []byte {
	dst = appendULEB128(dst, uint32(len(name)))
	return append(dst, name...)
}

// appendSection appends a section with its id and size prefix.
func appendSection(dst []byte, id byte, body []byte) []byte {
	dst = append(dst, id)
	dst = appendULEB128(dst, uint32(len(body)))
	return append(dst, body...)
}
