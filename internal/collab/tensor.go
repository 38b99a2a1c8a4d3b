package collab

import (
	"encoding/binary"
	"fmt"
)

// Tensor is the wire-level envelope the tensor encoder agrees on:
// [ndim:u32][dims:u32×ndim][dtype_len:u32][dtype_utf8][has_intensity:u8]
// [data_bytes], optionally followed by [heatmap_rgb_bytes] when
// HasIntensity is set. Neither the numeric dtype decoding nor the heatmap
// color mapping live here — this package only knows the envelope's shape.
type Tensor struct {
	Dims         []uint32
	DType        string
	HasIntensity bool
	Data         []byte
	Heatmap      []byte // only meaningful when HasIntensity is true
}

// Encode serializes t into its wire form.
func Encode(t Tensor) ([]byte, error) {
	if len(t.DType) == 0 {
		return nil, fmt.Errorf("collab: tensor dtype must not be empty")
	}

	buf := make([]byte, 0, 4+4*len(t.Dims)+4+len(t.DType)+1+len(t.Data)+len(t.Heatmap))

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(t.Dims)))
	buf = append(buf, u32[:]...)

	for _, d := range t.Dims {
		binary.LittleEndian.PutUint32(u32[:], d)
		buf = append(buf, u32[:]...)
	}

	binary.LittleEndian.PutUint32(u32[:], uint32(len(t.DType)))
	buf = append(buf, u32[:]...)
	buf = append(buf, t.DType...)

	var flag byte
	if t.HasIntensity {
		flag = 1
	}
	buf = append(buf, flag)
	buf = append(buf, t.Data...)

	if t.HasIntensity {
		buf = append(buf, t.Heatmap...)
	}

	return buf, nil
}

// Decode reverses Encode. When HasIntensity is true, everything after the
// data section's implied length is treated as the heatmap; since Tensor
// carries no independent data-length field, callers that split Data from
// Heatmap must know the element size for DType and the product of Dims,
// the same way the tensor encoder's own writer does.
func Decode(payload []byte, dataLen int) (Tensor, error) {
	if len(payload) < 4 {
		return Tensor{}, fmt.Errorf("collab: truncated tensor header")
	}
	ndim := binary.LittleEndian.Uint32(payload[:4])
	payload = payload[4:]

	if len(payload) < int(ndim)*4 {
		return Tensor{}, fmt.Errorf("collab: truncated dims")
	}
	dims := make([]uint32, ndim)
	for i := range dims {
		dims[i] = binary.LittleEndian.Uint32(payload[:4])
		payload = payload[4:]
	}

	if len(payload) < 4 {
		return Tensor{}, fmt.Errorf("collab: truncated dtype length")
	}
	dtypeLen := binary.LittleEndian.Uint32(payload[:4])
	payload = payload[4:]

	if len(payload) < int(dtypeLen) {
		return Tensor{}, fmt.Errorf("collab: truncated dtype")
	}
	dtype := string(payload[:dtypeLen])
	payload = payload[dtypeLen:]

	if len(payload) < 1 {
		return Tensor{}, fmt.Errorf("collab: truncated has_intensity flag")
	}
	hasIntensity := payload[0] != 0
	payload = payload[1:]

	if len(payload) < dataLen {
		return Tensor{}, fmt.Errorf("collab: data section shorter than dataLen")
	}
	data := payload[:dataLen]
	heatmap := payload[dataLen:]

	if !hasIntensity {
		heatmap = nil
	}

	return Tensor{
		Dims:         dims,
		DType:        dtype,
		HasIntensity: hasIntensity,
		Data:         data,
		Heatmap:      heatmap,
	}, nil
}
