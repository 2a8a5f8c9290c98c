package audio

import "encoding/binary"

// chunkReader serves Read calls from whatever-sized blocks a backend
// produces, carrying leftovers between calls.
type chunkReader struct {
	next    func() ([]byte, error)
	pending []byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		block, err := c.next()
		if err != nil {
			return 0, err
		}
		c.pending = block
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// int16ToBytes writes samples as little-endian PCM into dst, which must
// hold 2*len(samples) bytes.
func int16ToBytes(dst []byte, samples []int16) []byte {
	dst = dst[:len(samples)*2]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(s))
	}
	return dst
}
