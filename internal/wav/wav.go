// Package wav encodes a finished chunk of PCM as a mono 16-bit wave file.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

const sampleSize = 2

// Encode writes a complete wave file for pcm, which must hold big-endian
// signed 16-bit mono samples. Wave data is little-endian, so each sample
// is swapped on the way out.
func Encode(w io.Writer, pcm []byte, sampleRate int) error {
	if len(pcm)%sampleSize != 0 {
		return fmt.Errorf("wav: pcm length %d is not sample-aligned", len(pcm))
	}

	h := [0x2C]byte{
		'R', 'I', 'F', 'F',
		0, 0, 0, 0, //        length of rest of file
		'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ',
		16, 0, 0, 0, //       size of fmt chunk
		1, 0, //              uncompressed format
		1, 0, //              channel count
		0, 0, 0, 0, //        sample rate
		0, 0, 0, 0, //        bytes per second
		sampleSize, 0, //     bytes per sample frame
		sampleSize * 8, 0, // bits per sample
		'd', 'a', 't', 'a',
		0, 0, 0, 0, //        size of sample data
	}
	binary.LittleEndian.PutUint32(h[0x04:], uint32(len(h)-8+len(pcm)))
	binary.LittleEndian.PutUint32(h[0x18:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[0x1C:], uint32(sampleRate)*sampleSize)
	binary.LittleEndian.PutUint32(h[0x28:], uint32(len(pcm)))

	if _, err := w.Write(h[:]); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	data := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		data[i], data[i+1] = pcm[i+1], pcm[i]
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	return nil
}
