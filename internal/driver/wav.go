package driver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var errNotWAV = errors.New("driver: not a PCM WAV file")

// wavFormat is the parsed RIFF/WAVE layout of a file.
type wavFormat struct {
	fmtChunk   []byte
	sampleRate uint32
	blockAlign uint16
	dataOffset int64
	dataSize   uint32
}

func (w wavFormat) frames() uint64 {
	if w.blockAlign == 0 {
		return 0
	}
	return uint64(w.dataSize) / uint64(w.blockAlign)
}

// durationMs returns the playable length in milliseconds.
func (w wavFormat) durationMs() uint64 {
	if w.sampleRate == 0 {
		return 0
	}
	return w.frames() * 1000 / uint64(w.sampleRate)
}

// frameAt converts a millisecond offset into a frame index clamped to the data.
func (w wavFormat) frameAt(ms uint64) uint64 {
	f := ms * uint64(w.sampleRate) / 1000
	if n := w.frames(); f > n {
		return n
	}
	return f
}

func readWAV(r io.ReadSeeker) (wavFormat, error) {
	var out wavFormat
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return out, errNotWAV
	}
	if !bytes.Equal(hdr[0:4], []byte("RIFF")) || !bytes.Equal(hdr[8:12], []byte("WAVE")) {
		return out, errNotWAV
	}
	pos := int64(12)
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return out, errNotWAV
		}
		pos += 8
		id := string(ch[0:4])
		size := binary.LittleEndian.Uint32(ch[4:8])
		switch id {
		case "fmt ":
			if size < 16 {
				return out, errNotWAV
			}
			out.fmtChunk = make([]byte, size)
			if _, err := io.ReadFull(r, out.fmtChunk); err != nil {
				return out, errNotWAV
			}
			out.sampleRate = binary.LittleEndian.Uint32(out.fmtChunk[4:8])
			out.blockAlign = binary.LittleEndian.Uint16(out.fmtChunk[12:14])
		case "data":
			if out.fmtChunk == nil {
				return out, errNotWAV
			}
			out.dataOffset = pos
			out.dataSize = size
			return out, nil
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return out, errNotWAV
			}
		}
		pos += int64(size)
		if size%2 == 1 {
			// Chunks are word aligned.
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return out, errNotWAV
			}
			pos++
		}
	}
}

// WAVDuration returns the length of a WAV file in milliseconds.
func WAVDuration(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	w, err := readWAV(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return w.durationMs(), nil
}

// TrimWAV writes the [startMs, endMs) range of src to dst as a new WAV file.
func TrimWAV(src, dst string, startMs, endMs uint64) error {
	if endMs <= startMs {
		return fmt.Errorf("trim range is empty: %d..%d ms", startMs, endMs)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	w, err := readWAV(in)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	first, last := w.frameAt(startMs), w.frameAt(endMs)
	if last <= first {
		return fmt.Errorf("trim range %d..%d ms is past the end of %s", startMs, endMs, src)
	}
	size := uint32((last - first) * uint64(w.blockAlign))
	if _, err := in.Seek(w.dataOffset+int64(first)*int64(w.blockAlign), io.SeekStart); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(w.fmtChunk)+8)+size)
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(w.fmtChunk)))
	buf.Write(w.fmtChunk)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, size)
	if _, err := io.CopyN(&buf, in, int64(size)); err != nil {
		return fmt.Errorf("read samples: %w", err)
	}
	if size%2 == 1 {
		buf.WriteByte(0)
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
