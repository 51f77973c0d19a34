package vtk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// DataMode selects how DataArray payloads are stored in the file
type DataMode uint8

const (
	Ascii DataMode = iota
	Binary
	Appended
)

var (
	ErrInvalidMode        = errors.New("invalid data mode")
	ErrInvalidCompression = errors.New("invalid compression")
	ErrInvalidHeaderType  = errors.New("invalid header type")
)

func (m DataMode) String() string {
	switch m {
	case Ascii:
		return "ascii"
	case Binary:
		return "binary"
	case Appended:
		return "appended"
	}
	return fmt.Sprintf("DataMode(%d)", uint8(m))
}

// ParseDataMode accepts "ascii", "binary" or "appended"
func ParseDataMode(s string) (DataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascii":
		return Ascii, nil
	case "binary":
		return Binary, nil
	case "appended":
		return Appended, nil
	}
	return 0, fmt.Errorf("%w: %q, must be one of ascii, binary, appended", ErrInvalidMode, s)
}

// Compression selects the block compressor for binary and appended data.
// Ascii data is never compressed.
type Compression uint8

const (
	NoCompression Compression = iota
	ZLib
)

const (
	zlibCompressorName = "vtkZLibDataCompressor"
	// DefaultBlockSize is the uncompressed size of one compressed block
	DefaultBlockSize = 32768
	// maxDecodedSize bounds the inflated size a block header may claim
	maxDecodedSize = 1 << 36
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZLib:
		return "zlib"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NoCompression, nil
	case "zlib", strings.ToLower(zlibCompressorName):
		return ZLib, nil
	}
	return 0, fmt.Errorf("%w: %q, must be none or zlib", ErrInvalidCompression, s)
}

// HeaderType is the integer type of the byte count headers that precede
// binary payloads
type HeaderType uint8

const (
	UInt64Header HeaderType = iota
	UInt32Header
)

func (h HeaderType) String() string {
	if h == UInt32Header {
		return "UInt32"
	}
	return "UInt64"
}

func (h HeaderType) size() int {
	if h == UInt32Header {
		return 4
	}
	return 8
}

func ParseHeaderType(s string) (HeaderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uint64":
		return UInt64Header, nil
	case "uint32":
		return UInt32Header, nil
	}
	return 0, fmt.Errorf("%w: %q, must be UInt32 or UInt64", ErrInvalidHeaderType, s)
}

func (h HeaderType) put(buf []byte, v uint64) ([]byte, error) {
	if h == UInt32Header {
		if v > math.MaxUint32 {
			return nil, fmt.Errorf("value %d overflows a UInt32 header, use UInt64", v)
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(v)), nil
	}
	return binary.LittleEndian.AppendUint64(buf, v), nil
}

func (h HeaderType) get(buf []byte) uint64 {
	if h == UInt32Header {
		return uint64(binary.LittleEndian.Uint32(buf))
	}
	return binary.LittleEndian.Uint64(buf)
}

// encodeBlocks returns the header and the body for one binary payload.
// Uncompressed: header is the byte count. Compressed: header is
// [nblocks, blocksize, last partial block size (0 if full), csize...].
func encodeBlocks(data []byte, c Compression, h HeaderType, blockSize int) (header, body []byte, err error) {
	if c == NoCompression {
		header, err = h.put(nil, uint64(len(data)))
		return header, data, err
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	nblocks := (len(data) + blockSize - 1) / blockSize
	last := len(data) % blockSize
	var (
		fields = []uint64{uint64(nblocks), uint64(blockSize), uint64(last)}
		out    bytes.Buffer
	)
	for ib := 0; ib < nblocks; ib++ {
		end := (ib + 1) * blockSize
		if end > len(data) {
			end = len(data)
		}
		start := out.Len()
		zw := zlib.NewWriter(&out)
		if _, err = zw.Write(data[ib*blockSize : end]); err != nil {
			return nil, nil, err
		}
		if err = zw.Close(); err != nil {
			return nil, nil, err
		}
		fields = append(fields, uint64(out.Len()-start))
	}
	for _, f := range fields {
		if header, err = h.put(header, f); err != nil {
			return nil, nil, err
		}
	}
	return header, out.Bytes(), nil
}

// decodeBlocks reads one payload starting at the beginning of raw and returns
// the decoded bytes and the number of raw bytes consumed. Header values are
// checked against the bytes available before they are used as sizes.
func decodeBlocks(raw []byte, c Compression, h HeaderType) (data []byte, n int, err error) {
	hs := h.size()
	if len(raw) < hs {
		return nil, 0, io.ErrUnexpectedEOF
	}
	avail := uint64(len(raw) - hs)
	if c == NoCompression {
		size := h.get(raw)
		if size > avail {
			return nil, 0, fmt.Errorf("%w: block of %d bytes, %d left", io.ErrUnexpectedEOF, size, avail)
		}
		return raw[hs : hs+int(size)], hs + int(size), nil
	}
	if len(raw) < 3*hs {
		return nil, 0, io.ErrUnexpectedEOF
	}
	nb, bs, lb := h.get(raw), h.get(raw[hs:]), h.get(raw[2*hs:])
	// every block needs a size field in the header
	if nb > uint64(len(raw)/hs) {
		return nil, 0, fmt.Errorf("%w: header claims %d blocks", io.ErrUnexpectedEOF, nb)
	}
	if nb > 0 && bs == 0 {
		return nil, 0, fmt.Errorf("zero block size for %d blocks", nb)
	}
	if lb > bs {
		return nil, 0, fmt.Errorf("last block of %d bytes exceeds block size %d", lb, bs)
	}
	if nb > 0 && bs > maxDecodedSize/nb {
		return nil, 0, fmt.Errorf("%d blocks of %d bytes exceed %d bytes", nb, bs, uint64(maxDecodedSize))
	}
	nblocks, blockSize, last := int(nb), int(bs), int(lb)
	n = (3 + nblocks) * hs
	if len(raw) < n {
		return nil, 0, io.ErrUnexpectedEOF
	}
	csizes := make([]int, nblocks)
	left := uint64(len(raw) - n)
	for ib := range csizes {
		cs := h.get(raw[(3+ib)*hs:])
		if cs > left {
			return nil, 0, fmt.Errorf("block %d: %w: %d compressed bytes, %d left", ib, io.ErrUnexpectedEOF, cs, left)
		}
		left -= cs
		csizes[ib] = int(cs)
	}
	// the claimed size only sets the initial capacity up to what the input
	// could plausibly inflate to
	capacity := nblocks * blockSize
	if limit := 16 * len(raw); capacity > limit {
		capacity = limit
	}
	out := bytes.NewBuffer(make([]byte, 0, capacity))
	for ib, cs := range csizes {
		zr, zerr := zlib.NewReader(bytes.NewReader(raw[n : n+cs]))
		if zerr != nil {
			return nil, 0, fmt.Errorf("block %d: %w", ib, zerr)
		}
		want := blockSize
		if ib == nblocks-1 && last != 0 {
			want = last
		}
		got, cerr := io.CopyN(out, zr, int64(want))
		zr.Close()
		if cerr != nil {
			return nil, 0, fmt.Errorf("block %d: inflated %d of %d bytes: %w", ib, got, want, cerr)
		}
		n += cs
	}
	return out.Bytes(), n, nil
}
