package vtk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	for s, want := range map[string]DataMode{"ascii": Ascii, "Binary": Binary, " appended ": Appended} {
		m, err := ParseDataMode(s)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := ParseDataMode("hdf5")
	assert.ErrorIs(t, err, ErrInvalidMode)

	c, err := ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, NoCompression, c)
	c, err = ParseCompression("vtkZLibDataCompressor")
	require.NoError(t, err)
	assert.Equal(t, ZLib, c)
	_, err = ParseCompression("lz4")
	assert.ErrorIs(t, err, ErrInvalidCompression)

	h, err := ParseHeaderType("UInt32")
	require.NoError(t, err)
	assert.Equal(t, UInt32Header, h)
	_, err = ParseHeaderType("Int8")
	assert.ErrorIs(t, err, ErrInvalidHeaderType)
}

func TestEncodeBlocks(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 7)
	}
	for _, h := range []HeaderType{UInt32Header, UInt64Header} {
		for _, bs := range []int{100, 256, 1000, 4096} {
			t.Run(fmt.Sprintf("%s/%d", h, bs), func(t *testing.T) {
				header, body, err := encodeBlocks(data, ZLib, h, bs)
				require.NoError(t, err)
				nblocks := (len(data) + bs - 1) / bs
				assert.Equal(t, (3+nblocks)*h.size(), len(header))
				assert.Equal(t, uint64(nblocks), h.get(header))
				assert.Equal(t, uint64(len(data)%bs), h.get(header[2*h.size():]))

				got, n, err := decodeBlocks(append(header, body...), ZLib, h)
				require.NoError(t, err)
				assert.Equal(t, len(header)+len(body), n)
				assert.Equal(t, data, got)
			})
		}
	}

	header, body, err := encodeBlocks(data, NoCompression, UInt32Header, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe8, 0x03, 0, 0}, header)
	assert.Equal(t, data, body)

	header, body, err = encodeBlocks(nil, ZLib, UInt64Header, 0)
	require.NoError(t, err)
	assert.Len(t, header, 24)
	assert.Empty(t, body)
	got, _, err := decodeBlocks(header, ZLib, UInt64Header)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, _, err = decodeBlocks([]byte{1, 0}, NoCompression, UInt32Header)
	assert.Error(t, err)
}

func TestWriteASCII(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(Ascii).Write(&buf, unitHexGrid(t)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0"?>`))
	assert.Contains(t, out, `<VTKFile type="UnstructuredGrid" version="1.0" byte_order="LittleEndian" header_type="UInt64">`)
	assert.Contains(t, out, `<Piece NumberOfPoints="8" NumberOfCells="1">`)
	assert.Contains(t, out, `<DataArray type="Float32" Name="Displacement" NumberOfComponents="3" format="ascii"`)
	assert.Contains(t, out, `<DataArray type="Float32" Name="VonMises" NumberOfComponents="1" format="ascii" RangeMin="42.5" RangeMax="42.5">`)
	assert.Contains(t, out, `<DataArray type="Int64" Name="connectivity" format="ascii" RangeMin="0" RangeMax="7">`)
	assert.Contains(t, out, "          0 1 2 3 4 5\n          6 7\n")
	assert.Contains(t, out, `<DataArray type="UInt8" Name="types" format="ascii" RangeMin="12" RangeMax="12">`)
	assert.NotContains(t, out, "compressor")
	assert.NotContains(t, out, "AppendedData")

	// ascii ignores the compressor
	buf.Reset()
	w := &Writer{Mode: Ascii, Compression: ZLib}
	require.NoError(t, w.Write(&buf, unitHexGrid(t)))
	assert.NotContains(t, buf.String(), "compressor")
}

func TestWriteEscapesNames(t *testing.T) {
	g := unitHexGrid(t)
	g.CellData[0].Name = `a<b & "c"`
	var buf bytes.Buffer
	require.NoError(t, NewWriter(Ascii).Write(&buf, g))
	assert.Contains(t, buf.String(), `Name="a&lt;b &amp; &#34;c&#34;"`)

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.NotNil(t, back.CellArray(`a<b & "c"`))
}

func TestWriteRejects(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, (&Writer{Mode: DataMode(7)}).Write(&buf, unitHexGrid(t)), ErrInvalidMode)
	assert.ErrorIs(t, (&Writer{Mode: Binary, Compression: Compression(9)}).Write(&buf, unitHexGrid(t)), ErrInvalidCompression)
	assert.Error(t, NewWriter(Ascii).Write(&buf, nil))

	g := unitHexGrid(t)
	g.CellData[0].InsertNextValue(1)
	assert.Error(t, NewWriter(Binary).Write(&buf, g))

	// nothing is left on disk when the grid is invalid or encoding fails
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.vtu")
	assert.ErrorContains(t, NewWriter(Binary).WriteFile(bad, g), "invalid grid")
	assert.NoFileExists(t, bad)

	overflow := &Writer{Mode: Appended, Compression: ZLib, HeaderType: UInt32Header, BlockSize: 1 << 33}
	assert.ErrorContains(t, overflow.WriteFile(bad, unitHexGrid(t)), "overflows a UInt32 header")
	assert.NoFileExists(t, bad)
	assert.NoError(t, NewWriter(Ascii).WriteFile(bad, unitHexGrid(t)))
	assert.FileExists(t, bad)
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range []DataMode{Ascii, Binary, Appended} {
		for _, comp := range []Compression{NoCompression, ZLib} {
			for _, ht := range []HeaderType{UInt32Header, UInt64Header} {
				name := fmt.Sprintf("%s/%s/%s", mode, comp, ht)
				t.Run(name, func(t *testing.T) {
					g := unitHexGrid(t)
					tet, err := NewTetra([]int{4, 5, 6, 7})
					require.NoError(t, err)
					g.InsertNextCell(tet)
					g.CellData[0].InsertNextValue(-1.25)

					fn := filepath.Join(t.TempDir(), "out", "grid.vtu")
					w := &Writer{Mode: mode, Compression: comp, HeaderType: ht, BlockSize: 64}
					require.NoError(t, w.WriteFile(fn, g))

					back, err := ReadFile(fn)
					require.NoError(t, err)
					assert.Equal(t, g.Points, back.Points)
					assert.Equal(t, g.Cells, back.Cells)
					require.Len(t, back.PointData, 1)
					assert.Equal(t, g.PointData[0], back.PointData[0])
					require.Len(t, back.CellData, 1)
					assert.Equal(t, []float32{42.5, -1.25}, back.CellData[0].Values)
				})
			}
		}
	}
}

func TestFloat64Points(t *testing.T) {
	g := NewUnstructuredGrid()
	g.InsertNextPoint(math.Pi, 1e-30, 1)
	v, err := NewVertex([]int{0})
	require.NoError(t, err)
	g.InsertNextCell(v)

	var buf bytes.Buffer
	w := &Writer{Mode: Binary, PointsType: Float64Points}
	require.NoError(t, w.Write(&buf, g))
	assert.Contains(t, buf.String(), `type="Float64" Name="Points"`)
	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, math.Pi, back.Points[0][0])

	buf.Reset()
	require.NoError(t, NewWriter(Binary).Write(&buf, g))
	back, err = Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, float64(float32(math.Pi)), back.Points[0][0])
}

func TestEmptyGrid(t *testing.T) {
	for _, mode := range []DataMode{Ascii, Binary, Appended} {
		var buf bytes.Buffer
		require.NoError(t, (&Writer{Mode: mode, Compression: ZLib}).Write(&buf, NewUnstructuredGrid()))
		back, err := Read(&buf)
		require.NoError(t, err, mode.String())
		assert.Zero(t, back.NumberOfPoints())
		assert.Zero(t, back.NumberOfCells())
	}
}

func TestReadRejects(t *testing.T) {
	_, err := Read(strings.NewReader(`<VTKFile type="PolyData"><UnstructuredGrid/></VTKFile>`))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`<VTKFile type="UnstructuredGrid" byte_order="BigEndian"><UnstructuredGrid/></VTKFile>`))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`<VTKFile type="UnstructuredGrid"><UnstructuredGrid/></VTKFile>`))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`<VTKFile type="UnstructuredGrid" compressor="vtkLZ4DataCompressor"><UnstructuredGrid/></VTKFile>`))
	assert.ErrorIs(t, err, ErrInvalidCompression)
	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.vtu"))
	assert.Error(t, err)

	// corrupt the first block header of the appended section
	for _, c := range []Compression{NoCompression, ZLib} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := &Writer{Mode: Appended, Compression: c, HeaderType: UInt64Header}
			require.NoError(t, w.Write(&buf, unitHexGrid(t)))
			data := buf.Bytes()
			marker := []byte(`<AppendedData encoding="raw">`)
			at := bytes.Index(data, marker)
			require.True(t, at > 0)
			at = bytes.IndexByte(data[at:], '_') + at + 1
			copy(data[at:], bytes.Repeat([]byte{0xff}, 8))

			_, err := Read(bytes.NewReader(data))
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}

	// a block count of 2^64-1 in an inline base64 header
	var buf bytes.Buffer
	w := &Writer{Mode: Binary, Compression: ZLib, HeaderType: UInt64Header}
	require.NoError(t, w.Write(&buf, unitHexGrid(t)))
	data := buf.Bytes()
	at := bytes.Index(data, []byte(`format="binary"`))
	require.True(t, at > 0)
	at += bytes.IndexByte(data[at:], '>') + 1
	for data[at] == ' ' || data[at] == '\n' {
		at++
	}
	copy(data[at:], "////////////")
	_, err = Read(bytes.NewReader(data))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func le64(vals ...uint64) []byte {
	var out []byte
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, v)
	}
	return out
}

func TestDecodeBlocksRejects(t *testing.T) {
	const max = math.MaxUint64
	testCases := []struct {
		name string
		c    Compression
		raw  []byte
		msg  string
	}{
		{"negative size", NoCompression, append(le64(max), make([]byte, 12)...), "block of"},
		{"short payload", NoCompression, append(le64(20), make([]byte, 12)...), "12 left"},
		{"too many blocks", ZLib, le64(max, 32768, 0), "header claims"},
		{"zero block size", ZLib, le64(1, 0, 0, 4), "zero block size"},
		{"last exceeds block", ZLib, le64(1, 16, 32, 4), "exceeds block size"},
		{"huge blocks", ZLib, le64(2, 1<<40, 0, 4, 4), "exceed"},
		{"compressed size", ZLib, le64(1, 32768, 0, max), "compressed bytes"},
		{"sum of sizes", ZLib, append(le64(2, 32768, 0, 8, 8), make([]byte, 12)...), "block 1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, _, err := decodeBlocks(tc.raw, tc.c, UInt64Header)
				assert.ErrorContains(t, err, tc.msg)
			})
		})
	}
}
