package vtk

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// PointsType is the precision used for the Points array
type PointsType uint8

const (
	Float32Points PointsType = iota
	Float64Points
)

const asciiValuesPerLine = 6

// Writer encodes an UnstructuredGrid as a VTK XML .vtu file
type Writer struct {
	Mode        DataMode
	Compression Compression
	HeaderType  HeaderType
	PointsType  PointsType
	BlockSize   int // zero means DefaultBlockSize
}

func NewWriter(mode DataMode) *Writer {
	return &Writer{Mode: mode}
}

// payload is one DataArray element ready to be written
type payload struct {
	name       string
	typ        string
	nComp      int
	vals       interface{} // []float32, []float64, []int64 or []uint8
	rmin, rmax float64
	hasRange   bool

	// binary forms, filled for Binary and Appended modes
	header, body []byte
	offset       int
}

func (p *payload) raw() []byte {
	var (
		buf []byte
		le  = binary.LittleEndian
	)
	switch v := p.vals.(type) {
	case []float32:
		buf = make([]byte, 0, 4*len(v))
		for _, x := range v {
			buf = le.AppendUint32(buf, math.Float32bits(x))
		}
	case []float64:
		buf = make([]byte, 0, 8*len(v))
		for _, x := range v {
			buf = le.AppendUint64(buf, math.Float64bits(x))
		}
	case []int64:
		buf = make([]byte, 0, 8*len(v))
		for _, x := range v {
			buf = le.AppendUint64(buf, uint64(x))
		}
	case []uint8:
		buf = append(buf, v...)
	}
	return buf
}

func (p *payload) writeASCII(w *bufio.Writer, indent string) {
	var n int
	item := func(s string) {
		if n%asciiValuesPerLine == 0 {
			if n > 0 {
				w.WriteByte('\n')
			}
			w.WriteString(indent)
		} else {
			w.WriteByte(' ')
		}
		w.WriteString(s)
		n++
	}
	switch v := p.vals.(type) {
	case []float32:
		for _, x := range v {
			item(strconv.FormatFloat(float64(x), 'g', -1, 32))
		}
	case []float64:
		for _, x := range v {
			item(strconv.FormatFloat(x, 'g', -1, 64))
		}
	case []int64:
		for _, x := range v {
			item(strconv.FormatInt(x, 10))
		}
	case []uint8:
		for _, x := range v {
			item(strconv.Itoa(int(x)))
		}
	}
	if n > 0 {
		w.WriteByte('\n')
	}
}

func arrayPayload(da *DataArray) *payload {
	p := &payload{
		name:  da.Name,
		typ:   "Float32",
		nComp: da.NumberOfComponents,
		vals:  da.Values,
	}
	if da.NumberOfTuples() > 0 {
		p.rmin, p.rmax = da.Range()
		p.hasRange = true
	}
	return p
}

func (wr *Writer) pointsPayload(g *UnstructuredGrid) *payload {
	p := &payload{name: "Points", nComp: 3}
	if wr.PointsType == Float64Points {
		vals := make([]float64, 0, 3*len(g.Points))
		for _, pt := range g.Points {
			vals = append(vals, pt[0], pt[1], pt[2])
		}
		p.typ, p.vals = "Float64", vals
	} else {
		vals := make([]float32, 0, 3*len(g.Points))
		for _, pt := range g.Points {
			vals = append(vals, float32(pt[0]), float32(pt[1]), float32(pt[2]))
		}
		p.typ, p.vals = "Float32", vals
	}
	if len(g.Points) > 0 {
		mags := make([]float64, len(g.Points))
		for i, pt := range g.Points {
			mags[i] = floats.Norm(pt[:], 2)
		}
		p.rmin, p.rmax = floats.Min(mags), floats.Max(mags)
		p.hasRange = true
	}
	return p
}

func cellPayloads(g *UnstructuredGrid) (conn, offsets, types *payload) {
	var (
		cv  []int64
		ov  = make([]int64, len(g.Cells))
		tv  = make([]uint8, len(g.Cells))
		off int64
	)
	for i, c := range g.Cells {
		cv = append(cv, c.PointIDs...)
		off += int64(len(c.PointIDs))
		ov[i] = off
		tv[i] = uint8(c.Type)
	}
	conn = &payload{name: "connectivity", typ: "Int64", vals: cv}
	offsets = &payload{name: "offsets", typ: "Int64", vals: ov}
	types = &payload{name: "types", typ: "UInt8", vals: tv}
	if len(cv) > 0 {
		conn.rmin, conn.rmax = intRange(cv)
		conn.hasRange = true
	}
	if len(ov) > 0 {
		offsets.rmin, offsets.rmax = intRange(ov)
		offsets.hasRange = true
		types.rmin, types.rmax = float64(tv[0]), float64(tv[0])
		for _, t := range tv {
			types.rmin = math.Min(types.rmin, float64(t))
			types.rmax = math.Max(types.rmax, float64(t))
		}
		types.hasRange = true
	}
	return
}

func intRange(v []int64) (min, max float64) {
	lo, hi := v[0], v[0]
	for _, x := range v {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return float64(lo), float64(hi)
}

// WriteFile writes the grid to filename, creating parent directories. The
// grid and the options are checked before the file is created, and a file
// left by a failed write is removed.
func (wr *Writer) WriteFile(filename string, g *UnstructuredGrid) (err error) {
	if err = wr.check(g); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	var f *os.File
	if f, err = os.Create(filename); err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(filename)
		}
	}()
	if err = wr.encode(f, g); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

// Write validates the grid and encodes it to w
func (wr *Writer) Write(w io.Writer, g *UnstructuredGrid) error {
	if err := wr.check(g); err != nil {
		return err
	}
	return wr.encode(w, g)
}

func (wr *Writer) check(g *UnstructuredGrid) error {
	if g == nil {
		return fmt.Errorf("nil grid")
	}
	switch wr.Mode {
	case Ascii, Binary, Appended:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidMode, wr.Mode)
	}
	if wr.Compression != NoCompression && wr.Compression != ZLib {
		return fmt.Errorf("%w: %s", ErrInvalidCompression, wr.Compression)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid grid: %w", err)
	}
	return nil
}

func (wr *Writer) encode(w io.Writer, g *UnstructuredGrid) error {
	var (
		pointData = make([]*payload, len(g.PointData))
		cellData  = make([]*payload, len(g.CellData))
		points    = wr.pointsPayload(g)
	)
	for i, da := range g.PointData {
		pointData[i] = arrayPayload(da)
	}
	for i, da := range g.CellData {
		cellData[i] = arrayPayload(da)
	}
	conn, offsets, types := cellPayloads(g)

	// file order is PointData, CellData, Points, Cells
	all := append(append(append([]*payload{}, pointData...), cellData...), points, conn, offsets, types)
	if wr.Mode != Ascii {
		var offset int
		for _, p := range all {
			var err error
			if p.header, p.body, err = encodeBlocks(p.raw(), wr.Compression, wr.HeaderType, wr.BlockSize); err != nil {
				return fmt.Errorf("encoding %s: %w", p.name, err)
			}
			p.offset = offset
			offset += len(p.header) + len(p.body)
		}
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(`<?xml version="1.0"?>` + "\n")
	fmt.Fprintf(bw, `<VTKFile type="UnstructuredGrid" version="1.0" byte_order="LittleEndian" header_type="%s"`, wr.HeaderType)
	if wr.Mode != Ascii && wr.Compression == ZLib {
		fmt.Fprintf(bw, ` compressor="%s"`, zlibCompressorName)
	}
	bw.WriteString(">\n  <UnstructuredGrid>\n")
	fmt.Fprintf(bw, "    <Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n", len(g.Points), len(g.Cells))

	section := func(tag string, ps []*payload) {
		fmt.Fprintf(bw, "      <%s>\n", tag)
		for _, p := range ps {
			wr.writeArray(bw, p)
		}
		fmt.Fprintf(bw, "      </%s>\n", tag)
	}
	section("PointData", pointData)
	section("CellData", cellData)
	section("Points", []*payload{points})
	section("Cells", []*payload{conn, offsets, types})

	bw.WriteString("    </Piece>\n  </UnstructuredGrid>\n")
	if wr.Mode == Appended {
		bw.WriteString("  <AppendedData encoding=\"raw\">\n   _")
		for _, p := range all {
			bw.Write(p.header)
			bw.Write(p.body)
		}
		bw.WriteString("\n  </AppendedData>\n")
	}
	bw.WriteString("</VTKFile>\n")
	return bw.Flush()
}

func (wr *Writer) writeArray(bw *bufio.Writer, p *payload) {
	const indent = "        "
	fmt.Fprintf(bw, `%s<DataArray type="%s" Name="%s"`, indent, p.typ, escapeAttr(p.name))
	if p.nComp > 0 {
		fmt.Fprintf(bw, ` NumberOfComponents="%d"`, p.nComp)
	}
	fmt.Fprintf(bw, ` format="%s"`, wr.Mode)
	if p.hasRange {
		fmt.Fprintf(bw, ` RangeMin="%s" RangeMax="%s"`,
			strconv.FormatFloat(p.rmin, 'g', -1, 64), strconv.FormatFloat(p.rmax, 'g', -1, 64))
	}
	switch wr.Mode {
	case Appended:
		fmt.Fprintf(bw, " offset=\"%d\"/>\n", p.offset)
		return
	case Binary:
		bw.WriteString(">\n" + indent + "  ")
		bw.WriteString(base64.StdEncoding.EncodeToString(p.header))
		bw.WriteString(base64.StdEncoding.EncodeToString(p.body))
		bw.WriteString("\n")
	default:
		bw.WriteString(">\n")
		p.writeASCII(bw, indent+"  ")
	}
	fmt.Fprintf(bw, "%s</DataArray>\n", indent)
}

func escapeAttr(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
