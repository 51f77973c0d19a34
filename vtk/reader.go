package vtk

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type xmlFile struct {
	XMLName    xml.Name `xml:"VTKFile"`
	Type       string   `xml:"type,attr"`
	ByteOrder  string   `xml:"byte_order,attr"`
	HeaderType string   `xml:"header_type,attr"`
	Compressor string   `xml:"compressor,attr"`
	Grid       struct {
		Pieces []xmlPiece `xml:"Piece"`
	} `xml:"UnstructuredGrid"`
}

type xmlArrays struct {
	Arrays []xmlArray `xml:"DataArray"`
}

type xmlPiece struct {
	NumberOfPoints int       `xml:"NumberOfPoints,attr"`
	NumberOfCells  int       `xml:"NumberOfCells,attr"`
	PointData      xmlArrays `xml:"PointData"`
	CellData       xmlArrays `xml:"CellData"`
	Points         xmlArrays `xml:"Points"`
	Cells          xmlArrays `xml:"Cells"`
}

type xmlArray struct {
	Type               string `xml:"type,attr"`
	Name               string `xml:"Name,attr"`
	NumberOfComponents int    `xml:"NumberOfComponents,attr"`
	Format             string `xml:"format,attr"`
	Offset             int    `xml:"offset,attr"`
	Text               string `xml:",chardata"`
}

type decoder struct {
	compression Compression
	header      HeaderType
	appended    []byte
}

// ReadFile reads a .vtu file written in ascii, binary or raw appended mode
func ReadFile(filename string) (*UnstructuredGrid, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	g, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return g, nil
}

func Read(r io.Reader) (*UnstructuredGrid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (*UnstructuredGrid, error) {
	var (
		dec  = &decoder{}
		head = data
	)
	// raw appended bytes are not XML, parse the document head on its own
	if idx := bytes.Index(data, []byte("<AppendedData")); idx >= 0 {
		tagEnd := bytes.IndexByte(data[idx:], '>')
		if tagEnd < 0 {
			return nil, fmt.Errorf("unterminated AppendedData tag")
		}
		tag := string(data[idx : idx+tagEnd])
		if !strings.Contains(tag, `encoding="raw"`) {
			return nil, fmt.Errorf("only raw encoded appended data is supported")
		}
		rest := data[idx+tagEnd+1:]
		us := bytes.IndexByte(rest, '_')
		if us < 0 {
			return nil, fmt.Errorf("appended data has no '_' marker")
		}
		dec.appended = rest[us+1:]
		head = append(append([]byte{}, data[:idx]...), []byte("</VTKFile>")...)
	}

	var f xmlFile
	if err := xml.Unmarshal(head, &f); err != nil {
		return nil, fmt.Errorf("parsing xml: %w", err)
	}
	if f.Type != "UnstructuredGrid" {
		return nil, fmt.Errorf("unsupported VTKFile type %q", f.Type)
	}
	if f.ByteOrder != "" && f.ByteOrder != "LittleEndian" {
		return nil, fmt.Errorf("unsupported byte order %q", f.ByteOrder)
	}
	switch f.HeaderType {
	case "":
		// files without the attribute use 32 bit headers
		dec.header = UInt32Header
	default:
		var err error
		if dec.header, err = ParseHeaderType(f.HeaderType); err != nil {
			return nil, err
		}
	}
	switch f.Compressor {
	case "":
	case zlibCompressorName:
		dec.compression = ZLib
	default:
		return nil, fmt.Errorf("%w: unsupported compressor %q", ErrInvalidCompression, f.Compressor)
	}
	if len(f.Grid.Pieces) == 0 {
		return nil, fmt.Errorf("file has no Piece")
	}

	g := NewUnstructuredGrid()
	for ip, piece := range f.Grid.Pieces {
		if err := dec.readPiece(g, &piece); err != nil {
			return nil, fmt.Errorf("piece %d: %w", ip, err)
		}
	}
	return g, nil
}

func (dec *decoder) readPiece(g *UnstructuredGrid, p *xmlPiece) error {
	base := int64(len(g.Points))
	if len(p.Points.Arrays) != 1 {
		return fmt.Errorf("expected one Points array, got %d", len(p.Points.Arrays))
	}
	pts, err := dec.values(&p.Points.Arrays[0])
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}
	if len(pts) != 3*p.NumberOfPoints {
		return fmt.Errorf("points: %d values for %d points", len(pts), p.NumberOfPoints)
	}
	for i := 0; i < p.NumberOfPoints; i++ {
		g.InsertNextPoint(pts[3*i], pts[3*i+1], pts[3*i+2])
	}

	var conn, offsets, types []float64
	for i := range p.Cells.Arrays {
		a := &p.Cells.Arrays[i]
		vals, err := dec.values(a)
		if err != nil {
			return fmt.Errorf("cells %s: %w", a.Name, err)
		}
		switch a.Name {
		case "connectivity":
			conn = vals
		case "offsets":
			offsets = vals
		case "types":
			types = vals
		}
	}
	if len(offsets) != p.NumberOfCells || len(types) != p.NumberOfCells {
		return fmt.Errorf("cells: %d offsets and %d types for %d cells",
			len(offsets), len(types), p.NumberOfCells)
	}
	var start int
	for ic := 0; ic < p.NumberOfCells; ic++ {
		end := int(offsets[ic])
		if end < start || end > len(conn) {
			return fmt.Errorf("cell %d: offset %d out of range", ic, end)
		}
		c := Cell{Type: CellType(types[ic]), PointIDs: make([]int64, end-start)}
		for j := range c.PointIDs {
			c.PointIDs[j] = int64(conn[start+j]) + base
		}
		g.InsertNextCell(c)
		start = end
	}

	if err = dec.mergeArrays(&g.PointData, p.PointData.Arrays); err != nil {
		return fmt.Errorf("point data: %w", err)
	}
	if err = dec.mergeArrays(&g.CellData, p.CellData.Arrays); err != nil {
		return fmt.Errorf("cell data: %w", err)
	}
	return nil
}

// mergeArrays appends the values of a piece onto existing arrays of the same
// name, creating them for the first piece
func (dec *decoder) mergeArrays(dst *[]*DataArray, arrays []xmlArray) error {
	for i := range arrays {
		a := &arrays[i]
		vals, err := dec.values(a)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		da := findArray(*dst, a.Name)
		if da == nil {
			da = NewDataArray(a.Name, a.NumberOfComponents)
			*dst = append(*dst, da)
		}
		for _, v := range vals {
			da.InsertNextValue(v)
		}
	}
	return nil
}

func (dec *decoder) values(a *xmlArray) ([]float64, error) {
	switch a.Format {
	case "ascii":
		fields := strings.Fields(a.Text)
		vals := make([]float64, len(fields))
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	case "binary":
		raw, err := dec.inline(strings.Join(strings.Fields(a.Text), ""))
		if err != nil {
			return nil, err
		}
		return fromBytes(a.Type, raw)
	case "appended":
		if a.Offset < 0 || a.Offset > len(dec.appended) {
			return nil, fmt.Errorf("offset %d outside appended data", a.Offset)
		}
		raw, _, err := decodeBlocks(dec.appended[a.Offset:], dec.compression, dec.header)
		if err != nil {
			return nil, err
		}
		return fromBytes(a.Type, raw)
	}
	return nil, fmt.Errorf("%w: format %q", ErrInvalidMode, a.Format)
}

// inline decodes a binary DataArray body, where the header and the payload
// are base64 encoded separately
func (dec *decoder) inline(text string) ([]byte, error) {
	var (
		enc = base64.StdEncoding
		hs  = dec.header.size()
	)
	headerWords := 1
	if dec.compression != NoCompression {
		first, err := decodePrefix(text, 3*hs)
		if err != nil {
			return nil, err
		}
		nb := dec.header.get(first)
		if nb > uint64(len(text)/hs) {
			return nil, fmt.Errorf("%w: header claims %d blocks", io.ErrUnexpectedEOF, nb)
		}
		headerWords = 3 + int(nb)
	}
	headerLen := enc.EncodedLen(headerWords * hs)
	if len(text) < headerLen {
		return nil, io.ErrUnexpectedEOF
	}
	header, err := enc.DecodeString(text[:headerLen])
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	body, err := enc.DecodeString(text[headerLen:])
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	raw, _, err := decodeBlocks(append(header, body...), dec.compression, dec.header)
	return raw, err
}

func decodePrefix(text string, n int) ([]byte, error) {
	enc := base64.StdEncoding
	// decode whole quanta covering the first n bytes of the header
	l := (n + 2) / 3 * 4
	if len(text) < l {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, enc.DecodedLen(l))
	got, err := enc.Decode(out, []byte(text[:l]))
	if err != nil && got < n {
		return nil, err
	}
	return out[:n], nil
}

func fromBytes(typ string, raw []byte) ([]float64, error) {
	le := binary.LittleEndian
	var size int
	switch typ {
	case "Int8", "UInt8":
		size = 1
	case "Int16", "UInt16":
		size = 2
	case "Int32", "UInt32", "Float32":
		size = 4
	case "Int64", "UInt64", "Float64":
		size = 8
	default:
		return nil, fmt.Errorf("unsupported data type %q", typ)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%d bytes is not a multiple of %s", len(raw), typ)
	}
	vals := make([]float64, len(raw)/size)
	for i := range vals {
		b := raw[i*size:]
		switch typ {
		case "Int8":
			vals[i] = float64(int8(b[0]))
		case "UInt8":
			vals[i] = float64(b[0])
		case "Int16":
			vals[i] = float64(int16(le.Uint16(b)))
		case "UInt16":
			vals[i] = float64(le.Uint16(b))
		case "Int32":
			vals[i] = float64(int32(le.Uint32(b)))
		case "UInt32":
			vals[i] = float64(le.Uint32(b))
		case "Float32":
			vals[i] = float64(math.Float32frombits(le.Uint32(b)))
		case "Int64":
			vals[i] = float64(int64(le.Uint64(b)))
		case "UInt64":
			vals[i] = float64(le.Uint64(b))
		case "Float64":
			vals[i] = math.Float64frombits(le.Uint64(b))
		}
	}
	return vals, nil
}
