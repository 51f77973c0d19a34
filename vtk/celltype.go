package vtk

import "fmt"

// CellType is the VTK cell type id written into the "types" array
type CellType uint8

const (
	EmptyCell           CellType = 0
	Vertex              CellType = 1
	Line                CellType = 3
	Triangle            CellType = 5
	Quad                CellType = 9
	Tetra               CellType = 10
	Hexahedron          CellType = 12
	Wedge               CellType = 13
	Pyramid             CellType = 14
	QuadraticEdge       CellType = 21
	QuadraticTriangle   CellType = 22
	QuadraticQuad       CellType = 23
	QuadraticTetra      CellType = 24
	QuadraticHexahedron CellType = 25
)

var cellNames = map[CellType]string{
	EmptyCell:           "Empty",
	Vertex:              "Vertex",
	Line:                "Line",
	Triangle:            "Triangle",
	Quad:                "Quad",
	Tetra:               "Tetra",
	Hexahedron:          "Hexahedron",
	Wedge:               "Wedge",
	Pyramid:             "Pyramid",
	QuadraticEdge:       "QuadraticEdge",
	QuadraticTriangle:   "QuadraticTriangle",
	QuadraticQuad:       "QuadraticQuad",
	QuadraticTetra:      "QuadraticTetra",
	QuadraticHexahedron: "QuadraticHexahedron",
}

var cellPoints = map[CellType]int{
	Vertex:              1,
	Line:                2,
	Triangle:            3,
	Quad:                4,
	Tetra:               4,
	Hexahedron:          8,
	Wedge:               6,
	Pyramid:             5,
	QuadraticEdge:       3,
	QuadraticTriangle:   6,
	QuadraticQuad:       8,
	QuadraticTetra:      10,
	QuadraticHexahedron: 20,
}

func (ct CellType) String() string {
	if name, ok := cellNames[ct]; ok {
		return name
	}
	return fmt.Sprintf("CellType(%d)", uint8(ct))
}

// NumPoints returns the number of point ids a cell of this type carries, 0
// for types this package does not know
func (ct CellType) NumPoints() int {
	return cellPoints[ct]
}

// Valid reports whether the type is one the writer knows how to emit
func (ct CellType) Valid() bool {
	_, ok := cellPoints[ct]
	return ok
}

// Cell is one connectivity record of an unstructured grid
type Cell struct {
	Type     CellType
	PointIDs []int64
}

func newCell(ct CellType, ids []int) (Cell, error) {
	if len(ids) != ct.NumPoints() {
		return Cell{}, fmt.Errorf("%s requires %d point ids, got %d",
			ct, ct.NumPoints(), len(ids))
	}
	c := Cell{Type: ct, PointIDs: make([]int64, len(ids))}
	for i, id := range ids {
		if id < 0 {
			return Cell{}, fmt.Errorf("%s: negative point id %d at position %d", ct, id, i)
		}
		c.PointIDs[i] = int64(id)
	}
	return c, nil
}

// NewHexahedron builds an 8 point linear hexahedron
func NewHexahedron(ids []int) (Cell, error) { return newCell(Hexahedron, ids) }

// NewTetra builds a 4 point linear tetrahedron
func NewTetra(ids []int) (Cell, error) { return newCell(Tetra, ids) }

func NewWedge(ids []int) (Cell, error)    { return newCell(Wedge, ids) }
func NewPyramid(ids []int) (Cell, error)  { return newCell(Pyramid, ids) }
func NewTriangle(ids []int) (Cell, error) { return newCell(Triangle, ids) }
func NewQuad(ids []int) (Cell, error)     { return newCell(Quad, ids) }
func NewLine(ids []int) (Cell, error)     { return newCell(Line, ids) }
func NewVertex(ids []int) (Cell, error)   { return newCell(Vertex, ids) }

// NewCell builds a cell of any known type
func NewCell(ct CellType, ids []int) (Cell, error) {
	if !ct.Valid() {
		return Cell{}, fmt.Errorf("unknown cell type %d", uint8(ct))
	}
	return newCell(ct, ids)
}
