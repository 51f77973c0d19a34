package mesh

import "github.com/notargets/femvtu/vtk"

// ElementType represents different finite element types. Node ordering
// within an element follows the VTK convention, readers permute their
// native ordering on input.
type ElementType int

const (
	Unknown ElementType = iota
	// 0D elements
	Point
	// 1D elements
	Line
	Line3 // 3-node line (quadratic)
	// 2D elements
	Triangle
	Quad
	Triangle6 // 6-node triangle (quadratic)
	Quad8     // 8-node quad (quadratic)
	// 3D elements
	Tet
	Hex
	Prism
	Pyramid
	Tet10 // 10-node tetrahedron (quadratic)
	Hex20 // 20-node hexahedron (quadratic)
)

// String representation of element types
func (e ElementType) String() string {
	names := []string{
		"Unknown",
		"Point",
		"Line", "Line3",
		"Triangle", "Quad", "Triangle6", "Quad8",
		"Tet", "Hex", "Prism", "Pyramid",
		"Tet10", "Hex20",
	}
	if e >= 0 && int(e) < len(names) {
		return names[e]
	}
	return "Invalid"
}

// GetDimension returns the spatial dimension of the element
func (e ElementType) GetDimension() int {
	switch e {
	case Point:
		return 0
	case Line, Line3:
		return 1
	case Triangle, Quad, Triangle6, Quad8:
		return 2
	case Tet, Hex, Prism, Pyramid, Tet10, Hex20:
		return 3
	default:
		return -1
	}
}

// GetNumNodes returns the number of nodes for each element type
func (e ElementType) GetNumNodes() int {
	switch e {
	case Point:
		return 1
	case Line:
		return 2
	case Line3, Triangle:
		return 3
	case Quad, Tet:
		return 4
	case Pyramid:
		return 5
	case Triangle6, Prism:
		return 6
	case Quad8, Hex:
		return 8
	case Tet10:
		return 10
	case Hex20:
		return 20
	default:
		return 0
	}
}

// GetNumFaces returns the number of faces for 3D elements
func (e ElementType) GetNumFaces() int {
	switch e {
	case Tet, Tet10:
		return 4
	case Hex, Hex20:
		return 6
	case Prism, Pyramid:
		return 5
	default:
		return 0
	}
}

// GetCornerNodes returns the indices of corner nodes for higher-order elements
func (e ElementType) GetCornerNodes() []int {
	switch e {
	case Line3:
		return []int{0, 1}
	case Triangle6:
		return []int{0, 1, 2}
	case Quad8:
		return []int{0, 1, 2, 3}
	case Tet10:
		return []int{0, 1, 2, 3}
	case Hex20:
		return []int{0, 1, 2, 3, 4, 5, 6, 7}
	default:
		// For linear elements, all nodes are corner nodes
		n := e.GetNumNodes()
		nodes := make([]int, n)
		for i := 0; i < n; i++ {
			nodes[i] = i
		}
		return nodes
	}
}

// LinearType returns the linear element sharing the corner nodes
func (e ElementType) LinearType() ElementType {
	switch e {
	case Line3:
		return Line
	case Triangle6:
		return Triangle
	case Quad8:
		return Quad
	case Tet10:
		return Tet
	case Hex20:
		return Hex
	}
	return e
}

var vtkCellTypes = map[ElementType]vtk.CellType{
	Point:     vtk.Vertex,
	Line:      vtk.Line,
	Line3:     vtk.QuadraticEdge,
	Triangle:  vtk.Triangle,
	Quad:      vtk.Quad,
	Triangle6: vtk.QuadraticTriangle,
	Quad8:     vtk.QuadraticQuad,
	Tet:       vtk.Tetra,
	Hex:       vtk.Hexahedron,
	Prism:     vtk.Wedge,
	Pyramid:   vtk.Pyramid,
	Tet10:     vtk.QuadraticTetra,
	Hex20:     vtk.QuadraticHexahedron,
}

// VTKCellType returns the VTK cell type id for the element
func (e ElementType) VTKCellType() (ct vtk.CellType, ok bool) {
	ct, ok = vtkCellTypes[e]
	return
}

// FromVTKCellType is the inverse of VTKCellType
func FromVTKCellType(ct vtk.CellType) ElementType {
	for e, c := range vtkCellTypes {
		if c == ct {
			return e
		}
	}
	return Unknown
}

// GetElementFaces returns the faces of an element as vertex lists, outward
// normals for VTK ordered corners
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	if elemType.GetNumFaces() == 0 || len(vertices) < elemType.LinearType().GetNumNodes() {
		return [][]int{}
	}
	v := vertices
	switch elemType.LinearType() {
	case Tet:
		return [][]int{
			{v[0], v[2], v[1]}, // Face 0
			{v[0], v[1], v[3]}, // Face 1
			{v[1], v[2], v[3]}, // Face 2
			{v[0], v[3], v[2]}, // Face 3
		}
	case Hex:
		return [][]int{
			{v[0], v[3], v[2], v[1]}, // Face 0 (bottom)
			{v[4], v[5], v[6], v[7]}, // Face 1 (top)
			{v[0], v[1], v[5], v[4]}, // Face 2
			{v[1], v[2], v[6], v[5]}, // Face 3
			{v[2], v[3], v[7], v[6]}, // Face 4
			{v[3], v[0], v[4], v[7]}, // Face 5
		}
	case Prism:
		return [][]int{
			{v[0], v[2], v[1]},       // Face 0 (bottom tri)
			{v[3], v[4], v[5]},       // Face 1 (top tri)
			{v[0], v[1], v[4], v[3]}, // Face 2 (quad)
			{v[1], v[2], v[5], v[4]}, // Face 3 (quad)
			{v[2], v[0], v[3], v[5]}, // Face 4 (quad)
		}
	case Pyramid:
		return [][]int{
			{v[0], v[3], v[2], v[1]}, // Face 0 (base quad)
			{v[0], v[1], v[4]},       // Face 1 (tri)
			{v[1], v[2], v[4]},       // Face 2 (tri)
			{v[2], v[3], v[4]},       // Face 3 (tri)
			{v[3], v[0], v[4]},       // Face 4 (tri)
		}
	}
	return [][]int{}
}
