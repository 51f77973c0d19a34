package mesh

import (
	"fmt"

	"go.uber.org/multierr"
)

// ElementGroup is a named set of elements, a physical group in Gmsh or an
// element group in Gambit
type ElementGroup struct {
	Dimension  int
	Tag        int
	Name       string
	MaterialID int
	Flags      []int
	Elements   []int
}

// BoundaryElement is a lower dimensional element on a tagged boundary
type BoundaryElement struct {
	ElementType   ElementType
	Nodes         []int // array indices into Vertices
	ParentElement int   // -1 when the format does not track it
	ParentFace    int
}

// Face represents a face of an element
type Face struct {
	Vertices []int // Sorted vertex indices
	Element  int   // Parent element
	LocalID  int   // Local face ID within element
}

// Mesh represents an unstructured mesh as read from a mesh file
type Mesh struct {
	// Geometry
	Vertices     [][]float64 // Vertex coordinates [nvertices][3]
	NodeIDMap    map[int]int // file node ID -> index into Vertices
	NodeArrayMap map[int]int // index into Vertices -> file node ID

	// Element data
	EtoV         [][]int       // Element to vertex connectivity [nelems][nverts_per_elem]
	ElementTypes []ElementType // Element type for each element
	ElementTags  [][]int       // Tags for each element, the first is the physical group
	ElementIDMap map[int]int   // file element ID -> element index

	ElementGroups    map[int]*ElementGroup
	BoundaryElements map[string][]BoundaryElement
	BoundaryTags     map[int]string

	// Connectivity (built by BuildConnectivity)
	EToE    [][]int // Element to element connectivity [nelems][nfaces_per_elem]
	EToF    [][]int // Element to face connectivity [nelems][nfaces_per_elem]
	Faces   []Face
	FaceMap map[string]int

	// File metadata
	FormatVersion string
	IsBinary      bool
	DataSize      int

	// Mesh statistics
	NumElements int
	NumVertices int
	NumFaces    int
}

// NewMesh creates an empty mesh with initialized maps
func NewMesh() *Mesh {
	return &Mesh{
		NodeIDMap:        make(map[int]int),
		NodeArrayMap:     make(map[int]int),
		ElementIDMap:     make(map[int]int),
		ElementGroups:    make(map[int]*ElementGroup),
		BoundaryElements: make(map[string][]BoundaryElement),
		BoundaryTags:     make(map[int]string),
		FaceMap:          make(map[string]int),
	}
}

// AddNode appends a vertex under its file node ID. Coordinates shorter than
// three are padded with zeros.
func (m *Mesh) AddNode(nodeID int, coords []float64) {
	xyz := make([]float64, 3)
	copy(xyz, coords)
	idx := len(m.Vertices)
	m.Vertices = append(m.Vertices, xyz)
	m.NodeIDMap[nodeID] = idx
	m.NodeArrayMap[idx] = nodeID
	m.NumVertices = len(m.Vertices)
}

// GetNodeIndex maps a file node ID to an index into Vertices
func (m *Mesh) GetNodeIndex(nodeID int) (int, bool) {
	idx, ok := m.NodeIDMap[nodeID]
	return idx, ok
}

// AddElement appends an element given by file node IDs
func (m *Mesh) AddElement(elemID int, etype ElementType, tags []int, nodeIDs []int) error {
	if want := etype.GetNumNodes(); want == 0 || len(nodeIDs) != want {
		return fmt.Errorf("element %d: %v expects %d nodes, got %d",
			elemID, etype, etype.GetNumNodes(), len(nodeIDs))
	}
	verts := make([]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idx, ok := m.NodeIDMap[id]
		if !ok {
			return fmt.Errorf("element %d: node %d not found", elemID, id)
		}
		verts[i] = idx
	}
	elemIdx := len(m.EtoV)
	m.EtoV = append(m.EtoV, verts)
	m.ElementTypes = append(m.ElementTypes, etype)
	m.ElementTags = append(m.ElementTags, append([]int{}, tags...))
	m.ElementIDMap[elemID] = elemIdx
	if len(tags) > 0 {
		if group, ok := m.ElementGroups[tags[0]]; ok {
			group.Elements = append(group.Elements, elemIdx)
		}
	}
	m.NumElements = len(m.EtoV)
	return nil
}

// AddBoundaryElement records a boundary element under a boundary name
func (m *Mesh) AddBoundaryElement(tag string, belem BoundaryElement) {
	m.BoundaryElements[tag] = append(m.BoundaryElements[tag], belem)
}

// GetMeshDimension returns the highest element dimension present
func (m *Mesh) GetMeshDimension() int {
	dim := 0
	for _, t := range m.ElementTypes {
		if d := t.GetDimension(); d > dim {
			dim = d
		}
	}
	return dim
}

// ElementTag returns the physical tag of element i, 0 when untagged
func (m *Mesh) ElementTag(i int) int {
	if i < len(m.ElementTags) && len(m.ElementTags[i]) > 0 {
		return m.ElementTags[i][0]
	}
	return 0
}

// Validate checks the element arrays are consistent and every element
// references existing vertices
func (m *Mesh) Validate() (err error) {
	if len(m.ElementTypes) != len(m.EtoV) {
		err = multierr.Append(err, fmt.Errorf("%d element types for %d elements",
			len(m.ElementTypes), len(m.EtoV)))
	}
	for i, verts := range m.EtoV {
		if i < len(m.ElementTypes) {
			if want := m.ElementTypes[i].GetNumNodes(); len(verts) != want {
				err = multierr.Append(err, fmt.Errorf("element %d: %v has %d nodes, want %d",
					i, m.ElementTypes[i], len(verts), want))
			}
		}
		for _, v := range verts {
			if v < 0 || v >= len(m.Vertices) {
				err = multierr.Append(err, fmt.Errorf("element %d: vertex %d out of range [0,%d)",
					i, v, len(m.Vertices)))
			}
		}
	}
	for i, xyz := range m.Vertices {
		if len(xyz) != 3 {
			err = multierr.Append(err, fmt.Errorf("vertex %d has %d coordinates", i, len(xyz)))
		}
	}
	return
}
