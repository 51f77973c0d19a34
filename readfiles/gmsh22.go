package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/femvtu/mesh"
)

// gmshElementType22 maps Gmsh v2.2 element type numbers to our ElementType
var gmshElementType22 = map[int]mesh.ElementType{
	1:  mesh.Line,      // 2-node line
	2:  mesh.Triangle,  // 3-node triangle
	3:  mesh.Quad,      // 4-node quadrangle
	4:  mesh.Tet,       // 4-node tetrahedron
	5:  mesh.Hex,       // 8-node hexahedron
	6:  mesh.Prism,     // 6-node prism
	7:  mesh.Pyramid,   // 5-node pyramid
	8:  mesh.Line3,     // 3-node line
	9:  mesh.Triangle6, // 6-node triangle
	11: mesh.Tet10,     // 10-node tetrahedron
	15: mesh.Point,     // 1-node point
	16: mesh.Quad8,     // 8-node quadrangle
	17: mesh.Hex20,     // 20-node hexahedron
}

// Gmsh to VTK node order for the quadratic volume elements, the others agree
var gmshToVTK = map[mesh.ElementType][]int{
	mesh.Tet10: {0, 1, 2, 3, 4, 5, 6, 7, 9, 8},
	mesh.Hex20: {0, 1, 2, 3, 4, 5, 6, 7, 8, 11, 13, 9, 16, 18, 19, 17, 10, 12, 14, 15},
}

type gmshElement struct {
	id    int
	etype mesh.ElementType
	tags  []int
	nodes []int // file node IDs
}

// ReadGmsh22 reads a Gmsh MSH file format version 2.2 (ASCII)
func ReadGmsh22(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	msh, err := ParseGmsh22(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return msh, nil
}

// ParseGmsh22 reads a version 2.2 ASCII mesh. Elements of the highest
// dimension become the mesh, elements one dimension lower are stored as
// boundary elements under their physical group name.
func ParseGmsh22(r io.Reader) (*mesh.Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	msh := mesh.NewMesh()
	var elems []gmshElement

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch line {
		case "$MeshFormat":
			err = readMeshFormat22(scanner, msh)
		case "$PhysicalNames":
			err = readPhysicalNames(scanner, msh)
		case "$Nodes":
			err = readNodes22(scanner, msh)
		case "$Elements":
			elems, err = readElements22(scanner)
		default:
			// Skip data and unknown sections
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				err = skipSection(scanner, "$End"+line[1:])
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	if msh.FormatVersion == "" {
		return nil, fmt.Errorf("missing $MeshFormat section")
	}

	if err := classifyElements(msh, elems); err != nil {
		return nil, err
	}
	msh.BuildConnectivity()
	return msh, nil
}

func skipSection(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("unexpected EOF looking for %s", endMarker)
}

// readMeshFormat22 reads the MeshFormat section
func readMeshFormat22(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}

	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}

	msh.FormatVersion = parts[0]
	fileType, _ := strconv.Atoi(parts[1])
	msh.IsBinary = fileType == 1
	msh.DataSize, _ = strconv.Atoi(parts[2])
	if msh.IsBinary {
		return fmt.Errorf("binary Gmsh files are not supported, save as ASCII")
	}

	return skipSection(scanner, "$EndMeshFormat")
}

// readPhysicalNames reads physical group names
func readPhysicalNames(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in PhysicalNames")
	}

	numNames, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid PhysicalNames count: %v", err)
	}

	for i := 0; i < numNames; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading physical names")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			return fmt.Errorf("invalid physical name line: %s", scanner.Text())
		}
		dimension, _ := strconv.Atoi(parts[0])
		tag, _ := strconv.Atoi(parts[1])
		// Join remaining parts if name contains spaces
		name := strings.Trim(strings.Join(parts[2:], " "), "\"")

		msh.ElementGroups[tag] = &mesh.ElementGroup{
			Dimension: dimension,
			Tag:       tag,
			Name:      name,
			Elements:  []int{},
		}
	}

	return skipSection(scanner, "$EndPhysicalNames")
}

// readNodes22 reads nodes in v2.2 format
func readNodes22(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}

	numNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid node count: %v", err)
	}
	msh.Vertices = make([][]float64, 0, numNodes)

	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}

		nodeID, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid node id: %v", err)
		}
		coords := make([]float64, 3)
		for j := range coords {
			if coords[j], err = strconv.ParseFloat(parts[1+j], 64); err != nil {
				return fmt.Errorf("node %d: invalid coordinate: %v", nodeID, err)
			}
		}
		msh.AddNode(nodeID, coords)
	}

	return skipSection(scanner, "$EndNodes")
}

// readElements22 reads all elements in v2.2 format
func readElements22(scanner *bufio.Scanner) ([]gmshElement, error) {
	if !scanner.Scan() {
		return nil, fmt.Errorf("unexpected EOF in Elements")
	}

	numElements, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("invalid element count: %v", err)
	}
	elems := make([]gmshElement, 0, numElements)

	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading elements")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return nil, fmt.Errorf("invalid element line: %s", scanner.Text())
		}

		ints := make([]int, len(parts))
		for j, p := range parts {
			if ints[j], err = strconv.Atoi(p); err != nil {
				return nil, fmt.Errorf("invalid element line %q: %v", scanner.Text(), err)
			}
		}
		elemID, elemType, numTags := ints[0], ints[1], ints[2]

		etype, ok := gmshElementType22[elemType]
		if !ok {
			return nil, fmt.Errorf("element %d: unsupported Gmsh element type %d", elemID, elemType)
		}
		nodeStart := 3 + numTags
		if len(ints) != nodeStart+etype.GetNumNodes() {
			return nil, fmt.Errorf("element %d: expected %d nodes, got %d",
				elemID, etype.GetNumNodes(), len(ints)-nodeStart)
		}

		elems = append(elems, gmshElement{
			id:    elemID,
			etype: etype,
			tags:  ints[3:nodeStart],
			nodes: permute(ints[nodeStart:], gmshToVTK[etype]),
		})
	}

	return elems, skipSection(scanner, "$EndElements")
}

func classifyElements(msh *mesh.Mesh, elems []gmshElement) error {
	maxDim := 0
	for _, e := range elems {
		if d := e.etype.GetDimension(); d > maxDim {
			maxDim = d
		}
	}
	for _, e := range elems {
		var physicalTag int
		if len(e.tags) > 0 {
			physicalTag = e.tags[0]
		}
		switch e.etype.GetDimension() {
		case maxDim:
			if _, ok := msh.ElementGroups[physicalTag]; !ok && physicalTag > 0 {
				msh.ElementGroups[physicalTag] = &mesh.ElementGroup{
					Dimension: maxDim,
					Tag:       physicalTag,
					Name:      fmt.Sprintf("group_%d", physicalTag),
				}
			}
			if err := msh.AddElement(e.id, e.etype, e.tags, e.nodes); err != nil {
				return err
			}
		case maxDim - 1:
			if err := addBoundaryElement(msh, e, physicalTag); err != nil {
				return err
			}
		}
	}
	return nil
}

func addBoundaryElement(msh *mesh.Mesh, e gmshElement, physicalTag int) error {
	nodes := make([]int, len(e.nodes))
	for i, nodeID := range e.nodes {
		idx, ok := msh.GetNodeIndex(nodeID)
		if !ok {
			return fmt.Errorf("boundary element %d: node %d not found", e.id, nodeID)
		}
		nodes[i] = idx
	}

	tagName := fmt.Sprintf("boundary_%d", physicalTag)
	if group, ok := msh.ElementGroups[physicalTag]; ok {
		tagName = group.Name
	}
	msh.BoundaryTags[physicalTag] = tagName
	msh.AddBoundaryElement(tagName, mesh.BoundaryElement{
		ElementType:   e.etype,
		Nodes:         nodes,
		ParentElement: -1, // Not tracked in v2.2
		ParentFace:    -1,
	})
	return nil
}
