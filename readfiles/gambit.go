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

// Gambit NTYPE codes
var gambitElementType = map[int]mesh.ElementType{
	1: mesh.Line,
	2: mesh.Quad,
	3: mesh.Triangle,
	4: mesh.Hex,
	5: mesh.Prism,
	6: mesh.Tet,
	7: mesh.Pyramid,
}

// Gambit to VTK node order, Gambit numbers the quadrilateral base of volume
// elements in a Z pattern
var gambitToVTK = map[mesh.ElementType][]int{
	mesh.Hex:     {0, 1, 3, 2, 4, 5, 7, 6},
	mesh.Pyramid: {0, 1, 3, 2, 4},
}

// Gambit face definitions, 1-based in native node order
var gambitFaces = map[mesh.ElementType][][]int{
	mesh.Hex: {
		{1, 2, 6, 5}, {2, 4, 8, 6}, {4, 3, 7, 8},
		{3, 1, 5, 7}, {2, 1, 3, 4}, {5, 6, 8, 7},
	},
	mesh.Tet: {
		{2, 1, 3}, {1, 2, 4}, {2, 3, 4}, {3, 1, 4},
	},
	mesh.Prism: {
		{1, 2, 5, 4}, {2, 3, 6, 5}, {3, 1, 4, 6}, {1, 3, 2}, {4, 5, 6},
	},
	mesh.Pyramid: {
		{1, 3, 4, 2}, {1, 2, 5}, {2, 4, 5}, {4, 3, 5}, {3, 1, 5},
	},
}

// gambitScanner tokenizes a neutral file while keeping line boundaries
// available to section headers
type gambitScanner struct {
	*bufio.Scanner
	pending []string
}

// fields returns at least n tokens, continuing onto following lines
func (s *gambitScanner) fields(n int) ([]string, error) {
	var out []string
	if len(s.pending) > 0 {
		out, s.pending = s.pending, nil
	}
	for len(out) < n {
		if !s.Scan() {
			return nil, io.ErrUnexpectedEOF
		}
		out = append(out, strings.Fields(s.Text())...)
	}
	return out, nil
}

// ReadGambitNeutral reads a Gambit neutral file (.neu)
func ReadGambitNeutral(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	msh, err := ParseGambitNeutral(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return msh, nil
}

// ParseGambitNeutral reads a Gambit neutral mesh from r
func ParseGambitNeutral(r io.Reader) (*mesh.Mesh, error) {
	s := &gambitScanner{Scanner: bufio.NewScanner(r)}
	msh := mesh.NewMesh()
	// native node order of every element, for boundary face lookup
	var native [][]int

	// Control variables from header
	var numnp, nelem, ngrps, nbsets int
	var haveControl bool

	for s.Scan() {
		line := strings.TrimSpace(s.Text())

		switch {
		case line == "ENDOFSECTION" || line == "":
			continue

		case strings.Contains(line, "NUMNP") && strings.Contains(line, "NELEM"):
			values, err := s.fields(4)
			if err != nil {
				return nil, fmt.Errorf("control info: %w", err)
			}
			ctl := make([]int, 4)
			for i := range ctl {
				if ctl[i], err = strconv.Atoi(values[i]); err != nil {
					return nil, fmt.Errorf("control info: %v", err)
				}
			}
			numnp, nelem, ngrps, nbsets = ctl[0], ctl[1], ctl[2], ctl[3]
			haveControl = true

		case strings.Contains(line, "NODAL COORDINATES"):
			if !haveControl {
				return nil, fmt.Errorf("nodal coordinates before control info")
			}
			if err := readGambitNodes(s, msh, numnp); err != nil {
				return nil, err
			}

		case strings.Contains(line, "ELEMENTS/CELLS"):
			var err error
			if native, err = readGambitElements(s, msh, nelem); err != nil {
				return nil, err
			}

		case strings.Contains(line, "ELEMENT GROUP"):
			if err := readGambitGroup(s, msh, line); err != nil {
				return nil, err
			}

		case strings.Contains(line, "BOUNDARY CONDITIONS"):
			if err := readGambitBC(s, msh, native); err != nil {
				return nil, err
			}
		}
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %v", err)
	}
	if !haveControl {
		return nil, fmt.Errorf("missing control info section")
	}
	if len(msh.EtoV) != nelem {
		return nil, fmt.Errorf("read %d elements, control info declares %d", len(msh.EtoV), nelem)
	}
	if len(msh.ElementGroups) != ngrps {
		return nil, fmt.Errorf("read %d element groups, control info declares %d",
			len(msh.ElementGroups), ngrps)
	}
	if len(msh.BoundaryTags) != nbsets {
		return nil, fmt.Errorf("read %d boundary sets, control info declares %d",
			len(msh.BoundaryTags), nbsets)
	}

	msh.BuildConnectivity()
	return msh, nil
}

func readGambitNodes(s *gambitScanner, msh *mesh.Mesh, numnp int) error {
	msh.Vertices = make([][]float64, 0, numnp)
	for i := 0; i < numnp; i++ {
		if !s.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		fields := strings.Fields(s.Text())
		if len(fields) < 3 {
			return fmt.Errorf("invalid node line: %s", s.Text())
		}
		nodeID, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("invalid node id: %v", err)
		}
		// 2D meshes carry two coordinates
		coords := make([]float64, len(fields)-1)
		for j := range coords {
			if coords[j], err = strconv.ParseFloat(fields[1+j], 64); err != nil {
				return fmt.Errorf("node %d: invalid coordinate: %v", nodeID, err)
			}
		}
		msh.AddNode(nodeID, coords)
	}
	return nil
}

func readGambitElements(s *gambitScanner, msh *mesh.Mesh, nelem int) ([][]int, error) {
	native := make([][]int, 0, nelem)
	for i := 0; i < nelem; i++ {
		head, err := s.fields(3)
		if err != nil {
			return nil, fmt.Errorf("reading elements: %w", err)
		}
		elemID, _ := strconv.Atoi(head[0])
		gambitType, _ := strconv.Atoi(head[1])
		numNodes, err := strconv.Atoi(head[2])
		if err != nil {
			return nil, fmt.Errorf("invalid element line: %v", head)
		}

		etype, ok := gambitElementType[gambitType]
		if !ok {
			return nil, fmt.Errorf("element %d: unsupported Gambit element type %d", elemID, gambitType)
		}
		if numNodes != etype.GetNumNodes() {
			return nil, fmt.Errorf("element %d: %v with %d nodes is not supported", elemID, etype, numNodes)
		}

		// Node lists of large elements wrap onto a continuation line
		s.pending = head[3:]
		fields, err := s.fields(numNodes)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", elemID, err)
		}
		if len(fields) != numNodes {
			return nil, fmt.Errorf("element %d: expected %d nodes, got %d", elemID, numNodes, len(fields))
		}
		nodes := make([]int, numNodes)
		for j, f := range fields {
			if nodes[j], err = strconv.Atoi(f); err != nil {
				return nil, fmt.Errorf("element %d: invalid node id: %v", elemID, err)
			}
		}

		if err := msh.AddElement(elemID, etype, []int{0}, permute(nodes, gambitToVTK[etype])); err != nil {
			return nil, err
		}
		native = append(native, nodes)
	}
	return native, nil
}

// readGambitGroup reads one ELEMENT GROUP section, Gambit writes one section
// per group
func readGambitGroup(s *gambitScanner, msh *mesh.Mesh, header string) error {
	line := header
	if !strings.Contains(line, "GROUP:") {
		if !s.Scan() {
			return fmt.Errorf("unexpected EOF in element group")
		}
		line = s.Text()
	}

	var groupID, numElems, materialID, nflags int
	parts := strings.Fields(line)
	for i := 0; i < len(parts)-1; i++ {
		v, _ := strconv.Atoi(parts[i+1])
		switch parts[i] {
		case "GROUP:":
			groupID = v
		case "ELEMENTS:":
			numElems = v
		case "MATERIAL:":
			materialID = v
		case "NFLAGS:":
			nflags = v
		}
	}

	if !s.Scan() {
		return fmt.Errorf("group %d: unexpected EOF reading name", groupID)
	}
	group := &mesh.ElementGroup{
		Dimension:  msh.GetMeshDimension(),
		Tag:        groupID,
		Name:       strings.TrimSpace(s.Text()),
		MaterialID: materialID,
		Elements:   make([]int, 0, numElems),
	}

	if nflags > 0 {
		flags, err := s.fields(nflags)
		if err != nil {
			return fmt.Errorf("group %d flags: %w", groupID, err)
		}
		group.Flags = make([]int, len(flags))
		for i, f := range flags {
			group.Flags[i], _ = strconv.Atoi(f)
		}
	}

	ids, err := s.fields(numElems)
	if err != nil {
		return fmt.Errorf("group %d elements: %w", groupID, err)
	}
	for _, f := range ids {
		elemID, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("group %d: invalid element id %q", groupID, f)
		}
		elemIdx, ok := msh.ElementIDMap[elemID]
		if !ok {
			return fmt.Errorf("group %d: element %d not found", groupID, elemID)
		}
		msh.ElementTags[elemIdx] = []int{groupID}
		group.Elements = append(group.Elements, elemIdx)
	}
	msh.ElementGroups[groupID] = group
	return nil
}

// readGambitBC reads one BOUNDARY CONDITIONS section. Element type BCs are
// stored as boundary elements, node type BCs are skipped.
func readGambitBC(s *gambitScanner, msh *mesh.Mesh, native [][]int) error {
	if !s.Scan() {
		return fmt.Errorf("unexpected EOF in boundary conditions")
	}
	// Format: NAME ITYPE NENTRY NVALUES IBCODE1 ...
	parts := strings.Fields(s.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid boundary condition line: %s", s.Text())
	}
	bcName := parts[0]
	itype, _ := strconv.Atoi(parts[1]) // 0=node, 1=element/cell
	nentry, _ := strconv.Atoi(parts[2])
	msh.BoundaryTags[len(msh.BoundaryTags)] = bcName

	for i := 0; i < nentry; i++ {
		if !s.Scan() {
			return fmt.Errorf("boundary %s: unexpected EOF", bcName)
		}
		if itype != 1 {
			continue
		}
		fields := strings.Fields(s.Text())
		if len(fields) < 3 {
			return fmt.Errorf("boundary %s: invalid entry: %s", bcName, s.Text())
		}
		elemID, _ := strconv.Atoi(fields[0])
		faceID, _ := strconv.Atoi(fields[2])

		elemIdx, ok := msh.ElementIDMap[elemID]
		if !ok {
			return fmt.Errorf("boundary %s: element %d not found", bcName, elemID)
		}
		parentType := msh.ElementTypes[elemIdx]
		faces := gambitFaces[parentType]
		if faceID < 1 || faceID > len(faces) {
			return fmt.Errorf("boundary %s: element %d has no face %d", bcName, elemID, faceID)
		}

		face := faces[faceID-1]
		nodes := make([]int, len(face))
		for j, local := range face {
			nodes[j] = msh.NodeIDMap[native[elemIdx][local-1]]
		}
		btype := mesh.Triangle
		if len(nodes) == 4 {
			btype = mesh.Quad
		}
		msh.AddBoundaryElement(bcName, mesh.BoundaryElement{
			ElementType:   btype,
			Nodes:         nodes,
			ParentElement: elemIdx,
			ParentFace:    faceID - 1, // Store as 0-based
		})
	}
	return nil
}
