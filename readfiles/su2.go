package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/femvtu/mesh"
	"github.com/notargets/femvtu/vtk"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
// SU2 element identifiers are VTK cell type numbers.

// ReadSU2 reads an SU2 native format file
func ReadSU2(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	msh, err := ParseSU2(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return msh, nil
}

// su2Lines skips blank lines and strips % comments
type su2Lines struct {
	*bufio.Scanner
}

func (s su2Lines) next() (string, bool) {
	for s.Scan() {
		line := s.Text()
		if idx := strings.Index(line, "%"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, true
		}
	}
	return "", false
}

func keyword(line, key string) (string, bool) {
	if !strings.HasPrefix(line, key) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, key)), true
}

func keywordInt(line, key string) (int, bool, error) {
	v, ok := keyword(line, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s line: %s", key, line)
	}
	return n, true, nil
}

// ParseSU2 reads an SU2 mesh from r
func ParseSU2(r io.Reader) (*mesh.Mesh, error) {
	s := su2Lines{bufio.NewScanner(r)}
	msh := mesh.NewMesh()
	var ndime int
	// NELEM= usually precedes NPOIN=, elements are added once points are known
	var elems []su2Element

	for {
		line, ok := s.next()
		if !ok {
			break
		}

		if n, ok, err := keywordInt(line, "NDIME="); ok {
			if err != nil {
				return nil, err
			}
			if n != 2 && n != 3 {
				return nil, fmt.Errorf("unsupported dimension: NDIME=%d", n)
			}
			ndime = n

		} else if n, ok, err := keywordInt(line, "NPOIN="); ok {
			if err != nil {
				// NPOIN= may carry a second count of halo points
				fields := strings.Fields(strings.TrimPrefix(line, "NPOIN="))
				if len(fields) == 0 {
					return nil, err
				}
				if n, err = strconv.Atoi(fields[0]); err != nil {
					return nil, err
				}
			}
			if ndime == 0 {
				return nil, fmt.Errorf("NPOIN= before NDIME=")
			}
			if err := readSU2Points(s, msh, ndime, n); err != nil {
				return nil, err
			}

		} else if n, ok, err := keywordInt(line, "NELEM="); ok {
			if err != nil {
				return nil, err
			}
			if elems, err = readSU2Elements(s, n); err != nil {
				return nil, err
			}

		} else if n, ok, err := keywordInt(line, "NMARK="); ok {
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				if err := readSU2Marker(s, msh, i); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %v", err)
	}
	if ndime == 0 {
		return nil, fmt.Errorf("missing required NDIME= section")
	}
	if len(msh.Vertices) == 0 {
		return nil, fmt.Errorf("missing required NPOIN= section")
	}
	for i, e := range elems {
		// Element ID is implicit (0-based)
		if err := msh.AddElement(i, e.etype, []int{0}, e.nodes); err != nil {
			return nil, err
		}
	}
	for tag, belems := range msh.BoundaryElements {
		for _, be := range belems {
			for _, v := range be.Nodes {
				if v < 0 || v >= len(msh.Vertices) {
					return nil, fmt.Errorf("marker %s: node index %d out of range [0,%d)",
						tag, v, len(msh.Vertices))
				}
			}
		}
	}

	msh.BuildConnectivity()
	return msh, nil
}

func readSU2Points(s su2Lines, msh *mesh.Mesh, ndime, npoin int) error {
	msh.Vertices = make([][]float64, 0, npoin)
	for i := 0; i < npoin; i++ {
		line, ok := s.next()
		if !ok {
			return fmt.Errorf("unexpected EOF reading nodes")
		}
		fields := strings.Fields(line)
		if len(fields) < ndime {
			return fmt.Errorf("invalid node line: expected at least %d coordinates", ndime)
		}
		coords := make([]float64, ndime)
		for j := range coords {
			var err error
			if coords[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
				return fmt.Errorf("invalid coordinate: %v", err)
			}
		}
		// Node ID is implicit (0-based), a trailing legacy index is ignored
		msh.AddNode(i, coords)
	}
	return nil
}

// su2Connectivity parses "type n1 n2 ..." with the node count taken from the type
func su2Connectivity(line string) (mesh.ElementType, []int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return mesh.Unknown, nil, fmt.Errorf("invalid element line: %s", line)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return mesh.Unknown, nil, fmt.Errorf("invalid element type: %v", err)
	}
	etype := mesh.FromVTKCellType(vtk.CellType(id))
	if etype == mesh.Unknown {
		return mesh.Unknown, nil, fmt.Errorf("unknown element type: %d", id)
	}
	numNodes := etype.GetNumNodes()
	if len(fields) < numNodes+1 {
		return mesh.Unknown, nil, fmt.Errorf("element type %v expects %d nodes, got %d fields",
			etype, numNodes, len(fields)-1)
	}
	nodes := make([]int, numNodes)
	for j := range nodes {
		if nodes[j], err = strconv.Atoi(fields[1+j]); err != nil {
			return mesh.Unknown, nil, fmt.Errorf("invalid node index: %v", err)
		}
	}
	return etype, nodes, nil
}

type su2Element struct {
	etype mesh.ElementType
	nodes []int
}

func readSU2Elements(s su2Lines, nelem int) ([]su2Element, error) {
	elems := make([]su2Element, 0, nelem)
	for i := 0; i < nelem; i++ {
		line, ok := s.next()
		if !ok {
			return nil, fmt.Errorf("unexpected EOF reading elements")
		}
		etype, nodes, err := su2Connectivity(line)
		if err != nil {
			return nil, err
		}
		elems = append(elems, su2Element{etype, nodes})
	}
	return elems, nil
}

func readSU2Marker(s su2Lines, msh *mesh.Mesh, idx int) error {
	line, ok := s.next()
	if !ok {
		return fmt.Errorf("unexpected EOF reading marker %d", idx)
	}
	tagName, ok := keyword(line, "MARKER_TAG=")
	if !ok {
		return fmt.Errorf("expected MARKER_TAG=, got: %s", line)
	}
	if line, ok = s.next(); !ok {
		return fmt.Errorf("unexpected EOF reading marker elements for %s", tagName)
	}
	n, ok, err := keywordInt(line, "MARKER_ELEMS=")
	if !ok || err != nil {
		return fmt.Errorf("invalid MARKER_ELEMS line: %s", line)
	}
	msh.BoundaryTags[idx] = tagName

	for j := 0; j < n; j++ {
		if line, ok = s.next(); !ok {
			return fmt.Errorf("unexpected EOF reading boundary elements")
		}
		btype, nodes, err := su2Connectivity(line)
		if err != nil {
			return fmt.Errorf("marker %s: %w", tagName, err)
		}
		msh.AddBoundaryElement(tagName, mesh.BoundaryElement{
			ElementType:   btype,
			Nodes:         nodes,
			ParentElement: -1, // Not tracked in SU2 format
			ParentFace:    -1,
		})
	}
	return nil
}
