package mesh

import (
	"fmt"
	"io"
	"sort"
)

// BuildConnectivity builds element-to-element and face connectivity
func (m *Mesh) BuildConnectivity() {
	m.NumElements = len(m.EtoV)
	m.NumVertices = len(m.Vertices)
	m.EToE = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.Faces = m.Faces[:0]
	m.FaceMap = make(map[string]int)

	for elemID := 0; elemID < m.NumElements; elemID++ {
		faceVertices := GetElementFaces(m.ElementTypes[elemID], m.EtoV[elemID])

		m.EToE[elemID] = make([]int, len(faceVertices))
		m.EToF[elemID] = make([]int, len(faceVertices))

		// Initialize to -1 (boundary)
		for i := range m.EToE[elemID] {
			m.EToE[elemID][i] = -1
			m.EToF[elemID][i] = -1
		}

		for localFaceID, faceVerts := range faceVertices {
			sorted := make([]int, len(faceVerts))
			copy(sorted, faceVerts)
			sort.Ints(sorted)

			key := fmt.Sprintf("%v", sorted)

			if faceID, exists := m.FaceMap[key]; exists {
				// Face already exists - this is an interior face
				face := &m.Faces[faceID]
				m.EToE[elemID][localFaceID] = face.Element
				m.EToE[face.Element][face.LocalID] = elemID
				m.EToF[elemID][localFaceID] = faceID
			} else {
				faceID := len(m.Faces)
				m.Faces = append(m.Faces, Face{
					Vertices: sorted,
					Element:  elemID,
					LocalID:  localFaceID,
				})
				m.FaceMap[key] = faceID
				m.EToF[elemID][localFaceID] = faceID
			}
		}
	}

	m.NumFaces = len(m.Faces)
}

// Statistics summarizes a mesh
type Statistics struct {
	Vertices      int
	Elements      int
	Faces         int
	BoundaryFaces int
	Dimension     int
	TypeCounts    map[ElementType]int
	Boundaries    map[string]int
	Bounds        [2][3]float64 // min and max corner
}

// Statistics requires BuildConnectivity to have run for the face counts
func (m *Mesh) Statistics() Statistics {
	st := Statistics{
		Vertices:   len(m.Vertices),
		Elements:   len(m.EtoV),
		Faces:      m.NumFaces,
		Dimension:  m.GetMeshDimension(),
		TypeCounts: make(map[ElementType]int),
		Boundaries: make(map[string]int),
	}
	for _, t := range m.ElementTypes {
		st.TypeCounts[t]++
	}
	for _, neighbors := range m.EToE {
		for _, n := range neighbors {
			if n < 0 {
				st.BoundaryFaces++
			}
		}
	}
	for name, belems := range m.BoundaryElements {
		st.Boundaries[name] = len(belems)
	}
	for i, xyz := range m.Vertices {
		for d := 0; d < 3; d++ {
			if i == 0 || xyz[d] < st.Bounds[0][d] {
				st.Bounds[0][d] = xyz[d]
			}
			if i == 0 || xyz[d] > st.Bounds[1][d] {
				st.Bounds[1][d] = xyz[d]
			}
		}
	}
	return st
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics(w io.Writer) {
	st := m.Statistics()
	fmt.Fprintf(w, "Mesh Statistics:\n")
	fmt.Fprintf(w, "  Vertices: %d\n", st.Vertices)
	fmt.Fprintf(w, "  Elements: %d\n", st.Elements)
	fmt.Fprintf(w, "  Faces: %d\n", st.Faces)
	fmt.Fprintf(w, "  Dimension: %d\n", st.Dimension)

	types := make([]ElementType, 0, len(st.TypeCounts))
	for t := range st.TypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	fmt.Fprintf(w, "  Element types:\n")
	for _, t := range types {
		fmt.Fprintf(w, "    %s: %d\n", t, st.TypeCounts[t])
	}
	fmt.Fprintf(w, "  Boundary faces: %d\n", st.BoundaryFaces)

	names := make([]string, 0, len(st.Boundaries))
	for name := range st.Boundaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %s: %d\n", name, st.Boundaries[name])
	}
	fmt.Fprintf(w, "  Bounds: [%g %g %g] - [%g %g %g]\n",
		st.Bounds[0][0], st.Bounds[0][1], st.Bounds[0][2],
		st.Bounds[1][0], st.Bounds[1][1], st.Bounds[1][2])
}
