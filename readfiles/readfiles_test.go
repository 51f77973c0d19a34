package readfiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/femvtu/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadSU2(t *testing.T) {
	msh, err := ReadMeshFile(writeTemp(t, "periodic.su2", su2Input))
	require.NoError(t, err)
	require.NoError(t, msh.Validate())

	assert.Equal(t, 18, msh.NumVertices)
	assert.Equal(t, 22, msh.NumElements)
	assert.Equal(t, 2, msh.GetMeshDimension())
	assert.Equal(t, []int{15, 11, 17}, msh.EtoV[21])
	assert.Equal(t, mesh.Triangle, msh.ElementTypes[0])
	assert.Equal(t, []float64{-7.100939331382065, 2.889910324036197, 0}, msh.Vertices[17])

	labels := []string{"periodic-left", "periodic-right", "top", "bottom"}
	nptsBC := []int{2, 2, 4, 4}
	for n, label := range labels {
		assert.Equal(t, label, msh.BoundaryTags[n])
		assert.Len(t, msh.BoundaryElements[label], nptsBC[n])
	}
	assert.Equal(t, []int{2, 8}, msh.BoundaryElements["top"][0].Nodes)
	assert.Equal(t, mesh.Line, msh.BoundaryElements["top"][0].ElementType)
}

func TestReadSU2Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		msg   string
	}{
		{"no dimension", "NPOIN= 1\n0 0 0\n", "NPOIN= before NDIME="},
		{"bad dimension", "NDIME= 4\n", "unsupported dimension"},
		{"no points", "NDIME= 3\n", "missing required NPOIN="},
		{"unknown type", "NDIME= 2\nNELEM= 1\n77 0 1 2\n", "unknown element type: 77"},
		{"short element", "NDIME= 2\nNELEM= 1\n5 0 1\n", "expects 3 nodes"},
		{"bad node", "NDIME= 2\nNELEM= 1\n5 0 1 9\nNPOIN= 3\n0 0\n1 0\n0 1\n", "node 9 not found"},
		{"bad marker", "NDIME= 2\nNPOIN= 1\n0 0\nNMARK= 1\nMARKER_ELEMS= 1\n", "expected MARKER_TAG="},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSU2(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestReadGambit(t *testing.T) {
	msh, err := ReadMeshFile(writeTemp(t, "cube.neu", gambitCube))
	require.NoError(t, err)
	require.NoError(t, msh.Validate())

	assert.Equal(t, 8, msh.NumVertices)
	require.Equal(t, 1, msh.NumElements)
	assert.Equal(t, mesh.Hex, msh.ElementTypes[0])
	// Z pattern base reordered to counterclockwise
	assert.Equal(t, []int{0, 1, 3, 2, 4, 5, 7, 6}, msh.EtoV[0])
	assert.Equal(t, 6, msh.Statistics().BoundaryFaces)

	group := msh.ElementGroups[1]
	require.NotNil(t, group)
	assert.Equal(t, "fluid", group.Name)
	assert.Equal(t, 2, group.MaterialID)
	assert.Equal(t, []int{0}, group.Elements)
	assert.Equal(t, 1, msh.ElementTag(0))

	wall := msh.BoundaryElements["wall"]
	require.Len(t, wall, 1)
	assert.Equal(t, mesh.Quad, wall[0].ElementType)
	assert.Equal(t, []int{1, 0, 2, 3}, wall[0].Nodes)
	assert.Equal(t, 0, wall[0].ParentElement)
	assert.Equal(t, 4, wall[0].ParentFace)
}

func TestReadGambitErrors(t *testing.T) {
	_, err := ParseGambitNeutral(strings.NewReader("   NODAL COORDINATES 2.4.6\n"))
	assert.ErrorContains(t, err, "before control info")

	bad := strings.Replace(gambitCube, "       1       4       5", "       1       4       9", 1)
	_, err = ParseGambitNeutral(strings.NewReader(bad))
	assert.ErrorContains(t, err, "has no face 9")

	short := strings.Replace(gambitCube, "         8         1         1         1", "         8         2         1         1", 1)
	_, err = ParseGambitNeutral(strings.NewReader(short))
	assert.Error(t, err)
}

func TestReadGmsh22(t *testing.T) {
	msh, err := ReadMeshFile(writeTemp(t, "tets.msh", gmshTets))
	require.NoError(t, err)
	require.NoError(t, msh.Validate())

	assert.Equal(t, "2.2", msh.FormatVersion)
	assert.Equal(t, 5, msh.NumVertices)
	require.Equal(t, 2, msh.NumElements)
	assert.Equal(t, []int{2, 1}, msh.ElementTags[0])
	assert.Equal(t, []int{0, 1}, msh.ElementGroups[2].Elements)
	assert.Equal(t, 1, msh.EToE[0][2])

	// the boundary triangle precedes the volume elements in the file
	wall := msh.BoundaryElements["wall"]
	require.Len(t, wall, 1)
	assert.Equal(t, mesh.Triangle, wall[0].ElementType)
	assert.Equal(t, []int{0, 1, 2}, wall[0].Nodes)
	assert.Equal(t, "wall", msh.BoundaryTags[1])
}

func TestReadGmshRejects(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		msg   string
	}{
		{"v4", "$MeshFormat\n4.1 0 8\n$EndMeshFormat\n", "unsupported Gmsh format version 4.1"},
		{"binary", "$MeshFormat\n2.2 1 8\n$EndMeshFormat\n", "binary Gmsh files are not supported"},
		{"no format", "$Nodes\n0\n$EndNodes\n", "could not find $MeshFormat"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadMeshFile(writeTemp(t, "bad.msh", tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	_, err := ReadMeshFile("mesh.stl")
	assert.ErrorContains(t, err, "unsupported mesh format: .stl")
}

func TestPermute(t *testing.T) {
	nodes := []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
	assert.Equal(t, []int{10, 11, 12, 13, 14, 15, 16, 17, 19, 18}, permute(nodes, gmshToVTK[mesh.Tet10]))
	assert.Equal(t, nodes, permute(nodes, nil))
}

func TestParseField(t *testing.T) {
	m, err := ParseField(strings.NewReader("# ux uy uz\n1 2 3\n\n4 5 6 % second node\n"))
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 5.0, m.At(1, 1))

	_, err = ParseField(strings.NewReader("1 2 3\n4 5\n"))
	assert.ErrorContains(t, err, "line 2: 2 columns, expected 3")
	_, err = ParseField(strings.NewReader("# nothing\n"))
	assert.ErrorContains(t, err, "no data rows")
	_, err = ParseField(strings.NewReader("1 x\n"))
	assert.Error(t, err)

	m, err = ReadFieldFile(writeTemp(t, "cell.dat", "0.5\n1.5\n"))
	require.NoError(t, err)
	r, c = m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)
}

const gambitCube = `        CONTROL INFO 2.4.6
** GAMBIT NEUTRAL FILE
cube
PROGRAM:                Gambit     VERSION:  2.4.6
Oct 2026
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         8         1         1         1         3         3
ENDOFSECTION
   NODAL COORDINATES 2.4.6
         1   0.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         2   1.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         3   0.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         4   1.00000000000e+00   1.00000000000e+00   0.00000000000e+00
         5   0.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         6   1.00000000000e+00   0.00000000000e+00   1.00000000000e+00
         7   0.00000000000e+00   1.00000000000e+00   1.00000000000e+00
         8   1.00000000000e+00   1.00000000000e+00   1.00000000000e+00
ENDOFSECTION
      ELEMENTS/CELLS 2.4.6
       1  4  8        1       2       3       4       5       6       7
                      8
ENDOFSECTION
       ELEMENT GROUP 2.4.6
GROUP:          1 ELEMENTS:          1 MATERIAL:          2 NFLAGS:          1
                           fluid
       0
       1
ENDOFSECTION
 BOUNDARY CONDITIONS 2.4.6
                            wall       1       1       0       6
       1       4       5
ENDOFSECTION
`

const gmshTets = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
2
2 1 "wall"
3 2 "fluid"
$EndPhysicalNames
$Nodes
5
1 0 0 0
2 1 0 0
3 0 1 0
4 0 0 1
5 1 1 1
$EndNodes
$Elements
4
1 2 2 1 1 1 2 3
2 15 2 0 1 1
3 4 2 2 1 1 2 3 4
4 4 2 2 1 2 5 3 4
$EndElements
$NodeData
1
"ignored"
$EndNodeData
`

const su2Input = ` %This is an example input file in SU2 format, output from gmsh
% Comments can appear outside of data areas
NDIME= 2
% Comments can appear outside of data areas
NELEM= 22
5 5 6 13 0
5 9 10 12 1
5 12 5 13 2
5 9 12 13 3
5 13 6 14 4
5 12 10 15 5
5 8 9 13 6
5 4 5 12 7
5 1 7 14 8
5 6 1 14 9
5 3 11 15 10
5 10 3 15 11
5 8 13 16 12
5 4 12 17 13
5 13 14 16 14
5 12 15 17 15
5 7 2 16 16
5 11 0 17 17
5 2 8 16 18
5 0 4 17 19
5 14 7 16 20
5 15 11 17 21
% Comments can appear outside of data areas
NPOIN= 18
-10 0 0
10 0 1
10 10 2
-10 10 3
-5.000000000004944 0 4
-1.231725832440134e-11 0 5
4.99999999999384 0 6
10 4.999999999992398 7
5.000000000004944 10 8
1.231725832440134e-11 10 9
-4.99999999999384 10 10
-10 5 11
-2.500000000008632 4.330127018915808 12
2.50000000000863 5.669872981084192 13
6.712741669205853 3.668411415814691 14
-6.712741669205681 6.331588584184096 15
7.100939331384343 7.110089675963254 16
-7.100939331382065 2.889910324036197 17
NMARK= 4
% Comments can appear outside of data areas
MARKER_TAG= periodic-left
% Comments can appear outside of data areas
MARKER_ELEMS= 2
3 3 11
3 11 0
% Comments can appear outside of data areas
MARKER_TAG= periodic-right
MARKER_ELEMS= 2
3 1 7
3 7 2
% Comments can appear outside of data areas
MARKER_TAG= top
MARKER_ELEMS= 4
3 2 8
3 8 9
3 9 10
3 10 3
MARKER_TAG= bottom
% Comments can appear outside of data areas
MARKER_ELEMS= 4
3 0 4
3 4 5
3 5 6
3 6 1
% Comments can appear outside of data areas
`
