package mesh

// Small reference meshes shared by the tests of this and dependent packages.
// File node IDs are 1-based, as most mesh formats number them.

// TwoTetMesh returns two tetrahedra sharing the face (1,2,3)
func TwoTetMesh() *Mesh {
	m := NewMesh()
	coords := [][]float64{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 1},
	}
	for i, c := range coords {
		m.AddNode(i+1, c)
	}
	m.ElementGroups[10] = &ElementGroup{Dimension: 3, Tag: 10, Name: "fluid"}
	_ = m.AddElement(1, Tet, []int{10}, []int{1, 2, 3, 4})
	_ = m.AddElement(2, Tet, []int{10}, []int{2, 5, 3, 4})
	m.BuildConnectivity()
	return m
}

// TwoHexMesh returns a 2x1x1 block of unit hexahedra, tagged 1 and 2
func TwoHexMesh() *Mesh {
	m := NewMesh()
	id := 1
	for k := 0; k < 2; k++ {
		for j := 0; j < 2; j++ {
			for i := 0; i < 3; i++ {
				m.AddNode(id, []float64{float64(i), float64(j), float64(k)})
				id++
			}
		}
	}
	// node id for lattice point (i,j,k)
	n := func(i, j, k int) int { return 1 + i + 3*j + 6*k }
	for e := 0; e < 2; e++ {
		_ = m.AddElement(e+1, Hex, []int{e + 1}, []int{
			n(e, 0, 0), n(e+1, 0, 0), n(e+1, 1, 0), n(e, 1, 0),
			n(e, 0, 1), n(e+1, 0, 1), n(e+1, 1, 1), n(e, 1, 1),
		})
	}
	m.BuildConnectivity()
	return m
}
