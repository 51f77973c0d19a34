package export

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femvtu/mesh"
	"github.com/notargets/femvtu/vtk"
)

// ElementTagName is the cell array holding each element's physical tag
const ElementTagName = "ElementTag"

// MeshToGrid converts the volume (or highest dimension) elements of a mesh
// into a grid, with an ElementTag cell array. Boundary elements are not
// exported.
func MeshToGrid(m *mesh.Mesh) (*vtk.UnstructuredGrid, error) {
	return meshToGrid(m, false)
}

// MeshToLinearGrid is MeshToGrid with quadratic elements reduced to their
// corner nodes
func MeshToLinearGrid(m *mesh.Mesh) (*vtk.UnstructuredGrid, error) {
	return meshToGrid(m, true)
}

func meshToGrid(m *mesh.Mesh, linear bool) (*vtk.UnstructuredGrid, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mesh: %w", err)
	}
	grid := vtk.NewUnstructuredGrid()
	for _, xyz := range m.Vertices {
		grid.InsertNextPoint(xyz[0], xyz[1], xyz[2])
	}

	tags := vtk.NewDataArray(ElementTagName, 1)
	for i, verts := range m.EtoV {
		etype := m.ElementTypes[i]
		if linear && etype.LinearType() != etype {
			corners := etype.GetCornerNodes()
			reduced := make([]int, len(corners))
			for j, c := range corners {
				reduced[j] = verts[c]
			}
			etype, verts = etype.LinearType(), reduced
		}
		ct, ok := etype.VTKCellType()
		if !ok {
			return nil, fmt.Errorf("element %d: %w: %v", i, ErrUndefinedMeshType, etype)
		}
		cell, err := vtk.NewCell(ct, verts)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		grid.InsertNextCell(cell)
		tags.InsertNextValue(float64(m.ElementTag(i)))
	}
	grid.AddCellArray(tags)
	return grid, nil
}

// AddPointField attaches one row of data per grid point, the column count
// sets the component count
func AddPointField(grid *vtk.UnstructuredGrid, name string, data *mat.Dense) error {
	da, err := fieldArray(name, data, grid.NumberOfPoints())
	if err != nil {
		return fmt.Errorf("point field %s: %w", name, err)
	}
	grid.AddPointArray(da)
	return nil
}

// AddCellField attaches one row of data per grid cell
func AddCellField(grid *vtk.UnstructuredGrid, name string, data *mat.Dense) error {
	da, err := fieldArray(name, data, grid.NumberOfCells())
	if err != nil {
		return fmt.Errorf("cell field %s: %w", name, err)
	}
	grid.AddCellArray(da)
	return nil
}

func fieldArray(name string, data *mat.Dense, want int) (*vtk.DataArray, error) {
	r, c := data.Dims()
	if r != want {
		return nil, fmt.Errorf("%d rows, need %d", r, want)
	}
	da := vtk.NewDataArray(name, c)
	for i := 0; i < r; i++ {
		if err := da.InsertNextTuple(mat.Row(nil, i, data)...); err != nil {
			return nil, err
		}
	}
	return da, nil
}
