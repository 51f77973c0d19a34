package vtk

import (
	"fmt"

	"go.uber.org/multierr"
)

// UnstructuredGrid holds the points, cells and attached attribute arrays of
// one piece of a .vtu file
type UnstructuredGrid struct {
	Points    [][3]float64
	Cells     []Cell
	PointData []*DataArray
	CellData  []*DataArray
}

func NewUnstructuredGrid() *UnstructuredGrid {
	return &UnstructuredGrid{}
}

// InsertNextPoint appends a point and returns its id
func (g *UnstructuredGrid) InsertNextPoint(x, y, z float64) int {
	g.Points = append(g.Points, [3]float64{x, y, z})
	return len(g.Points) - 1
}

// InsertNextCell appends a cell and returns its id
func (g *UnstructuredGrid) InsertNextCell(c Cell) int {
	g.Cells = append(g.Cells, c)
	return len(g.Cells) - 1
}

func (g *UnstructuredGrid) AddPointArray(da *DataArray) { g.PointData = append(g.PointData, da) }
func (g *UnstructuredGrid) AddCellArray(da *DataArray)  { g.CellData = append(g.CellData, da) }

func (g *UnstructuredGrid) NumberOfPoints() int { return len(g.Points) }
func (g *UnstructuredGrid) NumberOfCells() int  { return len(g.Cells) }

// PointArray returns the named point array or nil
func (g *UnstructuredGrid) PointArray(name string) *DataArray {
	return findArray(g.PointData, name)
}

// CellArray returns the named cell array or nil
func (g *UnstructuredGrid) CellArray(name string) *DataArray {
	return findArray(g.CellData, name)
}

func findArray(arrays []*DataArray, name string) *DataArray {
	for _, da := range arrays {
		if da.Name == name {
			return da
		}
	}
	return nil
}

// Validate checks that every cell references existing points and that every
// attribute array has one tuple per point or cell. All problems found are
// returned together.
func (g *UnstructuredGrid) Validate() (err error) {
	np := int64(len(g.Points))
	for ic, c := range g.Cells {
		if !c.Type.Valid() {
			err = multierr.Append(err, fmt.Errorf("cell %d: unknown cell type %d", ic, uint8(c.Type)))
			continue
		}
		if len(c.PointIDs) != c.Type.NumPoints() {
			err = multierr.Append(err, fmt.Errorf("cell %d: %s has %d point ids, want %d",
				ic, c.Type, len(c.PointIDs), c.Type.NumPoints()))
		}
		for _, id := range c.PointIDs {
			if id < 0 || id >= np {
				err = multierr.Append(err, fmt.Errorf("cell %d: point id %d out of range [0,%d)",
					ic, id, np))
			}
		}
	}
	err = multierr.Append(err, validateArrays("point", g.PointData, len(g.Points)))
	err = multierr.Append(err, validateArrays("cell", g.CellData, len(g.Cells)))
	return
}

func validateArrays(kind string, arrays []*DataArray, want int) (err error) {
	seen := make(map[string]bool, len(arrays))
	for _, da := range arrays {
		if e := da.validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("%s data: %w", kind, e))
			continue
		}
		if seen[da.Name] {
			err = multierr.Append(err, fmt.Errorf("%s data: duplicate array name %q", kind, da.Name))
		}
		seen[da.Name] = true
		if nt := da.NumberOfTuples(); nt != want {
			err = multierr.Append(err, fmt.Errorf("%s data %q: %d tuples, want %d",
				kind, da.Name, nt, want))
		}
	}
	return
}
