package export

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femvtu/vtk"
)

// Field is a named table of values, one row per point or cell
type Field struct {
	Name string
	Data *mat.Dense
}

// Step is one time level of a series
type Step struct {
	Time      float64
	PointData []Field
	CellData  []Field
}

// Series writes time steps that share one geometry
type Series struct {
	Exporter *Exporter
	Mode     vtk.DataMode
	Parallel int // concurrent file writers, zero means one per CPU
}

// StepFile names the .vtu of step i
func StepFile(base string, i int) string {
	return fmt.Sprintf("%s_%04d.vtu", base, i)
}

// Write writes every step as <base>_NNNN.vtu and indexes them in <base>.pvd,
// returning the collection path. The first failing step cancels the rest.
func (s *Series) Write(ctx context.Context, grid *vtk.UnstructuredGrid, steps []Step, base string) (string, error) {
	ex := s.Exporter
	if ex == nil {
		ex = NewExporter()
	}
	parallel := s.Parallel
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}

	// Build every step before writing so input errors leave no files behind
	grids := make([]*vtk.UnstructuredGrid, len(steps))
	for i, st := range steps {
		g, err := stepGrid(grid, st)
		if err != nil {
			return "", fmt.Errorf("step %d (t=%g): %w", i, st.Time, err)
		}
		grids[i] = g
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	var col vtk.Collection
	for i := range steps {
		file := StepFile(base, i)
		col.Add(steps[i].Time, file)
		g := grids[i]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ex.WriteGrid(g, file, s.Mode)
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	pvd := base + ".pvd"
	if err := col.WriteFile(pvd); err != nil {
		return "", err
	}
	ex.logger().Info("wrote series", "file", pvd, "steps", len(steps))
	return pvd, nil
}

// stepGrid shares the geometry of grid and adds the step fields after the
// grid's own arrays, returning an error when the result is not writable
func stepGrid(grid *vtk.UnstructuredGrid, st Step) (*vtk.UnstructuredGrid, error) {
	g := &vtk.UnstructuredGrid{
		Points:    grid.Points,
		Cells:     grid.Cells,
		PointData: append([]*vtk.DataArray{}, grid.PointData...),
		CellData:  append([]*vtk.DataArray{}, grid.CellData...),
	}
	for _, f := range st.PointData {
		if err := AddPointField(g, f.Name, f.Data); err != nil {
			return nil, err
		}
	}
	for _, f := range st.CellData {
		if err := AddCellField(g, f.Name, f.Data); err != nil {
			return nil, err
		}
	}
	// step names may collide with the arrays of the base grid
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
