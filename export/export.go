// Package export converts finite element results into VTK XML unstructured
// grid files.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femvtu/vtk"
)

// ErrUndefinedMeshType is returned for an element type with no cell builder
var ErrUndefinedMeshType = errors.New("undefined mesh type")

// Default array names for the exported fields
const (
	DefaultPointDataName = "pointData"
	DefaultCellDataName  = "cellData"
)

// Element is one cell of the exported mesh, Node holds zero based indices
// into the node coordinate rows
type Element struct {
	MeshType vtk.CellType
	Node     []int
}

// cellBuilders holds the cell types ExportAsVTU accepts
var cellBuilders = map[vtk.CellType]func([]int) (vtk.Cell, error){
	vtk.Hexahedron: vtk.NewHexahedron,
	vtk.Tetra:      vtk.NewTetra,
	vtk.Wedge:      vtk.NewWedge,
	vtk.Pyramid:    vtk.NewPyramid,
	vtk.Triangle:   vtk.NewTriangle,
	vtk.Quad:       vtk.NewQuad,
	vtk.Line:       vtk.NewLine,
	vtk.Vertex:     vtk.NewVertex,
}

// Exporter carries the output options of ExportAsVTU
type Exporter struct {
	PointDataName string
	CellDataName  string
	Compression   vtk.Compression
	HeaderType    vtk.HeaderType
	PointsType    vtk.PointsType
	Logger        *log.Logger // nil discards
}

// NewExporter returns an exporter with the default array names and encoding
func NewExporter() *Exporter {
	return &Exporter{
		PointDataName: DefaultPointDataName,
		CellDataName:  DefaultCellDataName,
	}
}

// ExportAsVTU writes the mesh and its fields to filename using the default
// options. mode is one of ascii, binary or appended.
func ExportAsVTU(node *mat.Dense, element []Element, numOfNode, numOfElm int,
	pointData *mat.Dense, cellData *mat.VecDense, filename, mode string) error {
	return NewExporter().ExportAsVTU(node, element, numOfNode, numOfElm, pointData, cellData, filename, mode)
}

func (ex *Exporter) logger() *log.Logger {
	if ex.Logger == nil {
		return log.New(io.Discard)
	}
	return ex.Logger
}

// ExportAsVTU builds the grid, then writes it. Nothing is written when the
// mode or the inputs are invalid.
func (ex *Exporter) ExportAsVTU(node *mat.Dense, element []Element, numOfNode, numOfElm int,
	pointData *mat.Dense, cellData *mat.VecDense, filename, mode string) error {
	dm, err := vtk.ParseDataMode(mode)
	if err != nil {
		return err
	}
	grid, err := ex.BuildGrid(node, element, numOfNode, numOfElm, pointData, cellData)
	if err != nil {
		return err
	}
	return ex.WriteGrid(grid, filename, dm)
}

// WriteGrid writes a grid with the exporter's encoding options
func (ex *Exporter) WriteGrid(grid *vtk.UnstructuredGrid, filename string, dm vtk.DataMode) error {
	w := &vtk.Writer{
		Mode:        dm,
		Compression: ex.Compression,
		HeaderType:  ex.HeaderType,
		PointsType:  ex.PointsType,
	}
	if err := w.WriteFile(filename, grid); err != nil {
		return err
	}
	ex.logger().Debug("wrote grid", "file", filename, "mode", dm,
		"points", grid.NumberOfPoints(), "cells", grid.NumberOfCells())
	return nil
}

// BuildGrid assembles an unstructured grid from the first numOfNode node rows
// and the first numOfElm elements. pointData must have three columns and
// cellData one value per element, either may be nil to omit the field.
func (ex *Exporter) BuildGrid(node *mat.Dense, element []Element, numOfNode, numOfElm int,
	pointData *mat.Dense, cellData *mat.VecDense) (*vtk.UnstructuredGrid, error) {
	if node == nil {
		return nil, fmt.Errorf("nil node array")
	}
	if numOfNode < 0 || numOfElm < 0 {
		return nil, fmt.Errorf("negative counts: %d nodes, %d elements", numOfNode, numOfElm)
	}
	if r, c := node.Dims(); r < numOfNode || c < 3 {
		return nil, fmt.Errorf("node array is %dx%d, need at least %dx3", r, c, numOfNode)
	}
	if len(element) < numOfElm {
		return nil, fmt.Errorf("%d elements given, need %d", len(element), numOfElm)
	}

	grid := vtk.NewUnstructuredGrid()
	for i := 0; i < numOfNode; i++ {
		grid.InsertNextPoint(node.At(i, 0), node.At(i, 1), node.At(i, 2))
	}

	for ic := 0; ic < numOfElm; ic++ {
		el := element[ic]
		build, ok := cellBuilders[el.MeshType]
		if !ok {
			return nil, fmt.Errorf("element %d: %w: %v", ic, ErrUndefinedMeshType, el.MeshType)
		}
		for _, id := range el.Node {
			if id < 0 || id >= numOfNode {
				return nil, fmt.Errorf("element %d: node %d out of range [0,%d)", ic, id, numOfNode)
			}
		}
		cell, err := build(el.Node)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", ic, err)
		}
		grid.InsertNextCell(cell)
	}

	if pointData != nil {
		da, err := pointArray(ex.PointDataName, pointData, numOfNode)
		if err != nil {
			return nil, err
		}
		grid.AddPointArray(da)
	}
	if cellData != nil {
		da, err := cellArray(ex.CellDataName, cellData, numOfElm)
		if err != nil {
			return nil, err
		}
		grid.AddCellArray(da)
	}

	ex.logger().Debug("built grid", "points", numOfNode, "cells", numOfElm)
	return grid, nil
}

func arrayName(name, def string) string {
	if name == "" {
		return def
	}
	return name
}

func pointArray(name string, data *mat.Dense, numOfNode int) (*vtk.DataArray, error) {
	if r, c := data.Dims(); r < numOfNode || c != 3 {
		return nil, fmt.Errorf("point data is %dx%d, need %dx3", r, c, numOfNode)
	}
	da := vtk.NewDataArray(arrayName(name, DefaultPointDataName), 3)
	for i := 0; i < numOfNode; i++ {
		if err := da.InsertNextTuple(data.At(i, 0), data.At(i, 1), data.At(i, 2)); err != nil {
			return nil, err
		}
	}
	return da, nil
}

func cellArray(name string, data *mat.VecDense, numOfElm int) (*vtk.DataArray, error) {
	if n := data.Len(); n < numOfElm {
		return nil, fmt.Errorf("cell data has %d values, need %d", n, numOfElm)
	}
	da := vtk.NewDataArray(arrayName(name, DefaultCellDataName), 1)
	for i := 0; i < numOfElm; i++ {
		da.InsertNextValue(data.AtVec(i))
	}
	return da, nil
}
