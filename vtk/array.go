package vtk

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DataArray is a named array of float32 tuples, written as a Float32
// DataArray inside PointData, CellData or Points
type DataArray struct {
	Name               string
	NumberOfComponents int
	Values             []float32
}

func NewDataArray(name string, numComponents int) *DataArray {
	if numComponents < 1 {
		numComponents = 1
	}
	return &DataArray{
		Name:               name,
		NumberOfComponents: numComponents,
	}
}

// InsertNextTuple appends one tuple, the number of values must match the
// component count
func (da *DataArray) InsertNextTuple(vals ...float64) error {
	if len(vals) != da.NumberOfComponents {
		return fmt.Errorf("array %q: tuple has %d values, want %d",
			da.Name, len(vals), da.NumberOfComponents)
	}
	for _, v := range vals {
		da.Values = append(da.Values, float32(v))
	}
	return nil
}

// InsertNextValue appends a single value regardless of the component count
func (da *DataArray) InsertNextValue(v float64) {
	da.Values = append(da.Values, float32(v))
}

func (da *DataArray) NumberOfTuples() int {
	if da.NumberOfComponents == 0 {
		return 0
	}
	return len(da.Values) / da.NumberOfComponents
}

// Tuple returns a copy of tuple i as float64
func (da *DataArray) Tuple(i int) []float64 {
	nc := da.NumberOfComponents
	t := make([]float64, nc)
	for j := 0; j < nc; j++ {
		t[j] = float64(da.Values[i*nc+j])
	}
	return t
}

// Range returns min and max over all tuples. For single component arrays
// that is the value range, for vectors the range of the tuple magnitude.
func (da *DataArray) Range() (min, max float64) {
	nt := da.NumberOfTuples()
	if nt == 0 {
		return 0, 0
	}
	mags := make([]float64, nt)
	if da.NumberOfComponents == 1 {
		for i, v := range da.Values[:nt] {
			mags[i] = float64(v)
		}
	} else {
		for i := 0; i < nt; i++ {
			mags[i] = floats.Norm(da.Tuple(i), 2)
		}
	}
	return floats.Min(mags), floats.Max(mags)
}

func (da *DataArray) validate() error {
	if da.Name == "" {
		return fmt.Errorf("data array has no name")
	}
	if da.NumberOfComponents < 1 {
		return fmt.Errorf("array %q: invalid component count %d", da.Name, da.NumberOfComponents)
	}
	if len(da.Values)%da.NumberOfComponents != 0 {
		return fmt.Errorf("array %q: %d values is not a multiple of %d components",
			da.Name, len(da.Values), da.NumberOfComponents)
	}
	return nil
}
