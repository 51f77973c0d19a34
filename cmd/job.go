/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notargets/femvtu/InputParameters"
	"github.com/notargets/femvtu/export"
	"github.com/notargets/femvtu/readfiles"
	"github.com/notargets/femvtu/vtk"
)

// applyEncoding fills the encoding settings a job file leaves empty from
// viper. A flag given on the command line overrides the job file.
func applyEncoding(ep *InputParameters.ExportParameters, v *viper.Viper, flags *pflag.FlagSet) {
	merge := func(dst *string, key string) {
		if *dst == "" || flags.Changed(key) {
			*dst = v.GetString(key)
		}
	}
	merge(&ep.Mode, "mode")
	merge(&ep.Compression, "compression")
	merge(&ep.HeaderType, "header-type")
	if flags.Changed("float64") {
		ep.Float64Points = v.GetBool("float64")
	} else if v.GetBool("float64") {
		ep.Float64Points = true
	}
	if ep.Parallel == 0 || flags.Changed("parallel") {
		ep.Parallel = v.GetInt("parallel")
	}
}

func exporterFor(ep *InputParameters.ExportParameters, logger *log.Logger) (*export.Exporter, vtk.DataMode, error) {
	dm, err := vtk.ParseDataMode(ep.Mode)
	if err != nil {
		return nil, 0, err
	}
	ex := export.NewExporter()
	if ex.Compression, err = vtk.ParseCompression(ep.Compression); err != nil {
		return nil, 0, err
	}
	if ex.HeaderType, err = vtk.ParseHeaderType(ep.HeaderType); err != nil {
		return nil, 0, err
	}
	if ep.Float64Points {
		ex.PointsType = vtk.Float64Points
	}
	if ep.PointDataName != "" {
		ex.PointDataName = ep.PointDataName
	}
	if ep.CellDataName != "" {
		ex.CellDataName = ep.CellDataName
	}
	ex.Logger = logger
	return ex, dm, nil
}

// buildGrid reads the mesh and the static field files of a job
func buildGrid(ep *InputParameters.ExportParameters, logger *log.Logger) (*vtk.UnstructuredGrid, error) {
	meshFile := ep.Path(ep.MeshFile)
	msh, err := readfiles.ReadMeshFile(meshFile)
	if err != nil {
		return nil, err
	}
	logger.Infof("Read %s: %d vertices, %d elements", meshFile, msh.NumVertices, msh.NumElements)

	toGrid := export.MeshToGrid
	if ep.Linear {
		toGrid = export.MeshToLinearGrid
	}
	grid, err := toGrid(msh)
	if err != nil {
		return nil, err
	}
	for _, fs := range ep.PointData {
		data, err := readfiles.ReadFieldFile(ep.Path(fs.File))
		if err != nil {
			return nil, err
		}
		if err = export.AddPointField(grid, fs.Name, data); err != nil {
			return nil, err
		}
		logger.Debug("point field", "name", fs.Name, "file", fs.File)
	}
	for _, fs := range ep.CellData {
		data, err := readfiles.ReadFieldFile(ep.Path(fs.File))
		if err != nil {
			return nil, err
		}
		if err = export.AddCellField(grid, fs.Name, data); err != nil {
			return nil, err
		}
		logger.Debug("cell field", "name", fs.Name, "file", fs.File)
	}
	return grid, nil
}

// readSteps loads the field files of every step
func readSteps(ep *InputParameters.ExportParameters, ex *export.Exporter) ([]export.Step, error) {
	steps := make([]export.Step, len(ep.Steps))
	for i, st := range ep.Steps {
		steps[i].Time = st.Time
		if st.PointFile != "" {
			data, err := readfiles.ReadFieldFile(ep.Path(st.PointFile))
			if err != nil {
				return nil, err
			}
			steps[i].PointData = []export.Field{{Name: ex.PointDataName, Data: data}}
		}
		if st.CellFile != "" {
			data, err := readfiles.ReadFieldFile(ep.Path(st.CellFile))
			if err != nil {
				return nil, err
			}
			steps[i].CellData = []export.Field{{Name: ex.CellDataName, Data: data}}
		}
	}
	return steps, nil
}

// parseFieldSpecs reads name=file pairs
func parseFieldSpecs(specs []string) ([]InputParameters.FieldSpec, error) {
	out := make([]InputParameters.FieldSpec, 0, len(specs))
	for _, s := range specs {
		name, file, ok := strings.Cut(s, "=")
		if !ok || name == "" || file == "" {
			return nil, fmt.Errorf("field %q: expected name=file", s)
		}
		out = append(out, InputParameters.FieldSpec{Name: name, File: file})
	}
	return out, nil
}

// seriesBase strips a .pvd or .vtu extension from the output name
func seriesBase(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".pvd", ".vtu":
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	return output
}
