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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/femvtu/InputParameters"
)

func newConvertCmd(v *viper.Viper) *cobra.Command {
	var (
		output, job   string
		points, cells []string
		linear        bool
	)
	convertCmd := &cobra.Command{
		Use:   "convert [mesh file]",
		Short: "Convert a mesh and its field files into one .vtu file",
		Long: `Convert a mesh and its field files into one .vtu file. Field files hold one
row of whitespace separated values per node (--point) or per element (--cell).
A job file (--job) may give the same settings, a mesh file argument overrides
the job file's MeshFile.`,
		Example: `  femvtu convert beam.msh --point displacement=u.dat --cell stress=s.dat -m binary -z zlib`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ep  = &InputParameters.ExportParameters{}
				err error
			)
			if job != "" {
				if ep, err = InputParameters.ReadFile(job); err != nil {
					return err
				}
			}
			if len(args) == 1 {
				ep.MeshFile = args[0]
			}
			if ep.MeshFile == "" {
				return fmt.Errorf("must supply a mesh file or a job file (--job)")
			}
			if output != "" {
				ep.Output = output
			}
			ep.Linear = ep.Linear || linear
			pd, err := parseFieldSpecs(points)
			if err != nil {
				return err
			}
			cd, err := parseFieldSpecs(cells)
			if err != nil {
				return err
			}
			ep.PointData = append(ep.PointData, pd...)
			ep.CellData = append(ep.CellData, cd...)
			ep.Steps = nil

			applyEncoding(ep, v, cmd.Flags())
			ep.SetDefaults()
			if err = ep.Validate(); err != nil {
				return err
			}

			logger := loggerFromContext(cmd.Context())
			ex, dm, err := exporterFor(ep, logger)
			if err != nil {
				return err
			}
			grid, err := buildGrid(ep, logger)
			if err != nil {
				return err
			}
			out := ep.Path(ep.Output)
			if err = ex.WriteGrid(grid, out, dm); err != nil {
				return err
			}
			logger.Infof("Wrote %s (%d points, %d cells, %s)", out, grid.NumberOfPoints(), grid.NumberOfCells(), dm)
			return nil
		},
	}
	convertCmd.Flags().StringVarP(&output, "output", "o", "", "output .vtu file (default is the mesh name with .vtu)")
	convertCmd.Flags().StringVar(&job, "job", "", "YAML or TOML job file")
	convertCmd.Flags().StringArrayVarP(&points, "point", "p", nil, "nodal field as name=file, repeatable")
	convertCmd.Flags().StringArrayVarP(&cells, "cell", "c", nil, "elemental field as name=file, repeatable")
	convertCmd.Flags().BoolVar(&linear, "linear", false, "reduce quadratic elements to their corner nodes")
	return convertCmd
}
