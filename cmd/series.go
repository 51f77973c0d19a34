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
	"github.com/notargets/femvtu/export"
)

const exampleJob = `
########################################
Title: "Cantilever"
MeshFile: beam.msh
Mode: appended # ascii, binary or appended
Compression: zlib
PointDataName: displacement
Steps:
  - Time: 0.1
    PointFile: u_0001.dat
  - Time: 0.2
    PointFile: u_0002.dat
########################################
`

func newSeriesCmd(v *viper.Viper) *cobra.Command {
	var printJob bool
	seriesCmd := &cobra.Command{
		Use:   "series <job file>",
		Short: "Write the time steps of a job file as numbered .vtu files and a .pvd collection",
		Long: `Write the time steps of a job file as numbered .vtu files and a .pvd
collection. Every step shares the mesh of the job, its PointFile and CellFile
become the arrays named by PointDataName and CellDataName.`,
		Example: "  femvtu series job.yaml -j 4" + "\n\nExample job file:" + exampleJob,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := InputParameters.ReadFile(args[0])
			if err != nil {
				return err
			}
			applyEncoding(ep, v, cmd.Flags())
			ep.SetDefaults()
			if printJob {
				ep.Fprint(cmd.OutOrStdout())
			}
			if err = ep.Validate(); err != nil {
				return err
			}
			if len(ep.Steps) == 0 {
				return fmt.Errorf("%s has no Steps, use convert for a single file", args[0])
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
			steps, err := readSteps(ep, ex)
			if err != nil {
				return err
			}
			s := &export.Series{Exporter: ex, Mode: dm, Parallel: ep.Parallel}
			pvd, err := s.Write(cmd.Context(), grid, steps, seriesBase(ep.Path(ep.Output)))
			if err != nil {
				return err
			}
			logger.Infof("Wrote %s with %d steps", pvd, len(steps))
			return nil
		},
	}
	seriesCmd.Flags().BoolVar(&printJob, "print", false, "print the job parameters")
	return seriesCmd
}
