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
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notargets/femvtu/readfiles"
	"github.com/notargets/femvtu/vtk"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print statistics of a mesh, .vtu or .pvd file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".vtu":
				g, err := vtk.ReadFile(args[0])
				if err != nil {
					return err
				}
				printGrid(w, g)
			case ".pvd":
				col, err := vtk.ReadCollection(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Collection: %d steps\n", len(col.Entries))
				for _, e := range col.Entries {
					fmt.Fprintf(w, "  t=%-12g %s\n", e.Timestep, e.File)
				}
			default:
				msh, err := readfiles.ReadMeshFile(args[0])
				if err != nil {
					return err
				}
				msh.PrintStatistics(w)
			}
			return nil
		},
	}
}

func printGrid(w io.Writer, g *vtk.UnstructuredGrid) {
	fmt.Fprintf(w, "UnstructuredGrid:\n")
	fmt.Fprintf(w, "  Points: %d\n", g.NumberOfPoints())
	fmt.Fprintf(w, "  Cells: %d\n", g.NumberOfCells())

	counts := make(map[vtk.CellType]int)
	for _, c := range g.Cells {
		counts[c.Type]++
	}
	types := make([]vtk.CellType, 0, len(counts))
	for ct := range counts {
		types = append(types, ct)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, ct := range types {
		fmt.Fprintf(w, "    %s: %d\n", ct, counts[ct])
	}

	printArrays := func(kind string, arrays []*vtk.DataArray) {
		if len(arrays) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s:\n", kind)
		for _, da := range arrays {
			lo, hi := da.Range()
			fmt.Fprintf(w, "    %s [%d] range %g %g\n", da.Name, da.NumberOfComponents, lo, hi)
		}
	}
	printArrays("PointData", g.PointData)
	printArrays("CellData", g.CellData)
}
