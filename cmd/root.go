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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the command tree. Encoding flags are bound to viper keys
// so they can also come from the config file or FEMVTU_* variables.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		v       = viper.New()
		prof    interface{ Stop() }
	)

	rootCmd := &cobra.Command{
		Use:   "femvtu",
		Short: "Export finite element meshes and results as VTK XML unstructured grids",
		Long: `femvtu reads Gambit (.neu), SU2 (.su2) and Gmsh 2.2 (.msh) meshes with
optional nodal and elemental field files, and writes VTK XML unstructured
grid (.vtu) files and ParaView (.pvd) time series.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v, cfgFile); err != nil {
				return err
			}
			level := log.InfoLevel
			if v.GetBool("verbose") {
				level = log.DebugLevel
			}
			logger := newLogger(cmd.ErrOrStderr(), level)
			if used := v.ConfigFileUsed(); used != "" {
				logger.Debug("using config file", "file", used)
			}
			if dir := v.GetString("profile"); dir != "" {
				prof = profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet)
				logger.Debug("cpu profiling", "dir", dir)
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if prof != nil {
				prof.Stop()
				prof = nil
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.femvtu.yaml)")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	pf.String("profile", "", "write a CPU profile into this directory")
	pf.StringP("mode", "m", "appended", "data mode: ascii, binary or appended")
	pf.StringP("compression", "z", "none", "compression of binary data: none or zlib")
	pf.String("header-type", "UInt64", "integer type of binary block headers: UInt32 or UInt64")
	pf.Bool("float64", false, "write point coordinates as Float64")
	pf.IntP("parallel", "j", 0, "concurrent writers for series, zero means one per CPU")
	for _, name := range []string{"verbose", "profile", "mode", "compression", "header-type", "float64", "parallel"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.AddCommand(newConvertCmd(v))
	rootCmd.AddCommand(newSeriesCmd(v))
	rootCmd.AddCommand(newInfoCmd())
	return rootCmd
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		v.AddConfigPath(home)
		v.SetConfigName(".femvtu")
	}
	v.SetEnvPrefix("FEMVTU")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger writes timestamped records to w at the given level
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext falls back to log.Default when no logger is attached
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
