package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femvtu/export"
	"github.com/notargets/femvtu/vtk"
)

const tetMesh = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
2
2 1 "wall"
3 2 "fluid"
$EndPhysicalNames
$Nodes
5
1 0 0 0
2 1 0 0
3 0 1 0
4 0 0 1
5 1 1 1
$EndNodes
$Elements
3
1 2 2 1 1 1 2 3
2 4 2 2 1 1 2 3 4
3 4 2 2 1 2 5 3 4
$EndElements
`

const nodeVectors = `# ux uy uz
0 0 0
1 0 0
0 1 0
0 0 1
1 1 1
`

// workspace writes the mesh and field files and isolates the user config
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	homedir.DisableCache = true
	t.Setenv("HOME", dir)
	files := map[string]string{
		"tets.msh": tetMesh,
		"u.dat":    nodeVectors,
		"p.dat":    "1.5\n-2.5\n",
		"u1.dat":   "1\n2\n3\n4\n5\n",
		"u2.dat":   "2\n4\n6\n8\n10\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestConvert(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "out", "tets.vtu")
	_, logs, err := run(t, "convert", filepath.Join(dir, "tets.msh"), "-o", out,
		"-p", "u="+filepath.Join(dir, "u.dat"), "-c", "p="+filepath.Join(dir, "p.dat"),
		"-m", "binary", "-z", "zlib")
	require.NoError(t, err)
	assert.Contains(t, logs, "Wrote "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `format="binary"`)
	assert.Contains(t, string(data), `compressor="vtkZLibDataCompressor"`)

	g, err := vtk.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 5, g.NumberOfPoints())
	assert.Equal(t, 2, g.NumberOfCells())
	assert.Equal(t, []float64{1, 1, 1}, g.PointArray("u").Tuple(4))
	assert.Equal(t, []float32{1.5, -2.5}, g.CellArray("p").Values)
	assert.Equal(t, []float32{2, 2}, g.CellArray(export.ElementTagName).Values)
}

func TestConvertConfig(t *testing.T) {
	dir := workspace(t)
	cfg := filepath.Join(dir, "femvtu.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("mode: ascii\nheader-type: UInt32\n"), 0644))
	out := filepath.Join(dir, "cfg.vtu")

	_, logs, err := run(t, "convert", filepath.Join(dir, "tets.msh"), "-o", out, "--config", cfg, "-v")
	require.NoError(t, err)
	assert.Contains(t, logs, "using config file")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `format="ascii"`)
	assert.Contains(t, string(data), `header_type="UInt32"`)

	// the user config in $HOME is found without --config
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".femvtu.yaml"), []byte("mode: binary\n"), 0644))
	_, _, err = run(t, "convert", filepath.Join(dir, "tets.msh"), "-o", out)
	require.NoError(t, err)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `format="binary"`)

	// environment beats the config file, flags beat both
	t.Setenv("FEMVTU_MODE", "appended")
	_, _, err = run(t, "convert", filepath.Join(dir, "tets.msh"), "-o", out)
	require.NoError(t, err)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `format="appended"`)

	_, _, err = run(t, "convert", filepath.Join(dir, "tets.msh"), "-o", out, "-m", "ascii")
	require.NoError(t, err)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `format="ascii"`)
}

func TestConvertErrors(t *testing.T) {
	dir := workspace(t)
	mesh := filepath.Join(dir, "tets.msh")

	_, _, err := run(t, "convert", mesh, "-m", "xml")
	assert.ErrorIs(t, err, vtk.ErrInvalidMode)

	_, _, err = run(t, "convert")
	assert.ErrorContains(t, err, "must supply a mesh file")

	_, _, err = run(t, "convert", mesh, "-p", "nofile")
	assert.ErrorContains(t, err, "expected name=file")

	_, _, err = run(t, "convert", mesh, "-o", filepath.Join(dir, "x.vtu"), "-c", "p="+filepath.Join(dir, "u.dat"))
	assert.ErrorContains(t, err, "cell field p: 5 rows, need 2")

	_, _, err = run(t, "convert", mesh, "--config", filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestSeries(t *testing.T) {
	dir := workspace(t)
	job := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(job, []byte(`
Title: tets
MeshFile: tets.msh
Output: results/run.pvd
Mode: binary
PointDataName: T
CellData:
  - Name: p
    File: p.dat
Steps:
  - Time: 1.0
    PointFile: u1.dat
  - Time: 2.0
    PointFile: u2.dat
`), 0644))

	stdout, _, err := run(t, "series", job, "-j", "2", "--print")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\"tets\"\t\t= Title")

	pvd := filepath.Join(dir, "results", "run.pvd")
	col, err := vtk.ReadCollection(pvd)
	require.NoError(t, err)
	require.Len(t, col.Entries, 2)
	assert.Equal(t, "run_0000.vtu", col.Entries[0].File)

	g, err := vtk.ReadFile(filepath.Join(dir, "results", "run_0001.vtu"))
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8, 10}, g.PointArray("T").Values)
	assert.Equal(t, []float32{1.5, -2.5}, g.CellArray("p").Values)

	stdout, _, err = run(t, "info", pvd)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Collection: 2 steps")

	noSteps := filepath.Join(dir, "single.toml")
	require.NoError(t, os.WriteFile(noSteps, []byte(`MeshFile = "tets.msh"`), 0644))
	_, _, err = run(t, "series", noSteps)
	assert.ErrorContains(t, err, "has no Steps")
}

func TestInfo(t *testing.T) {
	dir := workspace(t)
	mesh := filepath.Join(dir, "tets.msh")

	stdout, _, err := run(t, "info", mesh)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Elements: 2")
	assert.Contains(t, stdout, "wall: 1")

	out := filepath.Join(dir, "tets.vtu")
	_, _, err = run(t, "convert", mesh, "-o", out, "-p", "u="+filepath.Join(dir, "u.dat"))
	require.NoError(t, err)
	stdout, _, err = run(t, "info", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Points: 5")
	assert.Contains(t, stdout, "Tetra: 2")
	assert.Contains(t, stdout, "u [3] range 0 ")

	_, _, err = run(t, "info", filepath.Join(dir, "u.dat"))
	assert.ErrorContains(t, err, "unsupported mesh format")
}

func TestProfile(t *testing.T) {
	dir := workspace(t)
	profDir := filepath.Join(dir, "prof")
	_, _, err := run(t, "info", filepath.Join(dir, "tets.msh"), "--profile", profDir)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(profDir, "cpu.pprof"))
	assert.NoError(t, err)
}

func TestSeriesBase(t *testing.T) {
	assert.Equal(t, "out/run", seriesBase("out/run.pvd"))
	assert.Equal(t, "out/run", seriesBase("out/run.VTU"))
	assert.Equal(t, "out/run", seriesBase("out/run"))
}

func TestConvertFloat64Precedence(t *testing.T) {
	dir := workspace(t)
	job := filepath.Join(dir, "job.toml")
	require.NoError(t, os.WriteFile(job, []byte("MeshFile = \"tets.msh\"\nFloat64Points = true\n"), 0644))
	out := filepath.Join(dir, "p.vtu")

	testCases := []struct {
		name  string
		args  []string
		float string
	}{
		{"job file", nil, "Float64"},
		{"flag off", []string{"--float64=false"}, "Float32"},
		{"flag on", []string{"--float64"}, "Float64"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"convert", "--job", job, "-o", out, "-m", "ascii"}, tc.args...)
			_, _, err := run(t, args...)
			require.NoError(t, err)
			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Contains(t, string(data), `type="`+tc.float+`" Name="Points"`)
		})
	}
}
