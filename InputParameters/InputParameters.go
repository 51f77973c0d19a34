package InputParameters

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ghodss/yaml"
	"go.uber.org/multierr"

	"github.com/notargets/femvtu/vtk"
)

// DefaultMode matches the VTK XML writer default
const DefaultMode = "appended"

// FieldSpec names a field file, one row per point or per cell
type FieldSpec struct {
	Name string `json:"Name" toml:"Name"`
	File string `json:"File" toml:"File"`
}

// StepSpec is one time level of a series
type StepSpec struct {
	Time      float64 `json:"Time" toml:"Time"`
	PointFile string  `json:"PointFile" toml:"PointFile"`
	CellFile  string  `json:"CellFile" toml:"CellFile"`
}

// Parameters obtained from the YAML or TOML job file
type ExportParameters struct {
	Title         string      `json:"Title" toml:"Title"`
	MeshFile      string      `json:"MeshFile" toml:"MeshFile"`
	Output        string      `json:"Output" toml:"Output"`
	Mode          string      `json:"Mode" toml:"Mode"` // ascii, binary or appended
	Compression   string      `json:"Compression" toml:"Compression"`
	HeaderType    string      `json:"HeaderType" toml:"HeaderType"`
	Float64Points bool        `json:"Float64Points" toml:"Float64Points"`
	Linear        bool        `json:"Linear" toml:"Linear"` // reduce quadratic elements to corners
	Parallel      int         `json:"Parallel" toml:"Parallel"`
	PointData     []FieldSpec `json:"PointData" toml:"PointData"`
	CellData      []FieldSpec `json:"CellData" toml:"CellData"`
	PointDataName string      `json:"PointDataName" toml:"PointDataName"` // array name of the step point files
	CellDataName  string      `json:"CellDataName" toml:"CellDataName"`
	Steps         []StepSpec  `json:"Steps" toml:"Steps"`

	dir string // relative paths resolve against the job file directory
}

func (ep *ExportParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ep)
}

func (ep *ExportParameters) ParseTOML(data []byte) error {
	return toml.Unmarshal(data, ep)
}

// ReadFile parses a job file, the format is chosen by extension. Defaults
// are left to SetDefaults so callers can merge other settings first.
func ReadFile(filename string) (*ExportParameters, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	ep := &ExportParameters{dir: filepath.Dir(filename)}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = ep.Parse(data)
	case ".toml":
		err = ep.ParseTOML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported job file format %q", filename, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return ep, nil
}

// SetDefaults fills the mode and the output file name
func (ep *ExportParameters) SetDefaults() {
	if ep.Mode == "" {
		ep.Mode = DefaultMode
	}
	if ep.Output == "" && ep.MeshFile != "" {
		base := filepath.Base(ep.MeshFile)
		ep.Output = strings.TrimSuffix(base, filepath.Ext(base))
		if len(ep.Steps) == 0 {
			ep.Output += ".vtu"
		}
	}
}

// Path resolves a file named in the job file
func (ep *ExportParameters) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || ep.dir == "" {
		return p
	}
	return filepath.Join(ep.dir, p)
}

// Validate reports every problem in the job file at once
func (ep *ExportParameters) Validate() (err error) {
	if ep.MeshFile == "" {
		err = multierr.Append(err, fmt.Errorf("MeshFile is required"))
	}
	if _, perr := vtk.ParseDataMode(ep.Mode); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, perr := vtk.ParseCompression(ep.Compression); perr != nil {
		err = multierr.Append(err, perr)
	}
	if ep.HeaderType != "" {
		if _, perr := vtk.ParseHeaderType(ep.HeaderType); perr != nil {
			err = multierr.Append(err, perr)
		}
	}
	if ep.Parallel < 0 {
		err = multierr.Append(err, fmt.Errorf("Parallel must not be negative, got %d", ep.Parallel))
	}
	for kind, specs := range map[string][]FieldSpec{"PointData": ep.PointData, "CellData": ep.CellData} {
		seen := make(map[string]bool)
		for i, fs := range specs {
			if fs.Name == "" || fs.File == "" {
				err = multierr.Append(err, fmt.Errorf("%s[%d]: Name and File are required", kind, i))
			}
			if seen[fs.Name] {
				err = multierr.Append(err, fmt.Errorf("%s[%d]: duplicate name %q", kind, i, fs.Name))
			}
			seen[fs.Name] = true
		}
	}
	for i, st := range ep.Steps {
		if st.PointFile == "" && st.CellFile == "" {
			err = multierr.Append(err, fmt.Errorf("Steps[%d]: PointFile or CellFile is required", i))
		}
	}
	return
}

func (ep *ExportParameters) Print() {
	ep.Fprint(os.Stdout)
}

func (ep *ExportParameters) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ep.Title)
	fmt.Fprintf(w, "[%s]\t\t= MeshFile\n", ep.MeshFile)
	fmt.Fprintf(w, "[%s]\t\t= Output\n", ep.Output)
	fmt.Fprintf(w, "[%s]\t\t\t= Mode\n", ep.Mode)
	if ep.Compression != "" {
		fmt.Fprintf(w, "[%s]\t\t\t= Compression\n", ep.Compression)
	}
	for _, fs := range ep.PointData {
		fmt.Fprintf(w, "PointData[%s] = %s\n", fs.Name, fs.File)
	}
	for _, fs := range ep.CellData {
		fmt.Fprintf(w, "CellData[%s] = %s\n", fs.Name, fs.File)
	}
	if len(ep.Steps) > 0 {
		fmt.Fprintf(w, "[%d]\t\t\t\t= Steps\n", len(ep.Steps))
	}
}
