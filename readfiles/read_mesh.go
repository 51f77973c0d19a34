package readfiles

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/notargets/femvtu/mesh"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*mesh.Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".neu":
		return ReadGambitNeutral(filename)
	case ".msh":
		return ReadGmshAuto(filename)
	case ".su2":
		return ReadSU2(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// ReadGmshAuto detects the Gmsh format version and reads the file
func ReadGmshAuto(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(file)
	var version string

	// Look for $MeshFormat section to determine version
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "$MeshFormat" {
			if scanner.Scan() {
				if parts := strings.Fields(scanner.Text()); len(parts) > 0 {
					version = parts[0]
				}
			}
			break
		}
	}
	file.Close()

	switch {
	case strings.HasPrefix(version, "2."):
		return ReadGmsh22(filename)
	case version == "":
		return nil, fmt.Errorf("%s: could not find $MeshFormat section", filename)
	default:
		return nil, fmt.Errorf("%s: unsupported Gmsh format version %s, save as version 2.2 ASCII",
			filename, version)
	}
}

// permute reorders nodes so that out[i] = nodes[p[i]]
func permute(nodes, p []int) []int {
	if p == nil {
		return nodes
	}
	out := make([]int, len(p))
	for i, j := range p {
		out[i] = nodes[j]
	}
	return out
}
