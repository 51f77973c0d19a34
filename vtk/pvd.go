package vtk

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CollectionEntry is one DataSet line of a ParaView .pvd file
type CollectionEntry struct {
	Timestep float64 `xml:"timestep,attr"`
	Group    string  `xml:"group,attr"`
	Part     int     `xml:"part,attr"`
	File     string  `xml:"file,attr"`
}

// Collection indexes a time series of .vtu files
type Collection struct {
	Entries []CollectionEntry
}

type pvdFile struct {
	XMLName    xml.Name `xml:"VTKFile"`
	Type       string   `xml:"type,attr"`
	Version    string   `xml:"version,attr"`
	ByteOrder  string   `xml:"byte_order,attr"`
	Collection struct {
		DataSets []CollectionEntry `xml:"DataSet"`
	} `xml:"Collection"`
}

// Add records file at the given time, the path is stored as given
func (c *Collection) Add(timestep float64, file string) {
	c.Entries = append(c.Entries, CollectionEntry{Timestep: timestep, File: file})
}

// WriteFile writes the collection sorted by time. Entry paths are rewritten
// relative to the directory of filename so the series can be moved as a unit.
func (c *Collection) WriteFile(filename string) error {
	dir := filepath.Dir(filename)
	var out pvdFile
	out.Type, out.Version, out.ByteOrder = "Collection", "0.1", "LittleEndian"
	entries := make([]CollectionEntry, len(c.Entries))
	copy(entries, c.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestep < entries[j].Timestep
	})
	for i := range entries {
		if filepath.IsAbs(entries[i].File) || filepath.Dir(entries[i].File) != "." {
			rel, err := filepath.Rel(dir, entries[i].File)
			if err == nil {
				entries[i].File = filepath.ToSlash(rel)
			}
		}
	}
	out.Collection.DataSets = entries

	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	if err = os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing collection %s: %w", filename, err)
	}
	return nil
}

// ReadCollection reads a .pvd file, entry paths are returned as stored
func ReadCollection(filename string) (*Collection, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var in pvdFile
	if err = xml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	if in.Type != "Collection" {
		return nil, fmt.Errorf("%s: VTKFile type %q is not a Collection", filename, in.Type)
	}
	return &Collection{Entries: in.Collection.DataSets}, nil
}
