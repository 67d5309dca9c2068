package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	metadataFile = "metadata.json"
	bundleFile   = "bundle.json"
	PortraitSVG  = "portrait.svg"
)

// Store keeps saved portraits, one directory per bundle ID holding the
// JSON bundle, the CSV files and an SVG portrait.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Metadata is the small summary List reads without loading whole bundles.
type Metadata struct {
	ID           string    `json:"id"`
	Created      time.Time `json:"created"`
	System       string    `json:"system"`
	Method       string    `json:"method"`
	Trajectories int       `json:"trajectories"`
	FixedPoints  int       `json:"fixed_points"`
}

func (s *Store) Save(b *Bundle) (string, error) {
	if b.ID == "" {
		return "", fmt.Errorf("export: bundle has no id")
	}
	dir := s.Dir(b.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	meta := Metadata{
		ID:           b.ID,
		Created:      b.Created,
		System:       b.System(),
		Method:       b.Method,
		Trajectories: len(b.Trajectories),
		FixedPoints:  len(b.FixedPoints),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0644); err != nil {
		return "", err
	}

	if err := SaveJSON(filepath.Join(dir, bundleFile), b); err != nil {
		return "", err
	}
	if err := WriteCSV(dir, b); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, PortraitSVG), []byte(Portrait(b, SVGOptions{})), 0644); err != nil {
		return "", err
	}
	return b.ID, nil
}

// List returns saved bundles oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), metadataFile))
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Created.Equal(runs[j].Created) {
			return runs[i].Created.Before(runs[j].Created)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *Store) Load(id string) (*Bundle, error) {
	return LoadJSON(filepath.Join(s.Dir(id), bundleFile))
}
