// Package backup reads space backups from disk.
//
// A backup root holds one directory per resource type, each containing JSON
// files with either one resource object or an array of them, plus an
// asset-files directory with the binary of every asset named <id>.<ext>.
package backup

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ALT-F4-LLC/spacerestore/internal/model"
)

// AssetFilesDir is the directory holding asset binaries.
const AssetFilesDir = "asset-files"

// Dir is a backup rooted at a directory.
type Dir struct {
	Root string
}

// Open returns the backup at root, which must be an existing directory.
func Open(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening backup: %s is not a directory", root)
	}
	return &Dir{Root: root}, nil
}

// Has reports whether the backup contains a directory for t.
func (d *Dir) Has(t model.ResourceType) bool {
	info, err := os.Stat(filepath.Join(d.Root, string(t)))
	return err == nil && info.IsDir()
}

// Types returns the resource types present in the backup, in restore order.
func (d *Dir) Types() []model.ResourceType {
	var types []model.ResourceType
	for _, t := range model.Order {
		if d.Has(t) {
			types = append(types, t)
		}
	}
	return types
}

// Load reads every *.json file of t's directory in file name order.
func (d *Dir) Load(t model.ResourceType) ([]model.Resource, error) {
	dir := filepath.Join(d.Root, string(t))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	resources := make([]model.Resource, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		parsed, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		resources = append(resources, parsed...)
	}
	return resources, nil
}

func parse(data []byte) ([]model.Resource, error) {
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}

	switch v := decoded.(type) {
	case map[string]any:
		return []model.Resource{model.NewResource(v)}, nil
	case []any:
		out := make([]model.Resource, 0, len(v))
		for i, item := range v {
			fields, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d is not an object", i)
			}
			out = append(out, model.NewResource(fields))
		}
		return out, nil
	default:
		return nil, errors.New("expected a JSON object or array of objects")
	}
}

// AssetFile returns the path of r's binary under backupRoot:
// <root>/asset-files/<id>.<ext>, the extension taken from r's filename.
func AssetFile(backupRoot string, r model.Resource) (string, error) {
	filename, _ := r.String("filename")
	if r.ID() == 0 {
		return "", errors.New("asset has no id")
	}
	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	name := strconv.FormatInt(r.ID(), 10) + "." + ext
	return filepath.Join(backupRoot, AssetFilesDir, name), nil
}
