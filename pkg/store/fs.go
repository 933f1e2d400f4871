// Package store persists extracted slices and run ledgers.
package store

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// FS writes slices as .npy files under one output directory.
type FS struct {
	root string // absolute path to the session output directory
}

// NewFS creates the output directory if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute output directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("store: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("store: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("store: path escapes output root: %s", rel)
	}
	return abs, nil
}

// Path returns where an output called name.ext is written.
func (f *FS) Path(name, ext string) (string, error) {
	return f.safePath(name + "." + ext)
}

// Save writes rows as a two-dimensional float64 array to name.npy.
func (f *FS) Save(name string, rows [][]float64) (string, error) {
	path, err := f.Path(name, "npy")
	if err != nil {
		return "", err
	}
	m, err := toDense(rows)
	if err != nil {
		return "", fmt.Errorf("store: %s: %w", name, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store: create %s: %w", path, err)
	}
	if err := npyio.Write(file, m); err != nil {
		file.Close()
		return "", fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("store: close %s: %w", path, err)
	}
	return path, nil
}

// toDense packs rows into a matrix. Short rows are padded with NaN.
func toDense(rows [][]float64) (*mat.Dense, error) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if len(rows) == 0 || width == 0 {
		return nil, fmt.Errorf("empty slice")
	}

	data := make([]float64, 0, len(rows)*width)
	for _, r := range rows {
		data = append(data, r...)
		for i := len(r); i < width; i++ {
			data = append(data, math.NaN())
		}
	}
	return mat.NewDense(len(rows), width, data), nil
}

// ReadMatrix loads a float64 .npy file into rows.
func ReadMatrix(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var m mat.Dense
	if err := npyio.Read(file, &m); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(make([]float64, c), i, &m)
	}
	return rows, nil
}

// ReadVector loads a one-dimensional float64 .npy file.
func ReadVector(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var v []float64
	if err := npyio.Read(file, &v); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}
