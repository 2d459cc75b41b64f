// Package artifact reads and writes the numeric array files that cross
// stage boundaries: the aligned-parameter .npy intermediate and the
// style/pose source matrices.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// SaveMatrix writes rows as a 2-D .npy array (rows = frames, cols =
// parameter dims). This is the stable file contract between the
// expression-generation stage and the renderer.
func SaveMatrix(path string, rows [][]float32) error {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return fmt.Errorf("save matrix %s: empty matrix", path)
	}
	r, c := len(rows), len(rows[0])
	data := make([]float64, 0, r*c)
	for i, row := range rows {
		if len(row) != c {
			return fmt.Errorf("save matrix %s: row %d has %d columns, want %d", path, i, len(row), c)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save matrix: %w", err)
	}
	defer f.Close()

	if err := npyio.Write(f, mat.NewDense(r, c, data)); err != nil {
		return fmt.Errorf("save matrix %s: %w", path, err)
	}
	return nil
}

// LoadMatrix reads a 2-D numeric array from a .npy file, or from the
// alternate structured JSON tensor format ({"data": ..., "dims": [...]}),
// converting both to the same row-major (N, D) contract.
func LoadMatrix(path string) ([][]float32, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadTensorJSON(path)
	default:
		return loadNpy(path)
	}
}

func loadNpy(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("load matrix %s: %w", path, err)
	}

	r, c := m.Dims()
	rows := make([][]float32, r)
	for i := 0; i < r; i++ {
		row := make([]float32, c)
		for j := 0; j < c; j++ {
			row[j] = float32(m.At(i, j))
		}
		rows[i] = row
	}
	return rows, nil
}

// tensorJSON mirrors the exported tensor blob layout: nested data plus an
// explicit dims list. A leading batch dimension of 1 is squeezed.
type tensorJSON struct {
	Data json.RawMessage `json:"data"`
	Dims []int64         `json:"dims"`
}

func loadTensorJSON(path string) ([][]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}

	var t tensorJSON
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("load matrix %s: %w", path, err)
	}

	var rows [][]float32
	if err := json.Unmarshal(t.Data, &rows); err == nil {
		return rows, nil
	}

	var batched [][][]float32
	if err := json.Unmarshal(t.Data, &batched); err != nil {
		return nil, fmt.Errorf("load matrix %s: unsupported tensor layout: %w", path, err)
	}
	if len(batched) != 1 {
		return nil, fmt.Errorf("load matrix %s: batch dimension %d, want 1", path, len(batched))
	}
	return batched[0], nil
}
