package haversine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Dataset describes the files written by WriteDataset
type Dataset struct {
	JSONPath   string
	AnswerPath string
	PairCount  int
	Mean       float64
}

// DatasetPaths returns the input and answer file names for n pairs in dir.
func DatasetPaths(dir string, n int) (string, string) {
	return filepath.Join(dir, fmt.Sprintf("haversine_%d_input.json", n)),
		filepath.Join(dir, fmt.Sprintf("haversine_%d_data.f64", n))
}

// WriteDataset generates n pairs and writes them with their answers to dir.
func WriteDataset(dir string, method Method, seed uint64, n int) (Dataset, error) {
	pairs := NewGenerator(method, seed).Generate(n)
	distances, mean := Distances(pairs)

	ds := Dataset{PairCount: n, Mean: mean}
	ds.JSONPath, ds.AnswerPath = DatasetPaths(dir, n)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ds, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := writeFile(ds.JSONPath, func(w *bufio.Writer) error { return WritePairs(w, pairs) }); err != nil {
		return ds, err
	}
	if err := writeFile(ds.AnswerPath, func(w *bufio.Writer) error { return WriteAnswers(w, distances, mean) }); err != nil {
		return ds, err
	}

	return ds, nil
}

func writeFile(path string, write func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
