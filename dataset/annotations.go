package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Annotation pairs a spectrogram image file with its attribute vector.
type Annotation struct {
	File   string
	Labels [NumAttributes]float32
}

// ReadAnnotations parses the annotations CSV. The first column holds the
// image filename (relative to the image directory); the remaining columns
// are matched against AttributeNames by header name, so column order in
// the file does not matter beyond the filename being first.
func ReadAnnotations(path string) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotations: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("annotations %s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("annotations %s: read header: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range AttributeNames {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("annotations %s: missing column %q", path, name)
		}
	}

	var anns []Annotation
	for row := 2; ; row++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("annotations %s: row %d: %w", path, row, err)
		}

		ann := Annotation{File: strings.TrimSpace(record[0])}
		if ann.File == "" {
			return nil, fmt.Errorf("annotations %s: row %d: empty image filename", path, row)
		}
		for k, name := range AttributeNames {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[cols[name]]), 32)
			if err != nil {
				return nil, fmt.Errorf("annotations %s: row %d, column %q: %w", path, row, name, err)
			}
			ann.Labels[k] = float32(v)
		}
		anns = append(anns, ann)
	}
	return anns, nil
}
