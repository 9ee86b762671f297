
package ioformats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"olx-go-crawler/internal/models"
)

// ReadURLs reads URLs from a CSV (expects header with "url") or NDJSON file.
// If ext cannot be determined, tries CSV first then NDJSON.
func ReadURLs(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return readCSV(path)
	case ".ndjson", ".jsonl":
		return readNDJSON(path)
	default:
		// try csv then ndjson
		if urls, err := readCSV(path); err == nil && len(urls) > 0 {
			return urls, nil
		}
		return readNDJSON(path)
	}
}

func readCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}
	// find "url" column
	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "url") {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, errors.New("csv must contain a 'url' header column")
	}
	var out []string
	for _, row := range rows[1:] {
		if col < len(row) {
			u := strings.TrimSpace(row[col])
			if u != "" {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func readNDJSON(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// allow raw string or {"url": "..."}
		if strings.HasPrefix(line, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(line), &obj); err == nil {
				if v, ok := obj["url"]; ok {
					if s, ok := v.(string); ok && s != "" {
						out = append(out, s)
						continue
					}
				}
			}
		}
		// fallback: treat whole line as url
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no urls found in ndjson")
	}
	return out, nil
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, rows []models.AdRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNDJSON writes one JSON object per record.
func WriteNDJSON(w io.Writer, rows []models.AdRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// FileSink writes each table to "{name}{ext}" inside Dir.
type FileSink struct {
	Dir    string
	ext    string
	encode func(io.Writer, []models.AdRecord) error
}

func NewCSVSink(dir string) (*FileSink, error) {
	return newFileSink(dir, ".csv", WriteCSV)
}

func NewNDJSONSink(dir string) (*FileSink, error) {
	return newFileSink(dir, ".ndjson", WriteNDJSON)
}

func newFileSink(dir, ext string, encode func(io.Writer, []models.AdRecord) error) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{Dir: dir, ext: ext, encode: encode}, nil
}

// Path returns the file a table called name is written to.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.Dir, name+s.ext)
}

// WriteTable replaces the file for name with rows. The file is written under
// a temporary name first so a failed write leaves no partial table behind.
func (s *FileSink) WriteTable(name string, rows []models.AdRecord) error {
	tmp, err := os.CreateTemp(s.Dir, name+"-*"+s.ext+".tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path(name), err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := s.encode(bw, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.Path(name), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.Path(name), err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("rename %s: %w", s.Path(name), err)
	}
	return nil
}
