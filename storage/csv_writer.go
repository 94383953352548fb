package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"rent_scrooper/models"
)

// CSVWriter appends records to a CSV file with the fld_* header.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVWriter opens path for appending. The header is written only when the file is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv: %w", err)
	}

	cw := &CSVWriter{path: path, file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := cw.w.Write(models.RecordColumns); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		cw.w.Flush()
	}
	return cw, nil
}

func (c *CSVWriter) Name() string {
	return "csv"
}

func (c *CSVWriter) Path() string {
	return c.path
}

func (c *CSVWriter) Write(_ context.Context, b Batch) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range b.Records {
		if err := c.w.Write(r.Row()); err != nil {
			return i, fmt.Errorf("write row: %w", err)
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(b.Records), nil
}

func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}
