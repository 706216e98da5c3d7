// Package table reads the delimited text tables exchanged between the
// curation and query steps: tab-separated source tables (optionally gzipped)
// and the comma-separated curated matrices.
package table

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Common delimiters.
const (
	Tab   = '\t'
	Comma = ','
)

// Reader reads a header line followed by data rows from a delimited file.
type Reader struct {
	reader     *bufio.Reader
	csv        *csv.Reader
	file       *os.File
	gzipReader *gzip.Reader
	delim      rune
	lineNumber int
	header     []string
}

// Open opens a delimited file and parses its header.
// Supports both plain and gzipped files.
func Open(path string, delim rune) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Op: "open table", Err: err}
	}

	r := &Reader{file: file, delim: delim}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		file.Close()
		return nil, &OpenError{Path: path, Op: "read table header", Err: err}
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, &OpenError{Path: path, Op: "seek table", Err: err}
	}

	var src io.Reader = file
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, &OpenError{Path: path, Op: "create gzip reader", Err: err}
		}
		src = r.gzipReader
	}
	r.init(src)

	if err := r.parseHeader(); err != nil {
		r.Close()
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &OpenError{Path: path, Op: "read table header", Err: err}
	}
	return r, nil
}

// NewReader creates a reader from an io.Reader and parses its header.
func NewReader(src io.Reader, delim rune) (*Reader, error) {
	r := &Reader{delim: delim}
	r.init(src)
	if err := r.parseHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) init(src io.Reader) {
	r.reader = bufio.NewReaderSize(src, 1<<20)
	if r.delim == Comma {
		r.csv = csv.NewReader(r.reader)
		r.csv.FieldsPerRecord = -1
	}
}

// parseHeader reads the first non-empty line as the header.
func (r *Reader) parseHeader() error {
	fields, err := r.readFields()
	if err != nil {
		return err
	}
	if fields == nil {
		return &ParseError{Line: r.lineNumber, Message: "no header line found"}
	}
	r.header = fields
	return nil
}

// Next reads the next data row.
// Returns nil, nil when there are no more rows.
func (r *Reader) Next() ([]string, error) {
	return r.readFields()
}

func (r *Reader) readFields() ([]string, error) {
	if r.csv != nil {
		fields, err := r.csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &ParseError{Line: perr.Line, Message: perr.Err.Error()}
			}
			return nil, fmt.Errorf("read table row: %w", err)
		}
		r.lineNumber, _ = r.csv.FieldPos(0)
		return fields, nil
	}

	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read table row: %w", err)
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			// Skip empty lines
			continue
		}
		return strings.Split(line, string(r.delim)), nil
	}
}

// Header returns the parsed header fields.
func (r *Reader) Header() []string {
	return r.header
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParseError represents an error during table parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("table parse error at line %d: %s", e.Line, e.Message)
}

// OpenError reports a file that could not be opened or read before its
// header was parsed.
type OpenError struct {
	Path string
	Op   string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
