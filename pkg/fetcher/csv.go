package fetcher

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

// CSVOptions controls how a delimited file is decoded
type CSVOptions struct {
	Delimiter rune
	Encoding  encoding.Encoding // nil means UTF-8
}

// UTF8CSV is comma-separated UTF-8, as exported by Drive
var UTF8CSV = CSVOptions{Delimiter: ','}

// Latin1CSV is semicolon-separated ISO-8859-1, as published on the FTP server
var Latin1CSV = CSVOptions{Delimiter: ';', Encoding: charmap.ISO8859_1}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a delimited file with a header row into a Dataset.
//
// Quotes are parsed leniently and rows may be shorter or longer than the header.
// Missing and empty cells are null, blank lines are skipped, unnamed columns are
// called "Unnamed: <i>" and repeated names get ".1", ".2" suffixes.
func ParseCSV(r io.Reader, opts CSVOptions) (model.Dataset, error) {
	if opts.Encoding != nil {
		r = opts.Encoding.NewDecoder().Reader(r)
	}

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.Dataset{}, errors.New("file is empty")
	}
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read header: %w", err)
	}

	ds := model.NewDataset(uniqueColumns(header)...)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Dataset{}, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}

		row := make(model.Row, len(ds.Columns))
		for i, col := range ds.Columns {
			if i < len(record) && record[i] != "" {
				row[col] = record[i]
			} else {
				row[col] = nil
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// uniqueColumns names blank header cells and suffixes repeated names
func uniqueColumns(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))

	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		taken[name] = true
		columns[i] = name
	}

	used := make(map[string]bool, len(header))
	for i, name := range columns {
		if !used[name] {
			used[name] = true
			continue
		}
		for {
			seen[name]++
			candidate := name + "." + strconv.Itoa(seen[name])
			if !taken[candidate] && !used[candidate] {
				columns[i] = candidate
				used[candidate] = true
				break
			}
		}
	}

	return columns
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
