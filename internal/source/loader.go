package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"recycle.ecomap.kr/internal/models"
)

// Encodings tried by LoadTabular, in order.
const (
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
	EncodingEUCKR = "euc-kr"

	// EncodingXLSX marks tables read from a spreadsheet workbook.
	EncodingXLSX = "xlsx"
)

var (
	// ErrUnreadableEncoding is matched by errors.Is for any *UnreadableEncodingError.
	ErrUnreadableEncoding = errors.New("unreadable encoding")
	// ErrMalformedTable is matched by errors.Is for any *MalformedTableError.
	ErrMalformedTable = errors.New("malformed table")
)

// EncodingAttempt records one failed decode attempt.
type EncodingAttempt struct {
	Encoding string
	Err      error
}

// UnreadableEncodingError is returned when no encoding could decode the source.
// Attempts holds every encoding tried, in order.
type UnreadableEncodingError struct {
	Source   string
	Attempts []EncodingAttempt
}

func (e *UnreadableEncodingError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Encoding)
	}
	msg := fmt.Sprintf("cannot read %q: tried %s", e.Source, strings.Join(names, ", "))
	if last := e.Unwrap(); last != nil {
		msg += ": " + last.Error()
	}
	return msg
}

// Unwrap returns the error of the final attempt.
func (e *UnreadableEncodingError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

func (e *UnreadableEncodingError) Is(target error) bool {
	return target == ErrUnreadableEncoding
}

// MalformedTableError is returned when the source decoded but is not a usable
// table, e.g. a row has more cells than the header.
type MalformedTableError struct {
	Source   string
	Encoding string
	Err      error
}

func (e *MalformedTableError) Error() string {
	return fmt.Sprintf("cannot parse %q decoded as %s: %v", e.Source, e.Encoding, e.Err)
}

func (e *MalformedTableError) Unwrap() error { return e.Err }

func (e *MalformedTableError) Is(target error) bool {
	return target == ErrMalformedTable
}

// LoadResult is a decoded table plus the attempts that failed before it.
type LoadResult struct {
	Table    *models.RawTable
	Attempts []EncodingAttempt
}

type decoder struct {
	name   string
	decode func([]byte) ([]byte, error)
}

var csvDecoders = []decoder{
	{name: EncodingUTF8, decode: decodeUTF8},
	{name: EncodingCP949, decode: func(b []byte) ([]byte, error) { return decodeKorean(b, false) }},
	{name: EncodingEUCKR, decode: func(b []byte) ([]byte, error) { return decodeKorean(b, true) }},
}

// LoadTabular decodes a delimited text table of unknown encoding, or an xlsx workbook.
//
// Text sources are decoded as UTF-8, CP949 and EUC-KR in that order and the first
// decoding that succeeds is parsed. If none of them decodes, an
// *UnreadableEncodingError carrying every attempt is returned. Once a decoding
// succeeds no further encoding is tried; a parse failure is a *MalformedTableError.
//
// Workbooks are recognised by their .xlsx extension or zip signature and read
// from the first sheet.
func LoadTabular(name string, data []byte) (*LoadResult, error) {
	if isWorkbook(name, data) {
		table, err := parseXLSX(data)
		if err != nil {
			return nil, &UnreadableEncodingError{
				Source:   name,
				Attempts: []EncodingAttempt{{Encoding: EncodingXLSX, Err: err}},
			}
		}
		return &LoadResult{Table: table}, nil
	}

	var attempts []EncodingAttempt
	for _, d := range csvDecoders {
		text, err := d.decode(data)
		if err != nil {
			attempts = append(attempts, EncodingAttempt{Encoding: d.name, Err: err})
			continue
		}
		table, err := parseCSV(text)
		if err != nil {
			return nil, &MalformedTableError{Source: name, Encoding: d.name, Err: err}
		}
		table.Encoding = d.name
		return &LoadResult{Table: table, Attempts: attempts}, nil
	}

	return nil, &UnreadableEncodingError{Source: name, Attempts: attempts}
}

func decodeUTF8(data []byte) ([]byte, error) {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("invalid utf-8 byte 0x%02x at offset %d", data[i], i)
		}
		i += size
	}
	// drops a leading byte order mark
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("utf-8 decode: %w", err)
	}
	return out, nil
}

// decodeKorean decodes CP949 (Unified Hangul Code), or EUC-KR when strict is set.
// The x/text decoder substitutes U+FFFD for bad input instead of failing, so the
// byte structure is checked first and any substitution left in the output is an error.
func decodeKorean(data []byte, strict bool) ([]byte, error) {
	if off := invalidKoreanOffset(data, strict); off >= 0 {
		return nil, fmt.Errorf("invalid multi-byte sequence at offset %d", off)
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return nil, err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return nil, errors.New("unmappable multi-byte sequence")
	}
	return out, nil
}

// invalidKoreanOffset returns the offset of the first malformed byte pair, or -1.
func invalidKoreanOffset(data []byte, strict bool) int {
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b < 0x80 {
			continue
		}
		if i+1 >= len(data) {
			return i
		}
		t := data[i+1]
		if strict {
			if b < 0xA1 || b == 0xFF || t < 0xA1 || t == 0xFF {
				return i
			}
		} else {
			if b < 0x81 || b == 0xFF {
				return i
			}
			if !(t >= 0x41 && t <= 0x5A) && !(t >= 0x61 && t <= 0x7A) && !(t >= 0x81 && t <= 0xFE) {
				return i
			}
		}
		i++
	}
	return -1
}

// parseCSV reads a header row and data rows. Short rows are padded with empty
// cells; a row with more cells than the header is malformed. Quotes inside
// unquoted cells are kept as text.
func parseCSV(text []byte) (*models.RawTable, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return &models.RawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("malformed header: %w", err)
	}

	table := &models.RawTable{Header: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}
		if len(row) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(row))
		}
		table.Rows = append(table.Rows, padRow(row, len(header)))
	}
	return table, nil
}

func isWorkbook(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func parseXLSX(data []byte) (*models.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	table := &models.RawTable{Encoding: EncodingXLSX}
	if len(rows) == 0 {
		return table, nil
	}
	table.Header = rows[0]
	for _, row := range rows[1:] {
		if len(row) > len(table.Header) {
			row = row[:len(table.Header)]
		}
		table.Rows = append(table.Rows, padRow(row, len(table.Header)))
	}
	return table, nil
}

func padRow(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
