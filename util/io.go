package util

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// ReadCSVFromFile iterates the records of a delimited file as values of T.
//
// Struct fields are bound through their `csv` tag to the columns named in the
// header line. If columns are given the file is expected to have no header
// line and the tags are bound to those names in order instead.
//
// Rows that fail to parse are yielded together with an error, the caller
// decides whether to skip them or to stop.
func ReadCSVFromFile[T any](filename string, delimiter rune, columns ...string) func(yield func(T, error) bool) {
	return func(yield func(T, error) bool) {
		var zero T
		file, err := os.Open(filename)
		if err != nil {
			yield(zero, err)
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.Comma = delimiter
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		header := columns
		line := 0
		if len(header) == 0 {
			header, err = reader.Read()
			if err != nil {
				yield(zero, fmt.Errorf("%s: failed to read header: %w", filename, err))
				return
			}
			line += 1
		}
		name_row_mapping := NewDict[string, int](len(header))
		for i, name := range header {
			name_row_mapping[strings.TrimSpace(name)] = i
		}

		fields := _BindCSVFields(reflect.TypeOf(zero), name_row_mapping)
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			line += 1
			if err != nil {
				if !yield(zero, fmt.Errorf("%s line %d: %w", filename, line, err)) {
					return
				}
				continue
			}
			value, err := _DecodeCSVRecord[T](record, fields)
			if err != nil {
				err = fmt.Errorf("%s line %d: %w", filename, line, err)
			}
			if !yield(value, err) {
				return
			}
		}
	}
}

// field index, column index, kind
type csvField = Triple[int, int, reflect.Kind]

func _BindCSVFields(typ reflect.Type, name_row_mapping Dict[string, int]) List[csvField] {
	num_field := typ.NumField()
	fields := NewList[csvField](num_field)
	for i := 0; i < num_field; i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("csv")
		if tag == "" {
			continue
		}
		if !name_row_mapping.ContainsKey(tag) {
			continue
		}
		row := name_row_mapping[tag]
		switch field.Type.Kind() {
		case reflect.Bool:
			fields.Add(MakeTriple(i, row, reflect.Bool))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fields.Add(MakeTriple(i, row, reflect.Int))
		case reflect.Float32, reflect.Float64:
			fields.Add(MakeTriple(i, row, reflect.Float64))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fields.Add(MakeTriple(i, row, reflect.Uint))
		case reflect.String:
			fields.Add(MakeTriple(i, row, reflect.String))
		}
	}
	return fields
}

var errMissingColumn = errors.New("missing column")

func _DecodeCSVRecord[T any](record []string, fields List[csvField]) (T, error) {
	var zero T
	t := reflect.New(reflect.TypeOf(zero)).Elem()
	for _, field := range fields {
		index := field.A
		row := field.B
		typ := field.C
		if row >= len(record) {
			return zero, fmt.Errorf("%w %d", errMissingColumn, row+1)
		}
		value := strings.TrimSpace(record[row])
		if value == "" {
			continue
		}
		f := t.Field(index)
		switch typ {
		case reflect.Bool:
			num, err := strconv.ParseBool(value)
			if err != nil {
				return zero, err
			}
			f.SetBool(num)
		case reflect.Int:
			num, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return zero, err
			}
			f.SetInt(num)
		case reflect.Uint:
			num, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return zero, err
			}
			f.SetUint(num)
		case reflect.Float64:
			num, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return zero, err
			}
			f.SetFloat(num)
		case reflect.String:
			f.SetString(value)
		}
	}
	return t.Interface().(T), nil
}
