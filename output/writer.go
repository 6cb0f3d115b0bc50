package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ttpr0/go-netjoin/structs"
	"golang.org/x/exp/slog"
)

type WriterOptions struct {
	// write a header line A,B,<targets>
	Header bool
}

// Writer writes records as comma separated lines. Text values are always
// quoted so the importing side reads them as text, numbers are written in a
// locale independent form and null values as empty fields.
type Writer struct {
	w       *bufio.Writer
	fields  []structs.Field
	opts    WriterOptions
	started bool
	count   int
	blanked int
}

func NewWriter(w io.Writer, fields []structs.Field, opts WriterOptions) *Writer {
	return &Writer{
		w:      bufio.NewWriter(w),
		fields: fields,
		opts:   opts,
	}
}

func (self *Writer) Write(record Record) error {
	if !self.started {
		self.started = true
		if self.opts.Header {
			if err := self.writeHeader(); err != nil {
				return err
			}
		}
	}
	if len(record.Values) != len(self.fields) {
		return fmt.Errorf("record %d-%d has %d values, want %d", record.Origin, record.Destination, len(record.Values), len(self.fields))
	}
	buf := make([]byte, 0, 64)
	buf = strconv.AppendInt(buf, record.Origin, 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, record.Destination, 10)
	for i, value := range record.Values {
		buf = append(buf, ',')
		var ok bool
		buf, ok = _AppendValue(buf, value, self.fields[i].Type)
		if !ok {
			self.blanked += 1
			slog.Debug("text value in numeric column written as null", "origin", record.Origin, "destination", record.Destination, "column", self.fields[i].Target, "value", value.Text)
		}
	}
	buf = append(buf, '\n')
	if _, err := self.w.Write(buf); err != nil {
		return err
	}
	self.count += 1
	return nil
}

func (self *Writer) writeHeader() error {
	names := make([]string, 0, len(self.fields)+2)
	names = append(names, "A", "B")
	for _, field := range self.fields {
		names = append(names, field.Target)
	}
	_, err := self.w.WriteString(strings.Join(names, ",") + "\n")
	return err
}

func (self *Writer) Flush() error {
	if self.blanked > 0 {
		slog.Warn(fmt.Sprintf("%d text values in numeric columns could not be parsed, written as null", self.blanked))
		self.blanked = 0
	}
	if !self.started && self.opts.Header {
		self.started = true
		if err := self.writeHeader(); err != nil {
			return err
		}
	}
	return self.w.Flush()
}

func (self *Writer) Count() int {
	return self.count
}

// Blanked returns the number of values written as null since the last Flush
// because they did not fit their column.
func (self *Writer) Blanked() int {
	return self.blanked
}

// AppendValue appends the field representation of the value, rendered as
// the declared type of its column. Text that does not parse as a number in a
// numeric column is written as null.
func AppendValue(buf []byte, value structs.Value, typ structs.FieldType) []byte {
	buf, _ = _AppendValue(buf, value, typ)
	return buf
}

// reports false if a non-null value had to be dropped
func _AppendValue(buf []byte, value structs.Value, typ structs.FieldType) ([]byte, bool) {
	if value.Null {
		return buf, true
	}
	if typ == structs.TEXT {
		buf = append(buf, '"')
		buf = append(buf, strings.ReplaceAll(value.String(), `"`, `""`)...)
		return append(buf, '"'), true
	}
	if value.Type == structs.TEXT {
		num, err := strconv.ParseFloat(strings.TrimSpace(value.Text), 64)
		if err != nil {
			return buf, false
		}
		return strconv.AppendFloat(buf, num, 'f', -1, 64), true
	}
	return strconv.AppendFloat(buf, value.Num, 'f', -1, 64), true
}

// VarList returns the variable list for importing the written file into the
// network: A,B followed by the target names, text columns marked with (C).
func VarList(fields []structs.Field) string {
	var builder strings.Builder
	builder.WriteString("A,B")
	for _, field := range fields {
		builder.WriteString(",")
		builder.WriteString(field.Target)
		if field.Type == structs.TEXT {
			builder.WriteString("(C)")
		}
	}
	return builder.String()
}

// WriteFile writes all records to the named file.
func WriteFile(filename string, fields []structs.Field, records []Record, opts WriterOptions) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	writer := NewWriter(file, fields, opts)
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Flush()
}
