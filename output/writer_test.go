package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ttpr0/go-netjoin/matching"
	"github.com/ttpr0/go-netjoin/structs"
)

func _Fields() []structs.Field {
	return []structs.Field{
		{Name: "ZONE", Target: "TAZ", Type: structs.NUMERIC},
		{Name: "NAME", Target: "NAME", Type: structs.TEXT},
	}
}

func TestWriterLines(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, _Fields(), WriterOptions{})
	records := []Record{
		{Origin: 1, Destination: 2, Values: []structs.Value{structs.NumericValue(17), structs.TextValue("North")}},
		{Origin: 2, Destination: 3, Values: []structs.Value{structs.NumericValue(0.25), structs.TextValue(`Say "hi", x`)}},
		{Origin: 3, Destination: 4, Values: []structs.Value{structs.NullValue(structs.NUMERIC), structs.NullValue(structs.TEXT)}},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "1,2,17,\"North\"\n" +
		"2,3,0.25,\"Say \"\"hi\"\", x\"\n" +
		"3,4,,\n"
	if buf.String() != want {
		t.Errorf("output = %q; want %q", buf.String(), want)
	}
	if writer.Count() != 3 {
		t.Errorf("writer.Count() = %v; want 3", writer.Count())
	}
}

func TestWriterHeader(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, _Fields(), WriterOptions{Header: true})
	if err := writer.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "A,B,TAZ,NAME\n" {
		t.Errorf("output = %q; want header only", buf.String())
	}
}

func TestWriterValueCount(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, _Fields(), WriterOptions{})
	err := writer.Write(Record{Origin: 1, Destination: 2, Values: []structs.Value{structs.NumericValue(1)}})
	if err == nil {
		t.Errorf("record with missing value accepted")
	}
}

func TestAppendValue(t *testing.T) {
	tests := []struct {
		value structs.Value
		typ   structs.FieldType
		want  string
	}{
		{structs.NumericValue(1234567.5), structs.NUMERIC, "1234567.5"},
		{structs.NumericValue(-3), structs.NUMERIC, "-3"},
		{structs.NumericValue(1e21), structs.NUMERIC, "1000000000000000000000"},
		{structs.NumericValue(7), structs.TEXT, `"7"`},
		{structs.TextValue(" 12.50 "), structs.NUMERIC, "12.5"},
		{structs.TextValue("abc"), structs.NUMERIC, ""},
		{structs.TextValue(""), structs.TEXT, `""`},
	}
	for _, test := range tests {
		got := string(AppendValue(nil, test.value, test.typ))
		if got != test.want {
			t.Errorf("AppendValue(%+v, %v) = %q; want %q", test.value, test.typ, got, test.want)
		}
	}
}

func TestWriterCountsUnparsedNumbers(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, _Fields(), WriterOptions{})
	values := []structs.Value{structs.TextValue("n/a"), structs.TextValue("x")}
	if err := writer.Write(Record{Origin: 1, Destination: 2, Values: values}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.Blanked() != 1 {
		t.Errorf("writer.Blanked() = %v; want 1", writer.Blanked())
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "1,2,,\"x\"\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestVarList(t *testing.T) {
	if got := VarList(_Fields()); got != "A,B,TAZ,NAME(C)" {
		t.Errorf("VarList() = %q; want A,B,TAZ,NAME(C)", got)
	}
}

func TestAssembleSkipsUnmatched(t *testing.T) {
	segments := []structs.Segment{
		{Origin: 1, Destination: 2},
		{Origin: 2, Destination: 3},
		{Origin: 3, Destination: 4},
	}
	regions := []structs.Region{
		{Values: []structs.Value{structs.NumericValue(10), structs.TextValue("a")}},
		{Values: []structs.Value{structs.NumericValue(20), structs.TextValue("b")}},
	}
	mapping := matching.NewMapping(3)
	mapping.Regions[0] = 1
	mapping.Regions[2] = 0
	mapping.Unmatched = append(mapping.Unmatched, 1)

	records := Assemble(segments, regions, mapping)
	if len(records) != 2 {
		t.Fatalf("len(records) = %v; want 2", len(records))
	}
	if records[0].Origin != 1 || records[0].Values[0].Num != 20 {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Origin != 3 || records[1].Values[1].Text != "a" {
		t.Errorf("records[1] = %+v", records[1])
	}
}

func TestWriteFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.csv")
	records := []Record{
		{Origin: 5, Destination: 6, Values: []structs.Value{structs.NumericValue(3), structs.TextValue("x")}},
	}
	if err := WriteFile(filename, _Fields(), records, WriterOptions{Header: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "A,B,TAZ,NAME\n5,6,3,\"x\"\n" {
		t.Errorf("file content = %q", string(data))
	}
}
