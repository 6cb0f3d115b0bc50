package util

import (
	"testing"
)

type CVSSimpleTest struct {
	Name   string  `csv:"name"`
	Age    int     `csv:"age"`
	Height float32 `csv:"height"`
	Gender bool    `csv:"gender"`
}

func TestCSVSimple(t *testing.T) {
	file := "./testdata/simple.csv"

	i := 0
	for row, err := range ReadCSVFromFile[CVSSimpleTest](file, ';') {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i == 0 {
			if row.Name != "John" || row.Age != 30 || row.Height != 170 || row.Gender != false {
				t.Errorf("row.Name = %v; want John", row.Name)
			}
		} else if i == 1 {
			if row.Name != "Jane" || row.Age != 25 || row.Height != 160 || row.Gender != true {
				t.Errorf("row.Name = %v; want Jane", row.Name)
			}
		} else if i == 2 {
			if row.Name != "Joe" || row.Age != 35 || row.Height != 175 || row.Gender != true {
				t.Errorf("row.Name = %v; want Joe", row.Name)
			}
		} else {
			t.Errorf("too many rows")
		}
		i++
	}
	if i != 3 {
		t.Errorf("read %d rows; want 3", i)
	}
}

func TestCSVError(t *testing.T) {
	file := "./testdata/error.csv"

	i := 0
	errs := 0
	for row, err := range ReadCSVFromFile[CVSSimpleTest](file, ';') {
		if i == 2 {
			if err == nil {
				t.Errorf("expected parse error for row %d", i)
			}
			errs++
		} else if err != nil {
			t.Errorf("unexpected error in row %d: %v", i, err)
		}
		if i == 0 {
			if row.Name != "John" || row.Age != 30 || row.Height != 170.5 || row.Gender != false {
				t.Errorf("row.Name = %v; want John", row.Name)
			}
		} else if i == 1 {
			if row.Name != "Jane" || row.Age != 25 || row.Height != 160.9 || row.Gender != true {
				t.Errorf("row.Name = %v; want Jane", row.Name)
			}
		} else if i == 3 {
			if row.Name != "" || row.Age != 28 || row.Height != 0 || row.Gender != false {
				t.Errorf("row = %v; want empty name and age 28", row)
			}
		}
		i++
	}
	if i != 4 || errs != 1 {
		t.Errorf("read %d rows with %d errors; want 4 rows with 1 error", i, errs)
	}
}

type NodeRowTest struct {
	N int64   `csv:"N"`
	X float64 `csv:"X"`
	Y float64 `csv:"Y"`
}

func TestCSVNoHeader(t *testing.T) {
	file := "./testdata/noheader.csv"

	rows := NewList[NodeRowTest](3)
	for row, err := range ReadCSVFromFile[NodeRowTest](file, ',', "N", "X", "Y") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows.Add(row)
	}
	if rows.Length() != 3 {
		t.Fatalf("read %d rows; want 3", rows.Length())
	}
	if rows[0].N != 1 || rows[0].X != 10.5 || rows[0].Y != 20.25 {
		t.Errorf("rows[0] = %v; want {1 10.5 20.25}", rows[0])
	}
	if rows[1].X != 11 {
		t.Errorf("rows[1].X = %v; want 11", rows[1].X)
	}
}

func TestCSVMissingFile(t *testing.T) {
	count := 0
	for _, err := range ReadCSVFromFile[NodeRowTest]("./testdata/missing.csv", ',') {
		if err == nil {
			t.Errorf("expected error for missing file")
		}
		count++
	}
	if count != 1 {
		t.Errorf("got %d results; want 1", count)
	}
}
