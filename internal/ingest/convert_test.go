package ingest

import "testing"

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOk bool
	}{
		{"123", 123, true},
		{"-45.5", -45.5, true},
		{"  7  ", 7, true},
		{"1e3", 1000, true},
		{".5", 0.5, true},
		{"$1,234.50", 1234.5, true},
		{"€99", 99, true},
		{"£3.25", 3.25, true},
		{"(100.00)", -100, true},
		{"=\"42\"", 42, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"1.2.3", 0, false},
		{"(-5)", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantOk {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsMissing(t *testing.T) {
	for _, s := range []string{"", "  ", "NA", "N/A", "n/a", "NULL", "null", "NaN", "nan", "None", "#N/A", "<NA>", " NA "} {
		if !IsMissing(s) {
			t.Errorf("IsMissing(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"0", "na", "none", "-", "missing", "x"} {
		if IsMissing(s) {
			t.Errorf("IsMissing(%q) = true, want false", s)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestColumnNames(t *testing.T) {
	got := columnNames([]string{"id", " name ", "", "id", "id"})
	want := []string{"id", "name", "Unnamed: 2", "id.1", "id.2"}

	if len(got) != len(want) {
		t.Fatalf("columnNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("columnNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
