package keyword

import "testing"

func TestDefaultFilter(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		name string
		want bool
	}{
		{"Ring_Size", false},
		{"RESERVED_31_16", true},
		{"Reserved", true},
		{"rsvd0", true},
		{"FOO_R0_SPARE_REG", true},
		{"DbugSel", true},
		{"debug_en", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := f.IsDisqualified(tt.name); got != tt.want {
			t.Errorf("IsDisqualified(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCustomFilter(t *testing.T) {
	f := NewFilter(" Unused ", "", "TMP")
	if len(f.Keywords()) != 2 {
		t.Fatalf("expected 2 keywords, got %v", f.Keywords())
	}
	if !f.IsDisqualified("unused_bits") {
		t.Error("expected unused_bits to be disqualified")
	}
	if !f.IsDisqualified("tmpField") {
		t.Error("expected tmpField to be disqualified")
	}
	if f.IsDisqualified("reserved") {
		t.Error("custom filter should not carry default keywords")
	}
}

func TestNilFilter(t *testing.T) {
	var f *Filter
	if f.IsDisqualified("reserved") {
		t.Error("nil filter should disqualify nothing")
	}
	if f.Keywords() != nil {
		t.Error("nil filter should have no keywords")
	}
}
