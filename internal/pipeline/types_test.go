package pipeline

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeOriginal, false},
		{"original", ModeOriginal, false},
		{"chinese", ModeTranslated, false},
		{"Translated", ModeTranslated, false},
		{" dual ", ModeDual, false},
		{"bilingual", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"", VariantExplicit, false},
		{"explicit", VariantExplicit, false},
		{"DETECT", VariantDetect, false},
		{"auto", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVariant(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVariant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSegmentValid(t *testing.T) {
	tests := []struct {
		seg  Segment
		want bool
	}{
		{Segment{Start: 0, End: 1}, true},
		{Segment{Start: 1, End: 1}, false},
		{Segment{Start: 2, End: 1}, false},
		{Segment{Start: -1, End: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.seg.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.seg, got, tt.want)
		}
	}
}
