package hardware

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAttr(t *testing.T, dir, name, value string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(value+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestIIOReaderProcessedInput(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, illuminanceInput, "123.6")
	writeAttr(t, dir, illuminanceRaw, "9999")

	lux, err := NewIIOReader(dir).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if lux != 124 {
		t.Errorf("Read() = %d, want 124", lux)
	}
}

func TestIIOReaderRawWithScale(t *testing.T) {
	tests := []struct {
		name   string
		attrs  map[string]string
		want   int
		wantOK bool
	}{
		{"raw only", map[string]string{illuminanceRaw: "40"}, 40, true},
		{"raw and scale", map[string]string{illuminanceRaw: "40", illuminanceScale: "0.25"}, 10, true},
		{"raw offset scale", map[string]string{illuminanceRaw: "40", illuminanceOffset: "-20", illuminanceScale: "2"}, 40, true},
		{"negative clamps", map[string]string{illuminanceRaw: "5", illuminanceOffset: "-20"}, 0, true},
		{"garbage", map[string]string{illuminanceRaw: "bright"}, 0, false},
		{"bad scale", map[string]string{illuminanceRaw: "40", illuminanceScale: "x"}, 0, false},
		{"no attributes", map[string]string{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, value := range tt.attrs {
				writeAttr(t, dir, name, value)
			}

			lux, err := NewIIOReader(dir).Read()
			if tt.wantOK && err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatalf("Read() = %d, want error", lux)
				}
				return
			}
			if lux != tt.want {
				t.Errorf("Read() = %d, want %d", lux, tt.want)
			}
		})
	}
}

func TestIIOReaderBadProcessedInput(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, illuminanceInput, "n/a")
	writeAttr(t, dir, illuminanceRaw, "40")

	// A present but unreadable processed value is an error, not a fallback
	if _, err := NewIIOReader(dir).Read(); err == nil {
		t.Errorf("Read() succeeded with a broken processed value")
	}
}
