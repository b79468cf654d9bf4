package vfs

import "testing"

func TestStripBOM(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		want     string
		encoding Encoding
	}{
		{"no bom", []byte("{}"), "{}", EncodingUTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "{}"...), "{}", EncodingUTF8BOM},
		{"utf16le bom", []byte{0xFF, 0xFE, 'x'}, "x", EncodingUTF16LE},
		{"utf16be bom", []byte{0xFE, 0xFF, 'x'}, "x", EncodingUTF16BE},
		{"empty", nil, "", EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc := StripBOM(tt.content)
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
			if enc != tt.encoding {
				t.Errorf("encoding = %q, want %q", enc, tt.encoding)
			}
		})
	}
}

func TestReadText(t *testing.T) {
	m := NewMemFS()
	_ = m.WriteFile("/bom.json", append([]byte{0xEF, 0xBB, 0xBF}, `{"a":1}`...), 0644)

	got, err := ReadText(m, "/bom.json")
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("got %q", got)
	}

	if _, err := ReadText(m, "/missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
