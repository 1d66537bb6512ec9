package textio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
	"github.com/ulikunitz/xz"
)

func TestDecodeEncode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		enc  Encoding
		text string
	}{
		{name: "ascii", data: []byte("class A;\n"), enc: UTF8, text: "class A;\n"},
		{name: "utf8", data: []byte("// caf\xc3\xa9\n"), enc: UTF8, text: "// café\n"},
		{name: "latin1", data: []byte("// caf\xe9\r\n"), enc: Latin1, text: "// café\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if enc != tt.enc || text != tt.text {
				t.Errorf("Decode = %q (%v), want %q (%v)", text, enc, tt.text, tt.enc)
			}

			back, err := Encode(text, enc)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.Equal(back, tt.data) {
				t.Errorf("Encode = %q, want %q", back, tt.data)
			}
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.sv")
	raw := []byte("// \xb5s\nclass A;\nendclass\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if doc.Encoding != Latin1 {
		t.Errorf("Encoding = %v, want latin1", doc.Encoding)
	}
	if doc.Digest != Digest(raw) {
		t.Error("digest of the raw bytes expected")
	}

	out := filepath.Join(dir, "out.sv")
	digest, err := WriteFile(out, doc.Text, doc.Encoding)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	written, _ := os.ReadFile(out)
	if !bytes.Equal(written, raw) || digest != doc.Digest {
		t.Errorf("round trip changed bytes: %q", written)
	}

	_, err = ReadFile(filepath.Join(dir, "missing.sv"))
	var ioErr *rerrors.IOError
	if !rerrors.As(err, &ioErr) || ioErr.Operation != "read" {
		t.Errorf("Expected read IOError, got %v", err)
	}
}

func TestDigest(t *testing.T) {
	// BLAKE3 of the empty input.
	const empty = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"
	if got := Digest(nil); got != empty {
		t.Errorf("Digest(nil) = %s", got)
	}
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Error("different inputs must differ")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "model.sv", want: "model_OUTPUT.sv"},
		{in: filepath.Join("rtl", "rxdma_reg_model.sv"), want: filepath.Join("rtl", "rxdma_reg_model_OUTPUT.sv")},
		{in: "model.svh", want: "model_OUTPUT.svh"},
		{in: "model", want: "model_OUTPUT.sv"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.sv")
	data := []byte("class A;\nendclass\n")

	backup, err := WriteBackup(path, data)
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	if backup != path+".orig.xz" {
		t.Errorf("backup = %s", backup)
	}

	got, err := ReadBackup(backup)
	if err != nil {
		t.Fatalf("ReadBackup failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadBackup = %q", got)
	}
}

func TestWriteBackupWriterError(t *testing.T) {
	orig := xzNewWriter
	defer func() { xzNewWriter = orig }()
	xzNewWriter = func(io.Writer) (*xz.Writer, error) {
		return nil, errors.New("boom")
	}

	_, err := WriteBackup(filepath.Join(t.TempDir(), "model.sv"), []byte("x"))
	var ioErr *rerrors.IOError
	if !rerrors.As(err, &ioErr) || ioErr.Operation != "backup" {
		t.Errorf("Expected backup IOError, got %v", err)
	}
}
