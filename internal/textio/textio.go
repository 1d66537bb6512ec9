// Package textio reads and writes the documents an annotation run touches,
// keeping their original byte encoding and line endings intact.
package textio

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
	"golang.org/x/text/encoding/charmap"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
)

// Encoding is the byte encoding a document was read with.
type Encoding int

const (
	UTF8 Encoding = iota
	Latin1
)

func (e Encoding) String() string {
	if e == Latin1 {
		return "latin1"
	}
	return "utf-8"
}

// Injectable for tests.
var (
	osReadFile  = os.ReadFile
	osWriteFile = os.WriteFile
	xzNewWriter = xz.NewWriter
	xzNewReader = xz.NewReader
)

// Document is a file loaded as text.
type Document struct {
	Path     string
	Text     string
	Encoding Encoding
	Digest   string // BLAKE3 of the raw bytes
	Raw      []byte
}

// Decode returns data as text. Bytes that are not valid UTF-8 are read as
// ISO 8859-1, which maps every byte to one rune and therefore round-trips.
func Decode(data []byte) (string, Encoding, error) {
	if utf8.Valid(data) {
		return string(data), UTF8, nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", Latin1, err
	}
	return string(text), Latin1, nil
}

// Encode converts text back to enc.
func Encode(text string, enc Encoding) ([]byte, error) {
	if enc == UTF8 {
		return []byte(text), nil
	}
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
}

// ReadFile loads path as a Document.
func ReadFile(path string) (*Document, error) {
	data, err := osReadFile(path)
	if err != nil {
		return nil, rerrors.NewIO("read", path, err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return nil, rerrors.NewIO("decode", path, err)
	}
	return &Document{Path: path, Text: text, Encoding: enc, Digest: Digest(data), Raw: data}, nil
}

// WriteFile stores text at path in enc and returns the digest of the bytes
// written.
func WriteFile(path, text string, enc Encoding) (string, error) {
	data, err := Encode(text, enc)
	if err != nil {
		return "", rerrors.NewIO("encode", path, err)
	}
	if err := osWriteFile(path, data, 0o644); err != nil {
		return "", rerrors.NewIO("write", path, err)
	}
	return Digest(data), nil
}

// Digest returns the hex BLAKE3-256 of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// OutputPath returns the default output file for source: "model.sv" becomes
// "model_OUTPUT.sv" in the same directory.
func OutputPath(source string) string {
	dir, name := filepath.Split(source)
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".sv"
	}
	return dir + strings.TrimSuffix(name, filepath.Ext(name)) + "_OUTPUT" + ext
}

// BackupPath returns where WriteBackup stores the previous contents of path.
func BackupPath(path string) string {
	return path + ".orig.xz"
}

// WriteBackup compresses data into BackupPath(path) and returns that path.
func WriteBackup(path string, data []byte) (string, error) {
	backup := BackupPath(path)

	var buf bytes.Buffer
	w, err := xzNewWriter(&buf)
	if err != nil {
		return "", rerrors.NewIO("backup", backup, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", rerrors.NewIO("backup", backup, err)
	}
	if err := w.Close(); err != nil {
		return "", rerrors.NewIO("backup", backup, err)
	}

	if err := osWriteFile(backup, buf.Bytes(), 0o644); err != nil {
		return "", rerrors.NewIO("write", backup, err)
	}
	return backup, nil
}

// ReadBackup returns the decompressed contents of an xz backup file.
func ReadBackup(backup string) ([]byte, error) {
	data, err := osReadFile(backup)
	if err != nil {
		return nil, rerrors.NewIO("read", backup, err)
	}
	r, err := xzNewReader(bytes.NewReader(data))
	if err != nil {
		return nil, rerrors.NewIO("restore", backup, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, rerrors.NewIO("restore", backup, err)
	}
	return out, nil
}
