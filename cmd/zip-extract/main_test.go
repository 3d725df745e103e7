package main

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildArchive(t *testing.T, files map[string]string, method uint16) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDeflateMembers(t *testing.T) {
	files := map[string]string{
		"hello.txt": "hello from a deflate member",
		"run.txt":   strings.Repeat("abcd", 5000),
	}
	data := buildArchive(t, files, zip.Deflate)

	cdOffset, cdRecords, err := findEndOfCentralDirectory(data)
	if err != nil {
		t.Fatalf("findEndOfCentralDirectory: %v", err)
	}
	members, err := readCentralDirectory(data, cdOffset, cdRecords)
	if err != nil {
		t.Fatalf("readCentralDirectory: %v", err)
	}
	if len(members) != len(files) {
		t.Fatalf("found %d members, want %d", len(members), len(files))
	}

	for i := range members {
		m := &members[i]
		want, ok := files[m.name]
		if !ok {
			t.Errorf("unexpected member %q", m.name)
			continue
		}

		var out bytes.Buffer
		if err := extract(data, m, &out); err != nil {
			t.Errorf("extract %s: %v", m.name, err)
			continue
		}
		if out.String() != want {
			t.Errorf("%s: extracted %d bytes, want %d", m.name, out.Len(), len(want))
		}
	}
}

func TestExtractStoredMembers(t *testing.T) {
	files := map[string]string{"raw.bin": "uncompressed bytes"}
	data := buildArchive(t, files, zip.Store)

	cdOffset, cdRecords, err := findEndOfCentralDirectory(data)
	if err != nil {
		t.Fatalf("findEndOfCentralDirectory: %v", err)
	}
	members, err := readCentralDirectory(data, cdOffset, cdRecords)
	if err != nil {
		t.Fatalf("readCentralDirectory: %v", err)
	}

	var out bytes.Buffer
	if err := extract(data, &members[0], &out); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.String() != files["raw.bin"] {
		t.Errorf("extracted %q", out.String())
	}
}

func TestExtractDetectsCorruption(t *testing.T) {
	data := buildArchive(t, map[string]string{"x": "some corruptible content"}, zip.Store)

	cdOffset, cdRecords, err := findEndOfCentralDirectory(data)
	if err != nil {
		t.Fatalf("findEndOfCentralDirectory: %v", err)
	}
	members, err := readCentralDirectory(data, cdOffset, cdRecords)
	if err != nil {
		t.Fatalf("readCentralDirectory: %v", err)
	}

	raw, err := memberData(data, &members[0])
	if err != nil {
		t.Fatalf("memberData: %v", err)
	}
	raw[0] ^= 0xFF

	var out bytes.Buffer
	if err := extract(data, &members[0], &out); err == nil {
		t.Error("extract accepted a member with a corrupt payload")
	}
}

func TestFindEndOfCentralDirectoryMissing(t *testing.T) {
	if _, _, err := findEndOfCentralDirectory(make([]byte, 128)); err == nil {
		t.Error("found an end of central directory record in zero bytes")
	}
}
