package ktest

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sample() *KTest {
	return &KTest{
		Version:    CurrentVersion,
		Args:       []string{"prog", "--flag"},
		SymArgvs:   1,
		SymArgvLen: 8,
		Objects: []Object{
			{Name: "argv0", Bytes: []byte("prog\x00")},
			{Name: "x", Bytes: []byte{1, 2, 3, 4}},
		},
		Havocs: []HavocedLocation{
			{Name: "buf", Bytes: []byte{0, 0, 9, 0}, Mask: []uint32{0, 0, 1, 0}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	k := sample()
	var buf bytes.Buffer
	if err := Encode(&buf, k); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(k, got) {
		t.Fatalf("round trip mismatch:\n want %+v\n got  %+v", k, got)
	}
}

func TestToFileFromFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ktest")
	k := sample()
	if err := ToFile(k, path); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	got, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if !reflect.DeepEqual(k, got) {
		t.Fatalf("round trip mismatch:\n want %+v\n got  %+v", k, got)
	}
}

func TestIsKTestFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.ktest")
	if err := ToFile(sample(), good); err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	ok, err := IsKTestFile(good)
	if err != nil || !ok {
		t.Fatalf("IsKTestFile(good) = %v, %v; want true, nil", ok, err)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("not a ktest file"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ok, err = IsKTestFile(bad)
	if err != nil || ok {
		t.Fatalf("IsKTestFile(bad) = %v, %v; want false, nil", ok, err)
	}
}

func TestNumBytes(t *testing.T) {
	k := sample()
	if got, want := k.NumBytes(), 5+4; got != want {
		t.Fatalf("NumBytes() = %d, want %d", got, want)
	}
}
