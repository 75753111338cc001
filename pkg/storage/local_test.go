package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(filepath.Join(t.TempDir(), "bundle"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeFile(t *testing.T, fs FileStore, path, data string) {
	t.Helper()
	w, err := fs.Write(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, fs FileStore, path string) string {
	t.Helper()
	r, err := fs.Read(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestLocalReadWrite(t *testing.T) {
	s := newTestLocal(t)
	writeFile(t, s, "templates/host_down.yaml", "name: host_down\n")
	if got := readFile(t, s, "templates/host_down.yaml"); got != "name: host_down\n" {
		t.Fatalf("got %q", got)
	}
	writeFile(t, s, "templates/host_down.yaml", "v2")
	if got := readFile(t, s, "templates/host_down.yaml"); got != "v2" {
		t.Fatalf("overwrite: got %q", got)
	}
}

func TestLocalWriteIsAtomic(t *testing.T) {
	s := newTestLocal(t)
	writeFile(t, s, "index.yaml", "old")

	w, err := s.Write(context.Background(), "index.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, "new"); err != nil {
		t.Fatal(err)
	}
	// Not yet committed.
	if got := readFile(t, s, "index.yaml"); got != "old" {
		t.Fatalf("before Close: got %q", got)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, s, "index.yaml"); got != "new" {
		t.Fatalf("after Close: got %q", got)
	}

	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestLocalNotExist(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	if _, err := s.Read(ctx, "missing.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	ok, err := s.Exists(ctx, "missing.yaml")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	writeFile(t, s, "present.yaml", "x")
	if ok, err := s.Exists(ctx, "present.yaml"); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	fs, err := Open(dir, S3Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fs.(*Local); !ok {
		t.Fatalf("Open(%s) = %T, want *Local", dir, fs)
	}

	fs, err = Open("s3://rca-templates/prod/v1/", S3Options{Region: "eu-west-1", Endpoint: "http://localhost:9000", AccessKey: "ak", SecretKey: "sk"})
	if err != nil {
		t.Fatal(err)
	}
	s3s, ok := fs.(*S3Store)
	if !ok {
		t.Fatalf("got %T, want *S3Store", fs)
	}
	if s3s.bucket != "rca-templates" || s3s.prefix != "prod/v1" {
		t.Fatalf("bucket %q prefix %q", s3s.bucket, s3s.prefix)
	}

	if _, err := Open("s3:///prefix", S3Options{}); err == nil {
		t.Fatal("expected an error for a missing bucket")
	}
}
