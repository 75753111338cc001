package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeS3 keeps objects in memory, keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	headErr error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3ReadWrite(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "rca", "bundles/prod")
	writeFile(t, s, "index.yaml", "templates: []\n")

	if _, ok := fake.objects["rca/bundles/prod/index.yaml"]; !ok {
		t.Fatalf("object not stored under the prefix: %v", fake.objects)
	}
	if got := readFile(t, s, "index.yaml"); got != "templates: []\n" {
		t.Fatalf("got %q", got)
	}

	unprefixed := NewS3(fake, "rca", "")
	writeFile(t, unprefixed, "a.yaml", "a")
	if _, ok := fake.objects["rca/a.yaml"]; !ok {
		t.Fatalf("object not stored at the bucket root: %v", fake.objects)
	}
}

func TestS3NotExist(t *testing.T) {
	s := NewS3(newFakeS3(), "rca", "")
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

func TestS3Errors(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "rca", "")
	ctx := context.Background()

	denied := &apiError{code: "AccessDenied"}
	fake.putErr = denied
	w, err := s.Write(ctx, "a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("data"))
	if err := w.Close(); !errors.Is(err, denied) {
		t.Fatalf("Close = %v, want the upload error", err)
	}

	fake.headErr = denied
	if _, err := s.Exists(ctx, "a.yaml"); !errors.Is(err, denied) {
		t.Fatalf("Exists = %v, want AccessDenied", err)
	}
}
