package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var (
	errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}
	errNotFound  = &apiError{code: "NotFound", msg: "not found"}
)

// fakeS3 is an in-memory bucket. pageSize bounds ListObjectsV2 pages so
// pagination is exercised.
type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	pageSize int

	getErr error
	putErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string), pageSize: 2}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
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
	f.objects[*in.Key] = data
	f.types[*in.Key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, errNotFound
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := &s3.ListObjectsV2Output{}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3_WriteRead(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "archives", "")
	put(t, s, "alice.yaml", "long content here")
	put(t, s, "alice.yaml", "short")
	if got := get(t, s, "alice.yaml"); got != "short" {
		t.Fatalf("got %q, want %q", got, "short")
	}
}

func TestS3_ReadErrors(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "archives", "pfx")
	if _, err := s.Read(context.Background(), "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read(missing) = %v, want os.ErrNotExist", err)
	}
	fake.getErr = errors.New("network timeout")
	_, err := s.Read(context.Background(), "x")
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read = %v, want the network error", err)
	}
}

func TestS3_ExistsDelete(t *testing.T) {
	s := NewS3(newFakeS3(), "archives", "")
	ctx := context.Background()
	if ok, err := s.Exists(ctx, "a"); err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
	put(t, s, "a", "x")
	if ok, err := s.Exists(ctx, "a"); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Fatal("object should be gone after delete")
	}
}

func TestS3_WriteUploadError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("upload failed")
	s := NewS3(fake, "archives", "")
	w, err := s.Write(context.Background(), "obj")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "data")
	if err := w.Close(); err == nil || err.Error() != "upload failed" {
		t.Fatalf("Close = %v, want upload failed", err)
	}
}

func TestS3_Prefix(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "archives", "team/prod")
	put(t, s, "person/alice.yaml", "x")
	if _, ok := fake.objects["team/prod/person/alice.yaml"]; !ok {
		t.Fatalf("objects = %v, want prefixed key", fake.objects)
	}
	if got := s.path(s.key("a/b")); got != "a/b" {
		t.Fatalf("path(key(a/b)) = %q", got)
	}
}

func TestS3_List(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "archives", "prod")
	for _, p := range []string{"person/c.yaml", "person/a.yaml", "robot/r.yaml", "person/b.yaml"} {
		put(t, s, p, "")
	}
	fake.objects["other/person/x.yaml"] = nil

	got, err := s.List(context.Background(), "person/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"person/a.yaml", "person/b.yaml", "person/c.yaml"}
	if !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NoSuchKey", errNoSuchKey, true},
		{"NotFound", errNotFound, true},
		{"other api error", &apiError{code: "AccessDenied", msg: "denied"}, false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.want {
				t.Fatalf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, raw := range []string{dir, "file://" + dir} {
		fs, err := Open(context.Background(), raw, S3Options{})
		if err != nil {
			t.Fatalf("Open(%s): %v", raw, err)
		}
		if _, ok := fs.(*Local); !ok {
			t.Fatalf("Open(%s) = %T, want *Local", raw, fs)
		}
	}

	fake := newFakeS3()
	fs, err := Open(context.Background(), "s3://bucket/team/prod/", S3Options{Client: fake})
	if err != nil {
		t.Fatal(err)
	}
	s3s, ok := fs.(*S3Store)
	if !ok || s3s.bucket != "bucket" || s3s.prefix != "team/prod" {
		t.Fatalf("Open(s3) = %+v", fs)
	}

	for _, bad := range []string{"s3:///nobucket", "gs://bucket", "file://"} {
		if _, err := Open(context.Background(), bad, S3Options{}); !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("Open(%s) = %v, want ErrUnsupportedURL", bad, err)
		}
	}
}

// isolateAWS points the default AWS configuration chain at an empty
// environment.
func isolateAWS(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	for _, k := range []string{"AWS_PROFILE", "AWS_REGION", "AWS_DEFAULT_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_ENDPOINT_URL", "AWS_ENDPOINT_URL_S3"} {
		t.Setenv(k, "")
	}
}

func TestNewS3Client(t *testing.T) {
	isolateAWS(t)
	ctx := context.Background()

	c, err := NewS3Client(ctx, S3Options{Region: "eu-west-1", Endpoint: "http://localhost:9000"})
	if err != nil {
		t.Fatal(err)
	}
	o := c.Options()
	if o.Region != "eu-west-1" || !o.UsePathStyle || aws.ToString(o.BaseEndpoint) != "http://localhost:9000" {
		t.Fatalf("options = %+v", o)
	}

	c, err = NewS3Client(ctx, S3Options{})
	if err != nil {
		t.Fatal(err)
	}
	o = c.Options()
	if o.Region != defaultRegion || o.UsePathStyle || o.BaseEndpoint != nil {
		t.Fatalf("default options = %+v", o)
	}
}

func TestNewS3Client_Credentials(t *testing.T) {
	isolateAWS(t)
	ctx := context.Background()

	t.Setenv("AWS_ACCESS_KEY_ID", "env-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("AWS_REGION", "ap-southeast-1")
	c, err := NewS3Client(ctx, S3Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Options().Region != "ap-southeast-1" {
		t.Fatalf("region = %q, want ap-southeast-1", c.Options().Region)
	}
	creds, err := c.Options().Credentials.Retrieve(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "env-key" || creds.SecretAccessKey != "env-secret" {
		t.Fatalf("env credentials = %+v", creds)
	}

	c, err = NewS3Client(ctx, S3Options{AccessKeyID: "static-key", SecretAccessKey: "static-secret"})
	if err != nil {
		t.Fatal(err)
	}
	creds, err = c.Options().Credentials.Retrieve(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if creds.AccessKeyID != "static-key" || creds.SecretAccessKey != "static-secret" {
		t.Fatalf("static credentials = %+v", creds)
	}
}

func TestS3_ContentType(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "archives", "")
	for p, want := range map[string]string{
		"a.yaml":    "application/yaml",
		"b.msgpack": "application/vnd.msgpack",
		"c.bin":     "application/octet-stream",
	} {
		put(t, s, p, "x")
		if got := fake.types[p]; got != want {
			t.Errorf("content type of %s = %q, want %q", p, got, want)
		}
	}
}

func TestS3_InvalidPath(t *testing.T) {
	s := NewS3(newFakeS3(), "archives", "prod")
	if _, err := s.Write(context.Background(), "../escape.yaml"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Write = %v, want ErrInvalidPath", err)
	}
	if _, err := s.Read(context.Background(), ""); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Read = %v, want ErrInvalidPath", err)
	}
}
