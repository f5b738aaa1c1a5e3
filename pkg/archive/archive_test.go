package archive_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/haivivi/versioner/pkg/archive"
	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/kv"
	"github.com/haivivi/versioner/pkg/props"
	"github.com/haivivi/versioner/pkg/storage"
	"github.com/haivivi/versioner/pkg/versioner"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h int) versioner.Option {
	return versioner.At(t0.Add(time.Duration(h) * time.Hour))
}

func clock() time.Time { return t0.Add(100 * time.Hour) }

type fixture struct {
	v      *versioner.Versioner
	person graph.NodeID
	robot  graph.NodeID
}

// newFixture builds a Person with four States (one a rollback clone) and a
// relationship to a Robot.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := kv.NewMemory(nil)
	t.Cleanup(func() { store.Close() })
	v, err := versioner.New(versioner.Config{
		Graph:  graph.NewKVGraph(store, kv.Key{"vg"}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	p, err := v.Init(ctx, "Person", props.Map{"id": props.String("p1")}, props.Map{"name": props.String("Ada"), "age": props.Int(36)}, at(0))
	if err != nil {
		t.Fatal(err)
	}
	r, err := v.Init(ctx, "Robot", nil, props.Map{"model": props.String("R2")}, at(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Update(ctx, p.ID, props.Map{"name": props.String("Ada"), "age": props.Int(37)}, at(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.CreateRelationship(ctx, p.ID, r.ID, "OWNS", props.Map{"since": props.Int(2020)}, at(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Rollback(ctx, p.ID, at(3)); err != nil {
		t.Fatal(err)
	}
	return fixture{v: v, person: p.ID, robot: r.ID}
}

func checkDocument(t *testing.T, f fixture, doc *archive.Document) {
	t.Helper()
	if doc.Version != archive.DocumentVersion || !doc.ExportedAt.Time().Equal(clock()) {
		t.Fatalf("header = %d, %v", doc.Version, doc.ExportedAt)
	}
	if doc.Entity.ID != string(f.person) || !slices.Equal(doc.Entity.Labels, []string{"Person"}) {
		t.Fatalf("entity = %+v", doc.Entity)
	}
	if len(doc.States) != 4 {
		t.Fatalf("states = %d, want 4", len(doc.States))
	}
	cur := doc.Current()
	if cur == nil || cur != &doc.States[0] || cur.End != nil {
		t.Fatalf("current = %+v", cur)
	}
	// The rollback restored age 37 from the State before the relationship.
	if age, _ := cur.Props["age"].AsInt(); age != 37 {
		t.Fatalf("current age = %v", cur.Props["age"])
	}
	if cur.RollbackOf != doc.States[2].ID || cur.Previous != doc.States[1].ID {
		t.Fatalf("current links = %q, %q", cur.RollbackOf, cur.Previous)
	}
	patched := doc.States[1]
	if len(patched.Relationships) != 1 {
		t.Fatalf("patched relationships = %+v", patched.Relationships)
	}
	rel := patched.Relationships[0]
	if rel.Type != "OWNS" || rel.Destination != string(f.robot) || !rel.Props["since"].Equal(props.Int(2020)) {
		t.Fatalf("relationship = %+v", rel)
	}
	oldest := doc.States[3]
	if oldest.Previous != "" || oldest.End == nil || !oldest.End.Time().Equal(t0.Add(time.Hour)) {
		t.Fatalf("oldest = %+v", oldest)
	}
	if s := doc.At(t0.Add(90 * time.Minute)); s == nil || s.ID != doc.States[2].ID {
		t.Fatalf("At(1h30) = %+v", s)
	}
	if s := doc.At(t0.Add(-time.Hour)); s != nil {
		t.Fatalf("At(before history) = %+v", s)
	}
}

func TestExportLoad_Local(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	local, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range []archive.Format{archive.YAML, archive.Msgpack} {
		p := "people/p1." + format.Ext()
		if _, err := archive.Export(ctx, f.v, f.person, local, p, format, archive.WithClock(clock)); err != nil {
			t.Fatalf("Export(%s): %v", format, err)
		}
		doc, err := archive.Load(ctx, local, p)
		if err != nil {
			t.Fatalf("Load(%s): %v", format, err)
		}
		checkDocument(t, f, doc)
	}

	got, err := archive.List(ctx, local, "people/")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"people/p1.msgpack", "people/p1.yaml"}; !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
}

func TestExport_YAMLLayout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	local, _ := storage.NewLocal(t.TempDir())
	if _, err := archive.Export(ctx, f.v, f.person, local, "p.yaml", archive.YAML, archive.WithClock(clock)); err != nil {
		t.Fatal(err)
	}
	r, err := local.Read(ctx, "p.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	for _, want := range []string{"version: 1", "exportedAt: 1704427200000", "rollbackOf:", "type: OWNS"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("archive lacks %q:\n%s", want, data)
		}
	}
}

func TestExport_Exists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	local, _ := storage.NewLocal(t.TempDir())
	if _, err := archive.Export(ctx, f.v, f.person, local, "p.yaml", archive.YAML); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Export(ctx, f.v, f.person, local, "p.yaml", archive.YAML); !errors.Is(err, archive.ErrExists) {
		t.Fatalf("second Export = %v, want ErrExists", err)
	}
	if _, err := archive.Export(ctx, f.v, f.person, local, "p.yaml", archive.YAML, archive.Overwrite()); err != nil {
		t.Fatalf("Export with Overwrite: %v", err)
	}
}

func TestExport_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	local, _ := storage.NewLocal(t.TempDir())
	if _, err := archive.Export(ctx, f.v, "missing", local, "x.yaml", archive.YAML); !errors.Is(err, versioner.ErrNotAnEntity) {
		t.Fatalf("Export(missing) = %v, want ErrNotAnEntity", err)
	}
	if _, err := archive.Export(ctx, f.v, f.person, local, "x.json", "json"); !errors.Is(err, archive.ErrUnknownFormat) {
		t.Fatalf("Export(json) = %v, want ErrUnknownFormat", err)
	}
	if _, err := archive.Load(ctx, local, "nothing.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load(missing) = %v, want ErrNotExist", err)
	}
	if _, err := archive.Load(ctx, local, "noext"); !errors.Is(err, archive.ErrUnknownFormat) {
		t.Fatalf("Load(noext) = %v, want ErrUnknownFormat", err)
	}
}

func TestDecode_Version(t *testing.T) {
	if _, err := archive.Decode([]byte("version: 7\n"), archive.YAML); !errors.Is(err, archive.ErrVersion) {
		t.Fatalf("Decode = %v, want ErrVersion", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]archive.Format{"yaml": archive.YAML, "YML": archive.YAML, "msgpack": archive.Msgpack, "mp": archive.Msgpack} {
		if got, err := archive.ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if f, err := archive.FormatOf("a/b.c/d.yml"); err != nil || f != archive.YAML {
		t.Errorf("FormatOf = %q, %v", f, err)
	}
}

func TestDefaultPath(t *testing.T) {
	n := &graph.Node{ID: "0192", Labels: []string{"Person"}}
	if got := archive.DefaultPath(n, archive.Msgpack); got != "Person/0192.msgpack" {
		t.Fatalf("DefaultPath = %q", got)
	}
}

type notFound struct{}

func (notFound) Error() string                 { return "not found" }
func (notFound) ErrorCode() string             { return "NotFound" }
func (notFound) ErrorMessage() string          { return "not found" }
func (notFound) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// bucket is an in-memory S3Client.
type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func (b *bucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[*in.Key]
	if !ok {
		return nil, notFound{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *bucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return nil, b.putErr
	}
	b.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (b *bucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (b *bucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[*in.Key]; !ok {
		return nil, notFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (b *bucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for k := range b.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestExportLoad_S3(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := &bucket{objects: make(map[string][]byte)}
	store, err := storage.Open(ctx, "s3://archives/prod", storage.S3Options{Client: b})
	if err != nil {
		t.Fatal(err)
	}

	p := "Person/p1.msgpack"
	if _, err := archive.Export(ctx, f.v, f.person, store, p, archive.Msgpack, archive.WithClock(clock)); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, ok := b.objects["prod/"+p]; !ok {
		t.Fatalf("objects = %v", b.objects)
	}
	doc, err := archive.Load(ctx, store, p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	checkDocument(t, f, doc)

	got, err := archive.List(ctx, store, "Person/")
	if err != nil || !slices.Equal(got, []string{p}) {
		t.Fatalf("List = %v, %v", got, err)
	}
}

func TestExport_UploadFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := &bucket{objects: make(map[string][]byte), putErr: errors.New("quota exceeded")}
	store := storage.NewS3(b, "archives", "")

	_, err := archive.Export(ctx, f.v, f.person, store, "p.yaml", archive.YAML)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Export = %v, want the upload error", err)
	}
	if ok, _ := store.Exists(ctx, "p.yaml"); ok {
		t.Fatal("failed export left an archive behind")
	}
	if _, err := archive.Load(ctx, store, "p.yaml"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load = %v, want ErrNotExist", err)
	}
}
