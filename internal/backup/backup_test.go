package backup

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dormduty/dormduty/internal/database"
)

type fakeS3 struct {
	puts    []string
	deletes []string
	objects []s3types.Object
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if _, err := io.Copy(io.Discard, input.Body); err != nil {
		return nil, err
	}
	f.puts = append(f.puts, aws.ToString(input.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.objects}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func testManager(t *testing.T) (*Manager, *fakeS3) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fake := &fakeS3{}
	m := NewManager(Config{Bucket: "backups", Prefix: "dormduty"}, db, slog.Default())
	m.client = fake
	return m, fake
}

func TestRunOnceUploads(t *testing.T) {
	m, fake := testManager(t)

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(fake.puts) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(fake.puts))
	}
	key := fake.puts[0]
	if !strings.HasPrefix(key, "dormduty/backup-") || !strings.HasSuffix(key, ".db") {
		t.Errorf("unexpected object key %q", key)
	}
	if m.LastBackup().IsZero() {
		t.Error("LastBackup not recorded")
	}
}

func TestRunOnceNotConfigured(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{}, db, slog.Default())
	if err := m.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error when S3 is not configured")
	}
}

func TestCleanupDeletesExpired(t *testing.T) {
	m, fake := testManager(t)
	m.cfg.RetentionDays = 7

	old := time.Now().UTC().AddDate(0, 0, -10)
	recent := time.Now().UTC().AddDate(0, 0, -1)
	fake.objects = []s3types.Object{
		{Key: aws.String("dormduty/backup-old.db"), LastModified: &old},
		{Key: aws.String("dormduty/backup-recent.db"), LastModified: &recent},
	}

	if err := m.cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if len(fake.deletes) != 1 {
		t.Fatalf("expected 1 delete, got %d", len(fake.deletes))
	}
	if fake.deletes[0] != "dormduty/backup-old.db" {
		t.Errorf("deleted %q, want the expired object", fake.deletes[0])
	}
}

func TestObjectKey(t *testing.T) {
	ts := time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC)
	if got := objectKey("", ts); got != "backup-2025-06-16T093000Z.db" {
		t.Errorf("objectKey no prefix = %q", got)
	}
	if got := objectKey("nightly", ts); got != "nightly/backup-2025-06-16T093000Z.db" {
		t.Errorf("objectKey with prefix = %q", got)
	}
}
