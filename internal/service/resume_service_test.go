package service

import (
	"context"
	"errors"
	"testing"

	"github.com/slmes-creator/job-posting/internal/models"
)

func TestResumeUploadIsContentAddressed(t *testing.T) {
	store := newMemResumes()
	s := NewResumeService(store, newMemApps(), 16)
	ctx := context.Background()

	a, err := s.Upload(ctx, "v1", "../../cv.docx", []byte("same bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	b, err := s.Upload(ctx, "v2", "other.docx", []byte("same bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if a.BlobKey != b.BlobKey || len(store.blobs) != 1 {
		t.Fatalf("identical content should share a blob: %s %s", a.BlobKey, b.BlobKey)
	}
	if a.ID == b.ID {
		t.Fatal("each upload gets its own metadata record")
	}
	if a.FileName != "cv.docx" {
		t.Fatalf("path should be stripped, got %q", a.FileName)
	}
	if a.ContentType != "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		t.Fatalf("unexpected content type %q", a.ContentType)
	}

	if _, err := s.Upload(ctx, "v1", "cv.pdf", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty file: %v", err)
	}
	if _, err := s.Upload(ctx, "v1", "cv.pdf", make([]byte, 17)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("oversized file: %v", err)
	}
}

func TestResumeDownloadAccess(t *testing.T) {
	store := newMemResumes()
	apps := newMemApps()
	s := NewResumeService(store, apps, 0)
	ctx := context.Background()

	r, err := s.Upload(ctx, "v1", "cv.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	apps.Create(ctx, &models.Application{OrganizationID: "org1", VolunteerID: "v1", ResumeURL: ResumeURL(r.ID)})

	if data, meta, err := s.Download(ctx, "v1", models.RoleVolunteer, r.ID); err != nil || string(data) != "%PDF" || meta.FileName != "cv.pdf" {
		t.Fatalf("uploader download: %q %+v %v", data, meta, err)
	}
	if _, _, err := s.Download(ctx, "org1", models.RoleOrganization, r.ID); err != nil {
		t.Fatalf("receiving organization should download: %v", err)
	}
	if _, _, err := s.Download(ctx, "org2", models.RoleOrganization, r.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other organization: %v", err)
	}
	if _, _, err := s.Download(ctx, "v2", models.RoleVolunteer, r.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other volunteer: %v", err)
	}
	if _, _, err := s.Download(ctx, "v1", models.RoleVolunteer, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing resume: %v", err)
	}
}

func TestResumeUploadIgnoresClaimedType(t *testing.T) {
	s := NewResumeService(newMemResumes(), newMemApps(), 0)
	r, err := s.Upload(context.Background(), "v1", "cv.html", []byte("<script>alert(1)</script>"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if r.ContentType != "application/octet-stream" {
		t.Fatalf("unknown extension should be stored as octet-stream, got %q", r.ContentType)
	}
}

func TestResumeUploadRemovesBlobWhenMetadataFails(t *testing.T) {
	store := newMemResumes()
	s := NewResumeService(store, newMemApps(), 0)
	ctx := context.Background()

	store.failCreate = true
	if _, err := s.Upload(ctx, "v1", "cv.pdf", []byte("fresh")); !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(store.blobs) != 0 {
		t.Fatalf("orphaned blob left behind: %d", len(store.blobs))
	}

	store.failCreate = false
	kept, err := s.Upload(ctx, "v1", "cv.pdf", []byte("shared"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	store.failCreate = true
	if _, err := s.Upload(ctx, "v2", "copy.pdf", []byte("shared")); !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, ok := store.blobs[kept.BlobKey]; !ok {
		t.Fatal("a blob already referenced by another resume must survive")
	}
}
