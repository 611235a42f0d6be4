package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/slmes-creator/job-posting/internal/models"
)

const DefaultMaxResumeBytes = 5 << 20

type ResumeService struct {
	resumes  ResumeStore
	apps     ApplicationStore
	maxBytes int64
	now      func() time.Time
}

func NewResumeService(resumes ResumeStore, apps ApplicationStore, maxBytes int64) *ResumeService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	return &ResumeService{resumes: resumes, apps: apps, maxBytes: maxBytes, now: time.Now}
}

func (s *ResumeService) MaxBytes() int64 { return s.maxBytes }

// ResumeURL is where a stored résumé can be downloaded.
func ResumeURL(id string) string {
	return "/api/v1/resumes/" + id
}

// Upload stores the file under the sha256 of its content and records its
// metadata. Identical files share one blob. The stored content type comes
// from the file extension, never from the client.
func (s *ResumeService) Upload(ctx context.Context, ownerID, fileName string, data []byte) (*models.Resume, error) {
	if len(data) == 0 {
		return nil, invalid("resume file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, invalid(fmt.Sprintf("resume file exceeds %d bytes", s.maxBytes))
	}
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "." || fileName == "/" || fileName == "" {
		fileName = "resume"
	}
	contentType := detectContentType(fileName)

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	shared, err := s.resumes.HasBlob(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check blob: %w", err)
	}
	if !shared {
		if err := s.resumes.PutBlob(ctx, key, data, contentType); err != nil {
			return nil, fmt.Errorf("upload blob: %w", err)
		}
	}

	resume := &models.Resume{
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		BlobKey:     key,
		UploadedBy:  ownerID,
		CreatedAt:   timestamp(s.now()),
	}
	id, err := s.resumes.Create(ctx, resume)
	if err != nil {
		if !shared {
			if derr := s.resumes.DeleteBlob(ctx, key); derr != nil {
				err = errors.Join(err, fmt.Errorf("remove orphaned blob: %w", derr))
			}
		}
		return nil, err
	}
	resume.ID = id
	return resume, nil
}

// Download returns the file to its uploader, or to an organization that
// received an application carrying it.
func (s *ResumeService) Download(ctx context.Context, requesterID, role, id string) ([]byte, *models.Resume, error) {
	resume, err := s.resumes.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if resume == nil {
		return nil, nil, notFound("resume not found")
	}
	if resume.UploadedBy != requesterID {
		allowed, err := s.submittedTo(ctx, requesterID, role, id)
		if err != nil {
			return nil, nil, err
		}
		if !allowed {
			return nil, nil, forbidden("not allowed to view this resume")
		}
	}

	data, err := s.resumes.GetBlob(ctx, resume.BlobKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download blob: %w", err)
	}
	return data, resume, nil
}

func (s *ResumeService) submittedTo(ctx context.Context, orgID, role, id string) (bool, error) {
	if role != models.RoleOrganization {
		return false, nil
	}
	apps, err := s.apps.FindByOrganization(ctx, orgID, 0)
	if err != nil {
		return false, err
	}
	url := ResumeURL(id)
	for _, a := range apps {
		if a.ResumeURL == url {
			return true, nil
		}
	}
	return false, nil
}

func detectContentType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	types := map[string]string{
		".pdf":  "application/pdf",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".odt":  "application/vnd.oasis.opendocument.text",
		".rtf":  "application/rtf",
		".txt":  "text/plain",
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
	}
	if ct, ok := types[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
