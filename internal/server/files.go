package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"alignlab/internal/policy"
	"alignlab/internal/storage"
	"alignlab/pkg/types"
)

const maxUploadBytes = 64 << 20

// Extensions accepted for the final deliverable.
var deliverableExtensions = map[string]bool{"stl": true, "zip": true}

func (s *Service) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if err := policy.CanUploadIntake(actor, request); err != nil {
		s.forbidden(w, "You are not authorized to upload files to this request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.validationError(w, "Malformed multipart body")
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		s.validationError(w, "No files uploaded")
		return
	}

	for fieldName, headers := range r.MultipartForm.File {
		// The field name prefix declares the file type; anything we do not
		// recognize is skipped without failing the batch.
		fileType, ok := types.IntakeFileType(fieldName)
		if !ok {
			continue
		}

		for _, header := range headers {
			key := storage.IntakeKey(request.ID, fileType, header.Filename, time.Now())
			if err := s.storeUpload(r, request.ID, header, fileType, key); err != nil {
				s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to store intake file")
				s.serverError(w)
				return
			}
		}
	}

	// The first intake upload moves the request into production. Later
	// uploads find the request already in_progress and leave it alone.
	if next, changed := policy.NextStatusAfterIntake(request.Status); changed {
		if err := s.requests.SetStatus(ctx, request.ID, next); err != nil {
			s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to advance request after intake")
			s.serverError(w)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Files uploaded successfully"})
}

func (s *Service) handleUploadFinalSTL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.validationError(w, "Malformed multipart body")
		return
	}

	file, header, err := r.FormFile("stl")
	if err != nil {
		s.validationError(w, "No STL file provided")
		return
	}
	file.Close()

	extension := storage.Extension(header.Filename)
	if !deliverableExtensions[extension] {
		s.validationError(w, "Invalid file extension. Allowed: stl, zip")
		return
	}

	key := storage.DeliverableKey(request.ID, extension)
	record, err := s.storeDeliverable(r, request.ID, header, key, extension)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to store final deliverable")
		s.serverError(w)
		return
	}

	if err := s.requests.SetStatus(ctx, request.ID, types.StatusToValidate); err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to move request to validation")
		s.serverError(w)
		return
	}
	request.Status = types.StatusToValidate

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Final STL file uploaded successfully",
		"file":    record,
		"request": request,
	})
}

func (s *Service) handleDownloadSTL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if err := policy.CanRead(actor, request); err != nil {
		s.forbidden(w, "You are not authorized to download files for this request")
		return
	}

	if err := policy.CanDownloadDeliverable(actor, request); err != nil {
		s.forbidden(w, "The deliverable can only be downloaded once the request is completed")
		return
	}

	file, err := s.files.LatestFinalFile(ctx, request.ID)
	if err != nil {
		if errors.Is(err, types.ErrFileNotFound) {
			s.notFound(w, "No deliverable found for this request")
			return
		}
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to load final file")
		s.serverError(w)
		return
	}

	signedURL, err := s.storage.SignedURL(ctx, file.FilePath, time.Hour)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to sign deliverable url")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Deliverable ready for download",
		"url":     signedURL,
		"file":    file,
	})
}

// storeUpload pushes one intake file to object storage and records its
// metadata row. If the row insert fails the blob is deleted again so the
// two stay consistent.
func (s *Service) storeUpload(r *http.Request, requestID string, header *multipart.FileHeader, fileType types.FileType, key string) error {
	ctx := r.Context()

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.storage.Upload(ctx, key, file, header.Size, contentType)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	record := &types.RequestFile{
		RequestID: requestID,
		FileName:  header.Filename,
		FilePath:  key,
		FileType:  fileType,
		FileSize:  header.Size,
		MimeType:  contentType,
		URL:       url,
	}

	if err := s.files.CreateFile(ctx, record); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.WithError(delErr).WithField("key", key).Error("failed to clean up orphaned blob")
		}
		return fmt.Errorf("record file %s: %w", key, err)
	}

	return nil
}

func (s *Service) storeDeliverable(r *http.Request, requestID string, header *multipart.FileHeader, key, extension string) (*types.RequestFile, error) {
	ctx := r.Context()

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/" + extension
	}

	url, err := s.storage.Upload(ctx, key, file, header.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	record := &types.RequestFile{
		RequestID: requestID,
		FileName:  header.Filename,
		FilePath:  key,
		FileType:  types.FileTypeFinal,
		FileSize:  header.Size,
		MimeType:  contentType,
		URL:       url,
	}

	if err := s.files.CreateFile(ctx, record); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.WithError(delErr).WithField("key", key).Error("failed to clean up orphaned blob")
		}
		return nil, fmt.Errorf("record file %s: %w", key, err)
	}

	return record, nil
}
