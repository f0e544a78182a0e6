package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/reportprinter/internal/gcp"
	"github.com/Lllllllleong/reportprinter/internal/models"
)

// Archiver keeps a record of every rendered report and its print outcome.
type Archiver interface {
	// Archive stores the artifact and returns the id of the new record.
	Archive(ctx context.Context, topic string, artifact *models.RenderedArtifact) (string, error)
	// UpdateStatus moves a record to status. errDetails may be empty.
	UpdateStatus(ctx context.Context, reportID, status, device, errDetails string) error
	Close() error
}

// GCSArchiver uploads artifacts to a bucket and tracks runs in Firestore.
type GCSArchiver struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	bucket          string
	collection      string
}

func NewGCSArchiver(ctx context.Context, projectID, bucket, collection string) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSArchiver: bucket cannot be empty")
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSArchiver{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		bucket:          bucket,
		collection:      collection,
	}, nil
}

func (a *GCSArchiver) Archive(ctx context.Context, topic string, artifact *models.RenderedArtifact) (string, error) {
	fileHash, err := calculateFileHash(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("failed to calculate file hash: %w", err)
	}
	objectName := artifactObjectName(fileHash)
	logCtx := slog.With("fileHash", fileHash, "gcsObject", objectName)

	if err := a.uploadArtifact(ctx, artifact.Path, objectName); err != nil {
		return "", err
	}

	record := models.ReportRecord{
		Topic:          topic,
		FileHash:       fileHash,
		ArtifactGCSUri: gcp.GCSURI(a.bucket, objectName),
		Status:         models.ReportStatusRendered,
		PageCount:      artifact.PageCount,
		CreatedAt:      time.Now(),
	}
	docRef, _, err := a.firestoreClient.Collection(a.collection).Add(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to create report record: %w", err)
	}
	logCtx.Info("Report archived.", "reportId", docRef.ID)
	return docRef.ID, nil
}

func (a *GCSArchiver) UpdateStatus(ctx context.Context, reportID, status, device, errDetails string) error {
	docRef := a.firestoreClient.Collection(a.collection).Doc(reportID)
	_, err := docRef.Update(ctx, statusUpdates(status, device, errDetails))
	return err
}

func (a *GCSArchiver) Close() error {
	var firstErr error
	if err := a.storageClient.Close(); err != nil {
		firstErr = err
	}
	if err := a.firestoreClient.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// uploadArtifact retries the upload with exponential backoff.
func (a *GCSArchiver) uploadArtifact(ctx context.Context, localPath, objectName string) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
		err := gcp.UploadFileAtomically(writeCtx, a.storageClient.Bucket(a.bucket), objectName, localPath, "application/pdf")
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", objectName, lastErr)
}

func statusUpdates(status, device, errDetails string) []firestore.Update {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if device != "" {
		updates = append(updates, firestore.Update{Path: "device", Value: device})
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	return updates
}

func artifactObjectName(fileHash string) string {
	return fmt.Sprintf("reports/%s.pdf", fileHash)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
