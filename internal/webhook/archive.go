package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"

	"leadflow_backend/internal/adapters/storage"
	"leadflow_backend/internal/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	payloadContentType = "application/json"
	payloadTimeLayout  = "20060102T150405.000000000Z"
)

// ErrPayloadNotFound means no archived payload exists under the given name.
var ErrPayloadNotFound = errors.New("archived payload not found")

var payloadFileRegex = regexp.MustCompile(`^\d{8}T\d{6}\.\d{9}Z\.json$`)

// ArchivedPayload is one stored webhook delivery of a lead.
type ArchivedPayload struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// PayloadArchiver stores raw webhook payloads after they were reconciled.
type PayloadArchiver struct {
	storage storage.StorageService
	bucket  string
	log     *logger.Logger
}

// NewPayloadArchiver creates an archiver writing to bucket.
func NewPayloadArchiver(storageSvc storage.StorageService, bucket string, log *logger.Logger) *PayloadArchiver {
	return &PayloadArchiver{storage: storageSvc, bucket: bucket, log: log}
}

// RegisterHandlers subscribes the archiver to reconciled webhook contacts.
func (a *PayloadArchiver) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.WebhookContactReceived{}.EventName(), a)
}

// Handle implements events.Handler.
func (a *PayloadArchiver) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.WebhookContactReceived)
	if !ok || len(e.Payload) == 0 {
		return nil
	}

	folder := payloadFolder(e.CompanyID, e.LeadID)
	fileName := e.OccurredAt().UTC().Format(payloadTimeLayout) + ".json"
	key, err := a.storage.UploadFile(ctx, a.bucket, folder, fileName, payloadContentType, bytes.NewReader(e.Payload), int64(len(e.Payload)))
	if err != nil {
		a.log.Error("webhook: failed to archive payload", "error", err, "lead_id", e.LeadID)
		return err
	}

	a.log.Debug("webhook: payload archived", "key", key, "lead_id", e.LeadID, "archived_at", time.Now().UTC())
	return nil
}

// List returns the archived deliveries of a lead, oldest first.
func (a *PayloadArchiver) List(ctx context.Context, companyID, leadID uuid.UUID) ([]ArchivedPayload, error) {
	objects, err := a.storage.ListFiles(ctx, a.bucket, payloadFolder(companyID, leadID))
	if err != nil {
		return nil, err
	}

	out := make([]ArchivedPayload, 0, len(objects))
	for _, obj := range objects {
		out = append(out, ArchivedPayload{
			File:       path.Base(obj.Key),
			Size:       obj.Size,
			ArchivedAt: obj.LastModified,
		})
	}
	return out, nil
}

// Open returns one archived delivery. The caller closes the reader.
func (a *PayloadArchiver) Open(ctx context.Context, companyID, leadID uuid.UUID, file string) (io.ReadCloser, error) {
	if !payloadFileRegex.MatchString(file) {
		return nil, ErrPayloadNotFound
	}

	body, err := a.storage.DownloadFile(ctx, a.bucket, storage.ObjectKey(payloadFolder(companyID, leadID), file))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrPayloadNotFound
	}
	return body, err
}

func payloadFolder(companyID, leadID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", companyID, leadID)
}
