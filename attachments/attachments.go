// Package attachments keeps provider file references usable across the
// provider's retention window by re-uploading expired files from durable
// storage.
package attachments

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentic/chatmodel"
	"github.com/effective-security/agentic/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentic", "attachments")

// ErrAttachmentRefresh is returned when an expired attachment could not be
// re-uploaded. The caller proceeds without the attachment.
var ErrAttachmentRefresh = errors.New("attachment refresh failed")

// ProviderWindow is how long the model provider retains uploaded files.
const ProviderWindow = 48 * time.Hour

// DefaultExpiryThreshold is the age at which an attachment is treated as
// expired. It sits inside the provider window so a reference is never used
// in the final hour of its life.
const DefaultExpiryThreshold = 47 * time.Hour

// BlobStore reads attachment bytes from durable storage by storage URI.
type BlobStore interface {
	Download(ctx context.Context, storageURI string) (io.ReadCloser, error)
}

// Uploader pushes attachment bytes to the model provider and returns the new
// provider file URI.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, mimeType string) (providerURI string, err error)
}

// Recorder persists a refreshed attachment so later turns see the new
// provider URI.
type Recorder interface {
	UpdateAttachment(ctx context.Context, chatID string, att chatmodel.Attachment) error
}

// Manager checks attachment freshness and refreshes expired references in
// place. The storage URI is the attachment's identity and never changes;
// only the provider URI and upload time are replaced.
type Manager struct {
	blobs    BlobStore
	uploader Uploader
	recorder Recorder

	threshold time.Duration
	// nowFn is swappable in tests.
	nowFn func() time.Time
}

// NewManager returns a Manager with the default expiry threshold.
func NewManager(blobs BlobStore, uploader Uploader, recorder Recorder) *Manager {
	return &Manager{
		blobs:     blobs,
		uploader:  uploader,
		recorder:  recorder,
		threshold: DefaultExpiryThreshold,
		nowFn:     time.Now,
	}
}

// WithThreshold overrides the expiry threshold.
func (m *Manager) WithThreshold(d time.Duration) *Manager {
	m.threshold = d
	return m
}

// IsExpired reports whether the attachment's provider reference is past the
// expiry threshold. Attachments with no recorded upload time are treated as
// expired.
func (m *Manager) IsExpired(att chatmodel.Attachment) bool {
	if att.UploadedAt.IsZero() {
		return true
	}
	return m.nowFn().Sub(att.UploadedAt) >= m.threshold
}

// EnsureValid returns the attachments of a turn with expired provider
// references refreshed. Attachments that fail to refresh are omitted, and a
// joined ErrAttachmentRefresh describes them; the returned slice is always
// usable.
func (m *Manager) EnsureValid(ctx context.Context, chatID string, atts []chatmodel.Attachment) ([]chatmodel.Attachment, error) {
	if len(atts) == 0 {
		return nil, nil
	}

	valid := make([]chatmodel.Attachment, 0, len(atts))
	var failed error
	for _, att := range atts {
		if !m.IsExpired(att) {
			valid = append(valid, att)
			continue
		}
		refreshed, err := m.refresh(ctx, chatID, att)
		if err != nil {
			metricskey.StatsAttachmentsRefreshFailed.IncrCounter(1)
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "attachment_refresh",
				"chat_id", chatID,
				"storage_uri", att.StorageURI,
				"err", err.Error())
			failed = errors.CombineErrors(failed, errors.WithMessagef(ErrAttachmentRefresh, "storage_uri=%s", att.StorageURI))
			continue
		}
		metricskey.StatsAttachmentsRefreshed.IncrCounter(1)
		valid = append(valid, refreshed)
	}
	return valid, failed
}

func (m *Manager) refresh(ctx context.Context, chatID string, att chatmodel.Attachment) (chatmodel.Attachment, error) {
	body, err := m.blobs.Download(ctx, att.StorageURI)
	if err != nil {
		return att, errors.WithMessage(err, "failed to download from durable storage")
	}
	defer body.Close()

	providerURI, err := m.uploader.Upload(ctx, body, att.MIMEType)
	if err != nil {
		return att, errors.WithMessage(err, "failed to upload to provider")
	}

	att.ProviderURI = providerURI
	att.UploadedAt = m.nowFn()

	if m.recorder != nil {
		if err := m.recorder.UpdateAttachment(ctx, chatID, att); err != nil {
			// The in-memory reference is already fresh; a persistence failure
			// only costs a re-upload on the next turn.
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "attachment_record",
				"chat_id", chatID,
				"storage_uri", att.StorageURI,
				"err", err.Error())
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"refreshed", att.StorageURI,
		"chat_id", chatID)
	return att, nil
}
