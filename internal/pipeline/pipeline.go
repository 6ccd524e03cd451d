// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"imgedit/internal/models"
)

// Uploader pushes image bytes to object storage and resolves a fetchable URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName string, owner *uuid.UUID) (string, error)
	Probe(ctx context.Context) error
}

// Invoker runs the remote edit and returns the edited-image URL.
type Invoker interface {
	Invoke(ctx context.Context, imageURL, prompt string) (string, error)
}

// History persists completed edit records.
type History interface {
	Append(ctx context.Context, rec *models.EditRecord) error
}

// Pipeline runs one full edit cycle:
// validate -> probe -> upload -> invoke -> persist.
// Validation and upload/edit failures abort and surface to the caller; a
// history persistence failure does not, the user still gets their edit.
type Pipeline struct {
	uploader Uploader
	invoker  Invoker
	history  History
	log      *slog.Logger
}

func New(uploader Uploader, invoker Invoker, history History, log *slog.Logger) *Pipeline {
	return &Pipeline{uploader: uploader, invoker: invoker, history: history, log: log}
}

// EditInput carries one edit request through the pipeline.
type EditInput struct {
	Data     []byte
	FileName string
	Prompt   string
	Owner    *uuid.UUID
}

// Edit uploads the image, invokes the remote edit and appends a history
// record. On success the returned record is complete: id, both URLs and the
// trimmed prompt are all non-empty.
func (p *Pipeline) Edit(ctx context.Context, in EditInput) (*models.EditRecord, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, models.NewValidationError("prompt", "describe the edit you want")
	}
	if len(in.Data) == 0 {
		return nil, models.NewValidationError("image", "select an image to edit")
	}

	// Advisory reachability check. Only transport-level failures abort;
	// anything the server answered is the upload's problem to classify.
	if err := p.uploader.Probe(ctx); err != nil {
		return nil, &models.StageError{Stage: models.StageUpload, Err: err}
	}

	originalURL, err := p.uploader.Upload(ctx, in.Data, in.FileName, in.Owner)
	if err != nil {
		return nil, &models.StageError{Stage: models.StageUpload, Err: err}
	}

	editedURL, err := p.invoker.Invoke(ctx, originalURL, prompt)
	if err != nil {
		return nil, &models.StageError{Stage: models.StageEdit, Err: err}
	}

	rec := &models.EditRecord{
		ID:               uuid.New().String(),
		OwnerID:          in.Owner,
		Prompt:           prompt,
		OriginalImageURL: originalURL,
		EditedImageURL:   editedURL,
		CreatedAt:        time.Now().UTC(),
	}

	// History is best-effort: losing the record must not fail the edit.
	if err := p.history.Append(ctx, rec); err != nil {
		p.log.WarnContext(ctx, "history append failed",
			slog.String("record_id", rec.ID), slog.Any("error", err))
	}

	p.log.InfoContext(ctx, "edit completed",
		slog.String("record_id", rec.ID), slog.String("edited_url", editedURL))
	return rec, nil
}
