package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unipath/unipath-api/internal/models"
	appErrors "github.com/unipath/unipath-api/pkg/errors"
	"github.com/unipath/unipath-api/pkg/export"
	"github.com/unipath/unipath-api/pkg/storage"
)

type recommendationsReader interface {
	GetMatches(ctx context.Context, userID string) ([]models.MatchDetail, bool, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte

	// DownloadToken grants a later re-download of the archived copy.
	// Empty when archiving is disabled.
	DownloadToken string
	TokenExpires  time.Time
}

// ExportService renders saved recommendations as downloadable documents and
// archives each rendered file for tokenized re-download.
type ExportService struct {
	matches recommendationsReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	enabled bool
	logger  *zap.Logger
}

// NewExportService constructs the export service. Store and signer may be nil
// to disable archiving.
func NewExportService(matches recommendationsReader, store *storage.LocalStorage, signer *storage.SignedURLSigner, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		matches: matches,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		store:   store,
		signer:  signer,
		enabled: enabled,
		logger:  logger,
	}
}

// Enabled reports whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// Recommendations renders the user's saved recommendations as csv or pdf.
func (s *ExportService) Recommendations(ctx context.Context, userID, format string) (*ExportFile, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	matches, _, err := s.matches.GetMatches(ctx, userID)
	if err != nil {
		return nil, err
	}
	dataset := recommendationsDataset(matches)

	var file *ExportFile
	switch strings.ToLower(format) {
	case "csv", "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		file = &ExportFile{
			FileName:    fmt.Sprintf("recommendations-%s.csv", userID),
			ContentType: "text/csv",
			Content:     content,
		}
	case "pdf":
		content, err := s.pdf.Render(dataset, "University Recommendations")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		file = &ExportFile{
			FileName:    fmt.Sprintf("recommendations-%s.pdf", userID),
			ContentType: "application/pdf",
			Content:     content,
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	s.archive(userID, file)
	return file, nil
}

// archive stores a copy of the rendered file and attaches a signed download
// token. Archiving failures are logged, never surfaced: the inline download
// still succeeds.
func (s *ExportService) archive(userID string, file *ExportFile) {
	if s.store == nil || s.signer == nil {
		return
	}
	relPath := path.Join(userID, file.FileName)
	if _, err := s.store.Save(relPath, file.Content); err != nil {
		s.logger.Warn("failed to archive export", zap.String("user_id", userID), zap.Error(err))
		return
	}
	token, expires, err := s.signer.Generate(uuid.NewString(), relPath)
	if err != nil {
		s.logger.Warn("failed to sign export download", zap.String("user_id", userID), zap.Error(err))
		return
	}
	file.DownloadToken = token
	file.TokenExpires = expires
}

// Download resolves a signed token to the archived file contents.
func (s *ExportService) Download(token string) (*ExportFile, error) {
	if !s.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export archive not configured")
	}

	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	handle, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	defer handle.Close() //nolint:errcheck

	content, err := io.ReadAll(handle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read archived export")
	}

	return &ExportFile{
		FileName:    path.Base(relPath),
		ContentType: contentTypeFor(relPath),
		Content:     content,
	}, nil
}

// CleanupArchive drops archived exports older than the TTL.
func (s *ExportService) CleanupArchive(ttl time.Duration) {
	if s.store == nil {
		return
	}
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("export archive cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("export archive cleaned", zap.Int("removed", len(deleted)))
	}
}

func recommendationsDataset(matches []models.MatchDetail) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"University", "Country", "Match Score", "Key Factors", "Model Version"},
		Rows:    make([]map[string]string, 0, len(matches)),
	}
	for i := range matches {
		match := &matches[i]
		factors := ""
		if reasoning := match.ParsedReasoning(); reasoning != nil {
			factors = strings.Join(reasoning.Factors, "; ")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"University":    match.UniversityName,
			"Country":       match.UniversityCountry,
			"Match Score":   match.MatchScore,
			"Key Factors":   factors,
			"Model Version": match.ModelVersion,
		})
	}
	return dataset
}

func contentTypeFor(relPath string) string {
	if strings.HasSuffix(relPath, ".pdf") {
		return "application/pdf"
	}
	return "text/csv"
}
