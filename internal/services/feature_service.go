// Package services – FeatureService
//
// This file implements the FeatureService, which owns the feature catalog:
// creating and editing feature requests, validating their fields, moving them
// through the status lifecycle and normalizing ticket links. Ranking by votes
// lives in ranking.go; vote bookkeeping in vote_service.go.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
	"github.com/tbourn/go-wishlist-backend/internal/observability"
	"github.com/tbourn/go-wishlist-backend/internal/search"
	"github.com/tbourn/go-wishlist-backend/internal/ticket"
)

// Field limits, in runes.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 255
	CategoryMaxLen    = 255
	DescriptionMaxLen = 5000
	// TicketURLMaxLen bounds the stored link, after key expansion.
	TicketURLMaxLen   = 2048
)

// FeatureRepo defines the repository contract required by FeatureService.
type FeatureRepo interface {
	CreateFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error
	GetFeature(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeatureRequest, error)
	SaveFeature(ctx context.Context, db *gorm.DB, f *domain.FeatureRequest) error
	UpdateFeatureStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error
	ListFeatures(ctx context.Context, db *gorm.DB, status *domain.Status) ([]domain.FeatureRequest, error)
}

// CreateFeatureInput carries the user-editable fields of a new request.
type CreateFeatureInput struct {
	Title       string
	Description string
	Category    string
}

// UpdateFeatureInput carries a full admin edit. Every field is written.
type UpdateFeatureInput struct {
	Title       string
	Description string
	Category    string
	Status      string
	TicketURL   string
}

// FeatureService provides catalog operations and enforces field rules.
type FeatureService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the feature repository used by this service.
	Repo FeatureRepo
	// IDs generates feature ids.
	IDs *snowflake.Node

	// TicketBaseURL expands bare ticket keys on save. Blank keeps keys as typed.
	TicketBaseURL string
	// SimilarMinScore is the minimum overlap score for Similar results.
	SimilarMinScore float64
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewFeatureService constructs a FeatureService with default settings.
func NewFeatureService(db *gorm.DB, r FeatureRepo, ids *snowflake.Node, ticketBaseURL string) *FeatureService {
	return &FeatureService{
		DB:              db,
		Repo:            r,
		IDs:             ids,
		TicketBaseURL:   strings.TrimSpace(ticketBaseURL),
		SimilarMinScore: 0.15,
		Now:             time.Now,
	}
}

// Create validates in and stores a new OPEN feature attributed to createdBy.
// A *ValidationError lists every failing field.
func (s *FeatureService) Create(ctx context.Context, in CreateFeatureInput, createdBy string) (*domain.FeatureRequest, error) {
	ctx, span := observability.StartSpan(ctx, "FeatureService.Create")
	defer span.End()

	title, description, category, verr := validateFields(in.Title, in.Description, in.Category)
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	f := &domain.FeatureRequest{
		ID:          s.IDs.Generate(),
		Title:       title,
		Description: description,
		Category:    category,
		Status:      domain.StatusOpen,
		CreatedBy:   createdBy,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.CreateFeature(ctx, s.DB, f); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.ObserveFeatureCreated()
	return f, nil
}

// Update replaces title, description, category, status and ticket link of
// feature id. Ticket keys are expanded against TicketBaseURL. Either every
// field is written or none is.
func (s *FeatureService) Update(ctx context.Context, id snowflake.ID, in UpdateFeatureInput) (*domain.FeatureRequest, error) {
	ctx, span := observability.StartSpan(ctx, "FeatureService.Update")
	defer span.End()

	title, description, category, verr := validateFields(in.Title, in.Description, in.Category)
	status, ok := domain.ParseStatus(in.Status)
	if !ok {
		verr.add("status", "status must be one of OPEN, IN_PROGRESS, DONE, REJECTED")
	}
	var ticketURL string
	if ref, terr := ticket.Parse(in.TicketURL); terr != nil {
		verr.add("ticket_url", terr.Error())
	} else {
		ticketURL = ref.Resolve(s.TicketBaseURL)
		if utf8.RuneCountInString(ticketURL) > TicketURLMaxLen {
			verr.add("ticket_url", "ticket link must be at most 2048 characters")
		}
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	var out *domain.FeatureRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.Repo.GetFeature(ctx, tx, id)
		if err != nil {
			if isNotFound(err) {
				return ErrFeatureNotFound
			}
			return err
		}
		prev := f.Status
		f.Title = title
		f.Description = description
		f.Category = category
		f.Status = status
		f.TicketURL = ticketURL
		if err := s.Repo.SaveFeature(ctx, tx, f); err != nil {
			if isNotFound(err) {
				return ErrFeatureNotFound
			}
			return err
		}
		if prev != status {
			observability.ObserveStatusChange(string(status))
		}
		out = f
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return out, nil
}

// UpdateStatus changes only the status of feature id. Every transition is
// allowed, including out of DONE and REJECTED.
func (s *FeatureService) UpdateStatus(ctx context.Context, id snowflake.ID, raw string) (*domain.FeatureRequest, error) {
	ctx, span := observability.StartSpan(ctx, "FeatureService.UpdateStatus", attribute.String("feature.id", id.String()))
	defer span.End()

	status, ok := domain.ParseStatus(raw)
	if !ok {
		return nil, ErrInvalidStatus
	}
	var out *domain.FeatureRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Repo.UpdateFeatureStatus(ctx, tx, id, status); err != nil {
			if isNotFound(err) {
				return ErrFeatureNotFound
			}
			return err
		}
		f, err := s.Repo.GetFeature(ctx, tx, id)
		if err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("feature.status", string(status)))
	observability.ObserveStatusChange(string(status))
	return out, nil
}

// Get returns feature id or ErrFeatureNotFound.
func (s *FeatureService) Get(ctx context.Context, id snowflake.ID) (*domain.FeatureRequest, error) {
	f, err := s.Repo.GetFeature(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrFeatureNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListAll returns every feature in creation order, optionally restricted to
// one status. Ordering by votes is the caller's job (RankByVotesDescending).
func (s *FeatureService) ListAll(ctx context.Context, filter *domain.Status) ([]domain.FeatureRequest, error) {
	if filter != nil && !filter.Valid() {
		return nil, ErrInvalidStatus
	}
	items, err := s.Repo.ListFeatures(ctx, s.DB, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.FeatureRequest{}
	}
	return items, nil
}

// Similar returns up to k features whose title or description overlaps text,
// best match first. Used to warn about likely duplicates before filing.
func (s *FeatureService) Similar(ctx context.Context, text string, k int) ([]domain.FeatureRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []domain.FeatureRequest{}, nil
	}
	all, err := s.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	idx := search.New(featureDocs(all), search.WithStopwords(stopwords), search.WithMinScore(s.SimilarMinScore))
	byID := make(map[snowflake.ID]domain.FeatureRequest, len(all))
	for _, f := range all {
		byID[f.ID] = f
	}
	hits := idx.TopK(text, k)
	out := make([]domain.FeatureRequest, 0, len(hits))
	for _, h := range hits {
		out = append(out, byID[h.ID])
	}
	return out, nil
}

// FilterByQuery keeps the features whose title, description or category
// match q, preserving their order. A blank q returns features unchanged.
func FilterByQuery(features []domain.FeatureRequest, q string) []domain.FeatureRequest {
	if strings.TrimSpace(q) == "" {
		return features
	}
	hits := search.New(featureDocs(features)).Search(q)
	keep := make(map[snowflake.ID]struct{}, len(hits))
	for _, h := range hits {
		keep[h.ID] = struct{}{}
	}
	out := make([]domain.FeatureRequest, 0, len(hits))
	for _, f := range features {
		if _, ok := keep[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}

func featureDocs(features []domain.FeatureRequest) []search.Document {
	docs := make([]search.Document, len(features))
	for i, f := range features {
		docs[i] = search.Document{ID: f.ID, Text: f.Title + "\n" + f.Category + "\n" + f.Description}
	}
	return docs
}

// stopwords are dropped from similarity scoring. The demo catalog is German,
// so both languages are covered.
var stopwords = []string{
	"a", "an", "and", "for", "in", "of", "on", "the", "to", "with",
	"als", "auf", "das", "der", "die", "ein", "eine", "für", "mit", "und", "von", "zu",
}

// validateFields normalizes the shared text fields and collects their errors.
func validateFields(rawTitle, rawDescription, rawCategory string) (title, description, category string, verr *ValidationError) {
	verr = &ValidationError{}

	title = normalizeTitle(rawTitle)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		verr.add("title", "title is required")
	case n < TitleMinLen || n > TitleMaxLen:
		verr.add("title", "title must be between 3 and 255 characters")
	}

	description = strings.TrimSpace(norm.NFC.String(rawDescription))
	if utf8.RuneCountInString(description) > DescriptionMaxLen {
		verr.add("description", "description must be at most 5000 characters")
	}

	category = normalizeTitle(rawCategory)
	if utf8.RuneCountInString(category) > CategoryMaxLen {
		verr.add("category", "category must be at most 255 characters")
	}
	return title, description, category, verr
}

// normalizeTitle applies Unicode NFC, trims, and collapses runs of whitespace
// to one space.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

func (s *FeatureService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
