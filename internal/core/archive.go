package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"venueadmin/internal/blob"
	"venueadmin/internal/draft"
	"venueadmin/pkg/domain"
)

const (
	archivePrefix = "baselines"
	archiveStamp  = "20060102T150405.000000000Z"
)

// ErrArchiveDisabled is returned by archive reads when no blob store is
// configured.
var ErrArchiveDisabled = errors.New("baseline archive disabled")

// ErrInvalidArchiveParent is returned for parent ids that cannot form a
// single path segment of an archive key.
var ErrInvalidArchiveParent = errors.New("invalid archive parent id")

// ArchivePrefix returns the blob key prefix of one collection's snapshots.
func ArchivePrefix(kind domain.EntityKind, parentID string) (string, error) {
	if parentID == "" || parentID == "." || strings.Contains(parentID, "/") || strings.Contains(parentID, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidArchiveParent, parentID)
	}
	return path.Join(archivePrefix, string(kind), parentID) + "/", nil
}

// archiveCommit stores the committed baseline. Failures are logged and never
// fail the save that triggered them.
func (s *Service) archiveCommit(ctx context.Context, commit draft.Commit) {
	ctx, done := s.instrument(context.WithoutCancel(ctx), "archive_"+commit.Kind)
	raw, err := json.Marshal(commit.Baseline)
	if err != nil {
		done(err)
		s.logger.Error("encode baseline snapshot", "kind", commit.Kind, "parent", commit.ParentID, "error", err)
		return
	}
	prefix, err := ArchivePrefix(domain.EntityKind(commit.Kind), commit.ParentID)
	if err != nil {
		done(err)
		s.logger.Warn("archive baseline", "kind", commit.Kind, "parent", commit.ParentID, "error", err)
		return
	}
	key := prefix + s.clock.Now().UTC().Format(archiveStamp) + ".json"
	info, err := s.archive.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"kind":      commit.Kind,
			"parent_id": commit.ParentID,
			"summary":   commit.Summary,
		},
	})
	done(err)
	if err != nil {
		s.logger.Warn("archive baseline", "key", key, "error", err)
		return
	}
	s.logger.Info("baseline archived", "key", info.Key, "driver", s.archive.Driver(), "summary", commit.Summary)
}

// ArchivedBaselines lists the stored snapshots of one collection, oldest
// first.
func (s *Service) ArchivedBaselines(ctx context.Context, kind domain.EntityKind, parentID string) ([]blob.Info, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	prefix, err := ArchivePrefix(kind, parentID)
	if err != nil {
		return nil, err
	}
	return s.archive.List(ctx, prefix)
}

// ReadArchivedBaseline returns the JSON document stored under key.
func (s *Service) ReadArchivedBaseline(ctx context.Context, key string) (json.RawMessage, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	_, rc, err := s.archive.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}
