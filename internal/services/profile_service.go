package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/store"
	"github.com/tonetrace/tonetrace/internal/utils"
)

// Store states reported by Health
const (
	StoreOK          = "ok"
	StoreUnavailable = "unavailable"
	StoreDisabled    = "disabled"
)

// ProfileService reads and deletes stored student data
type ProfileService struct {
	logger      *logging.Logger
	profiles    store.ProfileStore
	submissions store.SubmissionStore
	timeout     time.Duration
}

// NewProfileService creates a new ProfileService. submissions may be nil
// when the archive is disabled.
func NewProfileService(logger *logging.Logger, profiles store.ProfileStore, submissions store.SubmissionStore, timeout time.Duration) *ProfileService {
	if timeout <= 0 {
		timeout = utils.StoreOperationTimeout
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &ProfileService{
		logger:      logger,
		profiles:    profiles,
		submissions: submissions,
		timeout:     timeout,
	}
}

// ProfileResult is a stored profile and its revision
type ProfileResult struct {
	StudentID string            `json:"student_id"`
	Revision  int64             `json:"revision"`
	Profile   *profile.Document `json:"profile"`
}

// GetProfile returns the persisted form of a student's profile
func (s *ProfileService) GetProfile(ctx context.Context, studentID string) (*ProfileResult, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "student_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.profiles.Get(ctx, studentID)
	if err != nil {
		se := lookupFailure(studentID, err)
		if se.Code != CodeNotFound {
			s.logger.Error("Failed to load profile", "student_id", studentID, "error", err)
		}
		return nil, se
	}

	return &ProfileResult{
		StudentID: studentID,
		Revision:  snap.Revision,
		Profile:   snap.Profile.ToDocument(),
	}, nil
}

// DeleteResult reports what DeleteStudent removed
type DeleteResult struct {
	StudentID          string `json:"student_id"`
	ProfileDeleted     bool   `json:"profile_deleted"`
	SubmissionsDeleted int64  `json:"submissions_deleted"`
}

// DeleteStudent removes a student's profile and archived submissions. A
// student with neither is NOT_FOUND.
func (s *ProfileService) DeleteStudent(ctx context.Context, studentID string) (*DeleteResult, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, NewServiceError(CodeInvalidRequest, "student_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	log := s.logger.WithContext(logging.WithStudentID(ctx, studentID))

	result := &DeleteResult{StudentID: studentID}
	err := s.profiles.Delete(ctx, studentID)
	switch {
	case err == nil:
		result.ProfileDeleted = true
	case !errors.Is(err, store.ErrNotFound):
		log.Error("Failed to delete profile", "error", err)
		return nil, NewServiceErrorWithDetails(CodeStoreUnavailable, "Failed to delete profile", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if s.submissions != nil {
		n, err := s.submissions.DeleteStudent(ctx, studentID)
		if err != nil {
			log.Error("Failed to delete submissions", "error", err, "profile_deleted", result.ProfileDeleted)
			return nil, NewServiceErrorWithDetails(CodeStoreUnavailable, "Failed to delete submissions", map[string]interface{}{
				"error":           err.Error(),
				"profile_deleted": result.ProfileDeleted,
			})
		}
		result.SubmissionsDeleted = n
	}

	if !result.ProfileDeleted && result.SubmissionsDeleted == 0 {
		return nil, NewServiceErrorWithDetails(CodeNotFound, "Student not found", map[string]interface{}{
			"student_id": studentID,
		})
	}
	log.Info("Student data deleted",
		"profile_deleted", result.ProfileDeleted,
		"submissions_deleted", result.SubmissionsDeleted)
	return result, nil
}

// HealthStatus is the reachability of each backing store
type HealthStatus struct {
	Profiles    string `json:"profiles"`
	Submissions string `json:"submissions"`
}

// Healthy reports whether every enabled store answered
func (h HealthStatus) Healthy() bool {
	return h.Profiles == StoreOK && h.Submissions != StoreUnavailable
}

// Health pings the profile store and the submission archive
func (s *ProfileService) Health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status := HealthStatus{Profiles: s.ping(ctx, "profiles", s.profiles), Submissions: StoreDisabled}
	if s.submissions != nil {
		status.Submissions = s.ping(ctx, "submissions", s.submissions)
	}
	return status
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *ProfileService) ping(ctx context.Context, name string, p pinger) string {
	if err := p.Ping(ctx); err != nil {
		s.logger.Warn("Store unreachable", "store", name, "error", err)
		return StoreUnavailable
	}
	return StoreOK
}
