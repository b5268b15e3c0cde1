package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/store"
)

func TestGetProfile(t *testing.T) {
	profiles := store.NewMemoryStore()
	svc := NewProfileService(logging.Nop(), profiles, nil, 0)
	ctx := context.Background()

	_, err := svc.GetProfile(ctx, "s1")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, AsServiceError(err).Code)
	assert.Equal(t, "s1", AsServiceError(err).Details["student_id"])

	rev, err := profiles.Save(ctx, "s1", profile.Update(profile.New(), formalRecord()), 0)
	require.NoError(t, err)

	result, err := svc.GetProfile(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", result.StudentID)
	assert.Equal(t, rev, result.Revision)
	assert.Equal(t, profile.SchemaVersion, result.Profile.SchemaVersion)
	assert.Equal(t, 1, result.Profile.TotalTexts)
	assert.Equal(t, 0.4, result.Profile.AverageSentiment)
}

func TestGetProfile_Errors(t *testing.T) {
	svc := NewProfileService(logging.Nop(), &brokenStore{ProfileStore: store.NewMemoryStore(), getErr: errUnavailable}, nil, 0)

	_, err := svc.GetProfile(context.Background(), "s1")
	assert.Equal(t, CodeStoreUnavailable, AsServiceError(err).Code)

	_, err = svc.GetProfile(context.Background(), "")
	assert.Equal(t, CodeInvalidRequest, AsServiceError(err).Code)
}

func TestDeleteStudent(t *testing.T) {
	profiles := store.NewMemoryStore()
	archive := store.NewMemorySubmissionStore()
	analysis := newTestService(t, profiles, AnalysisOptions{Submissions: archive})
	svc := NewProfileService(logging.Nop(), profiles, archive, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := analysis.Analyze(ctx, &AnalyzeInput{StudentID: "s1", Metrics: formalRecord()})
		require.NoError(t, err)
	}
	_, err := analysis.Analyze(ctx, &AnalyzeInput{StudentID: "s2", Metrics: formalRecord()})
	require.NoError(t, err)

	result, err := svc.DeleteStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, &DeleteResult{StudentID: "s1", ProfileDeleted: true, SubmissionsDeleted: 2}, result)

	_, err = svc.GetProfile(ctx, "s1")
	assert.Equal(t, CodeNotFound, AsServiceError(err).Code)
	remaining, err := archive.List(ctx, "s2", store.SubmissionQuery{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	_, err = svc.DeleteStudent(ctx, "s1")
	assert.Equal(t, CodeNotFound, AsServiceError(err).Code)

	// A deleted student starts over from an empty baseline.
	again, err := analysis.Analyze(ctx, &AnalyzeInput{StudentID: "s1", Metrics: casualRecord()})
	require.NoError(t, err)
	assert.True(t, again.ProfileSaved)
	assert.Equal(t, 1, again.Profile.TotalTexts)
}

func TestDeleteStudent_ArchiveOnly(t *testing.T) {
	archive := store.NewMemorySubmissionStore()
	require.NoError(t, archive.Record(context.Background(), &store.SubmissionRecord{SubmissionID: "x", StudentID: "s1"}))
	svc := NewProfileService(logging.Nop(), store.NewMemoryStore(), archive, 0)

	result, err := svc.DeleteStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, result.ProfileDeleted)
	assert.Equal(t, int64(1), result.SubmissionsDeleted)
}

func TestDeleteStudent_Errors(t *testing.T) {
	svc := NewProfileService(logging.Nop(), &brokenStore{ProfileStore: store.NewMemoryStore(), deleteErr: errUnavailable}, nil, 0)

	_, err := svc.DeleteStudent(context.Background(), "s1")
	assert.Equal(t, CodeStoreUnavailable, AsServiceError(err).Code)

	_, err = svc.DeleteStudent(context.Background(), " ")
	assert.Equal(t, CodeInvalidRequest, AsServiceError(err).Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		svc     *ProfileService
		want    HealthStatus
		healthy bool
	}{
		{
			name:    "archive disabled",
			svc:     NewProfileService(logging.Nop(), store.NewMemoryStore(), nil, 0),
			want:    HealthStatus{Profiles: StoreOK, Submissions: StoreDisabled},
			healthy: true,
		},
		{
			name:    "both reachable",
			svc:     NewProfileService(logging.Nop(), store.NewMemoryStore(), store.NewMemorySubmissionStore(), 0),
			want:    HealthStatus{Profiles: StoreOK, Submissions: StoreOK},
			healthy: true,
		},
		{
			name: "profile store down",
			svc: NewProfileService(logging.Nop(),
				&brokenStore{ProfileStore: store.NewMemoryStore(), pingErr: errUnavailable}, nil, 0),
			want:    HealthStatus{Profiles: StoreUnavailable, Submissions: StoreDisabled},
			healthy: false,
		},
		{
			name: "archive down",
			svc: NewProfileService(logging.Nop(), store.NewMemoryStore(),
				&brokenArchive{SubmissionStore: store.NewMemorySubmissionStore(), pingErr: errUnavailable}, 0),
			want:    HealthStatus{Profiles: StoreOK, Submissions: StoreUnavailable},
			healthy: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.svc.Health(context.Background())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.healthy, got.Healthy())
		})
	}
}
