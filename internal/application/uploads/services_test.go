package uploads

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rightsdesk/internal/application/apptest"
	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
)

func newService() (*Service, *apptest.Store, *apptest.Analyses) {
	store := apptest.NewStore()
	an := apptest.NewAnalyses()
	return &Service{
		Repo:     apptest.NewUploads(),
		Analyses: an,
		Store:    store,
		Clock:    apptest.Clock{T: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		MaxBytes: 1024,
	}, store, an
}

func upload(t *testing.T, s *Service, user, name, body string) *domainuploads.Upload {
	t.Helper()
	u, err := s.Upload(context.Background(), UploadCommand{
		UserID:      user,
		FileType:    domainuploads.FileTypeArticle,
		FileName:    name,
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	return u
}

func TestUpload_StoresObjectAndRecord(t *testing.T) {
	s, store, _ := newService()
	u := upload(t, s, "u-1", "essay.txt", "hello world")

	assert.Equal(t, "u-1/"+string(u.ID)+"/essay.txt", u.ObjectKey)
	assert.Equal(t, "http://store.test/uploads/"+u.ObjectKey, u.FileURL)
	assert.Equal(t, []byte("hello world"), store.Objects[u.ObjectKey])
	assert.Equal(t, int64(11), u.SizeBytes)

	got, err := s.Repo.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "essay.txt", got.FileName)
}

func TestUpload_TooLarge(t *testing.T) {
	s, store, _ := newService()
	_, err := s.Upload(context.Background(), UploadCommand{
		UserID: "u-1", FileType: domainuploads.FileTypeVideo, FileName: "big.mp4",
		Size: 2048, Body: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, store.Objects)
}

func TestUpload_SaveFailureRemovesObject(t *testing.T) {
	s, store, _ := newService()
	s.Repo.(*apptest.Uploads).Err = assert.AnError

	_, err := s.Upload(context.Background(), UploadCommand{
		UserID: "u-1", FileType: domainuploads.FileTypeArticle, FileName: "a.txt",
		Size: 1, Body: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, store.Objects)
}

func TestListAndGet_IncludeLatestAnalysis(t *testing.T) {
	s, _, an := newService()
	ctx := context.Background()
	u := upload(t, s, "u-1", "a.txt", "x")
	upload(t, s, "u-2", "b.txt", "y")

	base := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, an.Save(ctx, &domainanalyses.Analysis{ID: "old", UploadID: string(u.ID), UserID: "u-1",
		Result: domainanalyses.Result{LicensingSummary: "first", RiskScore: 10}, CreatedAt: base}))
	require.NoError(t, an.Save(ctx, &domainanalyses.Analysis{ID: "new", UploadID: string(u.ID), UserID: "u-1",
		Result: domainanalyses.Result{LicensingSummary: "second", RiskScore: 50}, CreatedAt: base.Add(time.Hour)}))

	list, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Analysis)
	assert.Equal(t, "second", list[0].Analysis.LicensingSummary)
	assert.Equal(t, 50, list[0].Analysis.RiskScore)

	v, err := s.Get(ctx, "u-1", u.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalyses.AnalysisID("new"), v.Analysis.ID)
}

func TestGet_Ownership(t *testing.T) {
	s, _, _ := newService()
	u := upload(t, s, "u-1", "a.txt", "x")

	_, err := s.Get(context.Background(), "u-2", u.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.Get(context.Background(), "u-1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RemovesObjectAnalysesAndRecord(t *testing.T) {
	s, store, an := newService()
	ctx := context.Background()
	u := upload(t, s, "u-1", "a.txt", "x")
	require.NoError(t, an.Save(ctx, &domainanalyses.Analysis{ID: "a1", UploadID: string(u.ID), UserID: "u-1"}))

	assert.ErrorIs(t, s.Delete(ctx, "u-2", u.ID), domain.ErrForbidden)
	require.NoError(t, s.Delete(ctx, "u-1", u.ID))

	assert.Empty(t, store.Objects)
	assert.Empty(t, an.Items)
	_, err := s.Repo.Get(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type recordDeleteFails struct{ *apptest.Uploads }

func (recordDeleteFails) Delete(context.Context, domainuploads.UploadID) error { return assert.AnError }

func TestDelete_RecordFailureKeepsObject(t *testing.T) {
	s, store, _ := newService()
	ctx := context.Background()
	u := upload(t, s, "u-1", "a.txt", "x")
	s.Repo = recordDeleteFails{s.Repo.(*apptest.Uploads)}

	assert.ErrorIs(t, s.Delete(ctx, "u-1", u.ID), assert.AnError)
	assert.Contains(t, store.Objects, u.ObjectKey)
}

type objectDeleteFails struct{ *apptest.Store }

func (objectDeleteFails) Delete(context.Context, string) error { return assert.AnError }

func TestDelete_ObjectFailureStillRemovesRecord(t *testing.T) {
	s, store, _ := newService()
	ctx := context.Background()
	u := upload(t, s, "u-1", "a.txt", "x")
	s.Store = objectDeleteFails{store}

	require.NoError(t, s.Delete(ctx, "u-1", u.ID))
	_, err := s.Repo.Get(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, store.Objects, u.ObjectKey)
}
