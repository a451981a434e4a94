// Package apptest holds in-memory repositories and stores for service tests.
package apptest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainrequests "github.com/bryanwahyu/rightsdesk/internal/domain/requests"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
	domainusers "github.com/bryanwahyu/rightsdesk/internal/domain/users"
)

type Clock struct{ T time.Time }

func (c Clock) Now() time.Time { return c.T }

// Users is an in-memory users.Repository with a unique email.
type Users struct {
	mu   sync.Mutex
	byID map[domainusers.UserID]*domainusers.User
}

func NewUsers() *Users {
	return &Users{byID: map[domainusers.UserID]*domainusers.User{}}
}

func (r *Users) Create(_ context.Context, u *domainusers.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	r.byID[u.ID] = u
	return nil
}

func (r *Users) GetByID(_ context.Context, id domainusers.UserID) (*domainusers.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *Users) GetByEmail(_ context.Context, email string) (*domainusers.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Uploads is an in-memory uploads.Repository.
type Uploads struct {
	mu    sync.Mutex
	Items map[domainuploads.UploadID]*domainuploads.Upload
	Err   error
}

func NewUploads(items ...*domainuploads.Upload) *Uploads {
	r := &Uploads{Items: map[domainuploads.UploadID]*domainuploads.Upload{}}
	for _, u := range items {
		r.Items[u.ID] = u
	}
	return r
}

func (r *Uploads) Save(_ context.Context, u *domainuploads.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Items[u.ID] = u
	return nil
}

func (r *Uploads) Get(_ context.Context, id domainuploads.UploadID) (*domainuploads.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.Items[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *Uploads) ListByUser(_ context.Context, userID string) ([]*domainuploads.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainuploads.Upload
	for _, u := range r.Items {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Uploads) Delete(_ context.Context, id domainuploads.UploadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Items, id)
	return nil
}

// Analyses is an in-memory analyses.Repository.
type Analyses struct {
	mu    sync.Mutex
	Items map[domainanalyses.AnalysisID]*domainanalyses.Analysis
}

func NewAnalyses(items ...*domainanalyses.Analysis) *Analyses {
	r := &Analyses{Items: map[domainanalyses.AnalysisID]*domainanalyses.Analysis{}}
	for _, a := range items {
		r.Items[a.ID] = a
	}
	return r
}

func (r *Analyses) Save(_ context.Context, a *domainanalyses.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items[a.ID] = a
	return nil
}

func (r *Analyses) Get(_ context.Context, id domainanalyses.AnalysisID) (*domainanalyses.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.Items[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (r *Analyses) ListByUser(_ context.Context, userID string) ([]*domainanalyses.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainanalyses.Analysis
	for _, a := range r.Items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Analyses) LatestByUpload(_ context.Context, uploadID string) (*domainanalyses.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domainanalyses.Analysis
	for _, a := range r.Items {
		if a.UploadID == uploadID && (latest == nil || a.CreatedAt.After(latest.CreatedAt)) {
			latest = a
		}
	}
	return latest, nil
}

func (r *Analyses) Delete(_ context.Context, id domainanalyses.AnalysisID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Items, id)
	return nil
}

func (r *Analyses) DeleteByUpload(_ context.Context, uploadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.Items {
		if a.UploadID == uploadID {
			delete(r.Items, id)
		}
	}
	return nil
}

// Requests is an in-memory requests.Repository.
type Requests struct {
	mu    sync.Mutex
	Items map[domainrequests.RequestID]*domainrequests.Request
}

func NewRequests(items ...*domainrequests.Request) *Requests {
	r := &Requests{Items: map[domainrequests.RequestID]*domainrequests.Request{}}
	for _, q := range items {
		r.Items[q.ID] = q
	}
	return r
}

func (r *Requests) Save(_ context.Context, q *domainrequests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items[q.ID] = q
	return nil
}

func (r *Requests) Get(_ context.Context, id domainrequests.RequestID) (*domainrequests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.Items[id]; ok {
		return q, nil
	}
	return nil, domain.ErrNotFound
}

func (r *Requests) ListByUser(_ context.Context, userID string) ([]*domainrequests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainrequests.Request
	for _, q := range r.Items {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Store is an in-memory uploads.ObjectStore.
type Store struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func NewStore() *Store {
	return &Store{Objects: map[string][]byte{}}
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = data
	return "http://store.test/uploads/" + key, nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	return nil
}
