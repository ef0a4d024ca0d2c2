package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fieldops/opsboard/modules/documents/domain/document"
	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
	jobservices "github.com/fieldops/opsboard/modules/jobs/services"
	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
)

const (
	MinSignedURLExpiry = time.Minute
	MaxSignedURLExpiry = 24 * time.Hour
)

var ErrExpiryOutOfRange = errors.New("expires must be between 60 and 86400 seconds")

type DocumentService struct {
	api            apiclient.API
	registry       *jobtype.Registry
	defaultExpires time.Duration

	inflight singleflight.Group
	mu       sync.Mutex
	memo     map[string][]document.Document
	byClient map[string]map[string]struct{}
}

func NewDocumentService(api apiclient.API, registry *jobtype.Registry, defaultExpires time.Duration) *DocumentService {
	if defaultExpires <= 0 {
		defaultExpires = time.Hour
	}
	return &DocumentService{
		api:            api,
		registry:       registry,
		defaultExpires: defaultExpires,
		memo:           make(map[string][]document.Document),
		byClient:       make(map[string]map[string]struct{}),
	}
}

// Tree fetches the jobs of every implemented type for a client. Jobs expanded earlier come back
// with their memoized documents; reload drops the client's memo first. A type that fails to load
// shows up empty.
func (s *DocumentService) Tree(ctx context.Context, clientID string, reload bool) (*document.Tree, error) {
	if clientID == "" {
		return nil, errors.New("client id is required")
	}
	if reload {
		s.Invalidate(clientID)
	}

	configs := s.registry.Implemented()
	groups := make([]document.Group, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		groups[i] = document.Group{
			JobType:       cfg.Key,
			Title:         cfg.Title,
			Icon:          cfg.Icon,
			DocumentsType: cfg.DocumentsType,
			SearchFields:  cfg.SearchFields,
			Jobs:          []document.JobNode{},
		}
		g.Go(func() error {
			jobs, err := s.jobsOf(gctx, cfg, clientID)
			if err != nil {
				composables.UseLogger(ctx).WithError(err).WithFields(logrus.Fields{
					"job-type":  cfg.Key,
					"client-id": clientID,
				}).Warn("documents tree: job list unavailable")
				return nil
			}
			groups[i].Jobs = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.attachMemo(groups)
	return &document.Tree{ClientID: clientID, Groups: groups}, nil
}

func (s *DocumentService) attachMemo(groups []document.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for gi := range groups {
		jobs := groups[gi].Jobs
		for ji := range jobs {
			if docs, ok := s.memo[document.Key(groups[gi].JobType, jobs[ji].ID)]; ok {
				jobs[ji].Documents = docs
				jobs[ji].Expanded = true
			}
		}
	}
}

func (s *DocumentService) jobsOf(ctx context.Context, cfg *jobtype.Config, clientID string) ([]document.JobNode, error) {
	resp, err := s.api.Get(ctx, cfg.APIEndpoint+"?"+url.Values{"client_id": {clientID}}.Encode())
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	if err := resp.Decode(&records); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", cfg.Key)
	}
	desc := jobtype.NewDescriptor(cfg, nil)
	nodes := make([]document.JobNode, 0, len(records))
	for _, record := range records {
		id, ok := record["id"]
		if !ok || id == nil {
			continue
		}
		node := document.JobNode{
			ID:     idString(id),
			Label:  desc.Subtitle(jobtype.ModeEdit, record),
			Record: record,
		}
		if cfg.StatusField != "" {
			node.Status, _ = record[cfg.StatusField].(string)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Expand lazily loads a job's documents. Concurrent expands of the same job share one fetch;
// failures come back as an empty list and are retried on the next expand.
func (s *DocumentService) Expand(ctx context.Context, clientID, jobType, jobID string) ([]document.Document, error) {
	cfg, err := s.registry.Get(jobType)
	if err != nil {
		return nil, err
	}
	key := document.Key(cfg.Key, jobID)

	s.mu.Lock()
	docs, ok := s.memo[key]
	s.mu.Unlock()
	if ok {
		documentExpands.WithLabelValues("hit").Inc()
		return docs, nil
	}

	v, err, _ := s.inflight.Do(key, func() (any, error) {
		// the fetch outlives any single caller's cancellation since others may share it
		fetchCtx := context.WithoutCancel(ctx)
		path := "/documents/job/" + url.PathEscape(cfg.DocumentsType) + "/" + url.PathEscape(jobID)
		resp, err := s.api.Get(fetchCtx, path)
		if err != nil {
			return nil, err
		}
		var docs []document.Document
		if err := resp.Decode(&docs); err != nil {
			return nil, errors.Wrap(err, "decode documents")
		}
		if docs == nil {
			docs = []document.Document{}
		}
		s.remember(clientID, key, docs)
		return docs, nil
	})
	if err != nil {
		documentExpands.WithLabelValues("error").Inc()
		composables.UseLogger(ctx).WithError(err).WithField("job", key).Warn("documents expand failed")
		return []document.Document{}, nil
	}
	documentExpands.WithLabelValues("fetch").Inc()
	return v.([]document.Document), nil
}

func (s *DocumentService) remember(clientID, key string, docs []document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo[key] = docs
	if clientID == "" {
		return
	}
	keys, ok := s.byClient[clientID]
	if !ok {
		keys = make(map[string]struct{})
		s.byClient[clientID] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate drops every memoized expand made for the client.
func (s *DocumentService) Invalidate(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.byClient[clientID] {
		delete(s.memo, key)
	}
	delete(s.byClient, clientID)
}

func (s *DocumentService) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memo, key)
	for _, keys := range s.byClient {
		delete(keys, key)
	}
}

func (s *DocumentService) Memoized(jobType, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.memo[document.Key(jobType, jobID)]
	return ok
}

// OnJobSaved revalidates the documents of the saved job and of its client.
func (s *DocumentService) OnJobSaved(ev *jobservices.JobSavedEvent) {
	s.forget(document.Key(ev.JobType, ev.ID))
	if ev.ClientID != "" {
		s.Invalidate(ev.ClientID)
	}
}

// SignedURL asks the remote store for a temporary link. A zero expiry means the configured default.
func (s *DocumentService) SignedURL(ctx context.Context, documentID string, expires time.Duration) (string, error) {
	if expires == 0 {
		expires = s.defaultExpires
	}
	if expires < MinSignedURLExpiry || expires > MaxSignedURLExpiry {
		return "", ErrExpiryOutOfRange
	}
	q := url.Values{}
	q.Set("id", documentID)
	q.Set("expires", strconv.Itoa(int(expires/time.Second)))
	resp, err := s.api.Get(ctx, "/documents/signed-url?"+q.Encode())
	if err != nil {
		return "", err
	}
	var body struct {
		URL       string `json:"url"`
		SignedURL string `json:"signedUrl"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode signed url")
	}
	if body.URL == "" {
		body.URL = body.SignedURL
	}
	if body.URL == "" {
		return "", errors.New("remote returned no signed url")
	}
	return body.URL, nil
}

type UploadParams struct {
	FileName   string
	MimeType   string
	ClientID   string
	ClientName string
	JobType    string
	JobID      string
	Category   string
}

// Upload forwards a file to the remote store and drops the job's memoized documents.
func (s *DocumentService) Upload(ctx context.Context, params UploadParams, file io.Reader) (map[string]any, error) {
	cfg, err := s.registry.Get(params.JobType)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Upload(ctx, "/documents/upload", &apiclient.MultipartForm{
		FileName: params.FileName,
		MIMEType: params.MimeType,
		File:     file,
		Fields: map[string]string{
			"fileName":    params.FileName,
			"client_id":   params.ClientID,
			"client_name": params.ClientName,
			"job_type":    cfg.DocumentsType,
			"job_id":      params.JobID,
			"category":    params.Category,
		},
	})
	if err != nil {
		return nil, err
	}
	s.forget(document.Key(cfg.Key, params.JobID))

	out := map[string]any{}
	if len(resp.Data) > 0 {
		if err := resp.Decode(&out); err != nil {
			composables.UseLogger(ctx).WithError(err).Debug("upload response is not an object")
		}
	}
	return out, nil
}

func idString(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
