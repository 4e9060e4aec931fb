// Package upload orchestrates a chunked, parallel file upload: fixed-size
// chunks uploaded concurrently up to a configured limit, per-chunk retry,
// progress/ETA reporting, cancellation, and a resumable session that only
// closes out on an explicit finalize call.
package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aperturestack/svcclient/resilience"
	"github.com/aperturestack/svcclient/svcerr"
)

// ChunkUploader uploads one chunk of a session's file.
type ChunkUploader func(ctx context.Context, sessionID string, chunkIndex, totalChunks int, data []byte) error

// Finalizer completes a session once every chunk has succeeded.
type Finalizer func(ctx context.Context, sessionID string, totalChunks int) error

// Validation bounds what Upload accepts before starting any chunk.
// Violations fail with Validation and are never retried.
type Validation struct {
	MaxFileSize       int64
	AllowedMIMETypes  map[string]struct{}
	AllowedExtensions map[string]struct{}
}

func (v Validation) check(filename, mimeType string, size int64, errCtx svcerr.ErrorContext) *svcerr.ServiceError {
	if v.MaxFileSize > 0 && size > v.MaxFileSize {
		return svcerr.New(svcerr.KindValidation,
			fmt.Sprintf("file size %d exceeds max %d", size, v.MaxFileSize), errCtx, nil)
	}
	if len(v.AllowedMIMETypes) > 0 {
		if _, ok := v.AllowedMIMETypes[mimeType]; !ok {
			return svcerr.New(svcerr.KindValidation,
				fmt.Sprintf("mime type %q not permitted", mimeType), errCtx, nil)
		}
	}
	if len(v.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(filename))
		if _, ok := v.AllowedExtensions[ext]; !ok {
			return svcerr.New(svcerr.KindValidation,
				fmt.Sprintf("extension %q not permitted", ext), errCtx, nil)
		}
	}
	return nil
}

// Progress is reported as chunks complete.
type Progress struct {
	BytesUploaded int64
	TotalBytes    int64
	SpeedBPS      float64
	ETA           time.Duration
}

// Config configures a Session.
type Config struct {
	SessionID string

	// ChunkSize is the fixed chunk length in bytes. Default: 4MiB.
	ChunkSize int64

	// MaxParallelUploads bounds concurrent in-flight chunk uploads. Default: 4.
	MaxParallelUploads int

	Uploader   ChunkUploader
	Finalizer  Finalizer
	Retry      resilience.RetryConfig
	Validation Validation
	OnProgress func(Progress)
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 4 << 20
	}
	if c.MaxParallelUploads <= 0 {
		c.MaxParallelUploads = 4
	}
}

// Session drives one chunked upload. It is safe to call Upload more than
// once on the same Session after a partial failure or cancellation: chunks
// that already succeeded are skipped, so the session resumes rather than
// restarting from scratch. Nothing finalizes the session until Finalize is
// called explicitly -- a Session with no Finalize call is left resumable.
type Session struct {
	cfg   Config
	retry *resilience.Retry

	mu              sync.Mutex
	cancel          context.CancelFunc
	total           int64
	uploaded        int64
	startedAt       time.Time
	totalChunks     int
	completedChunks map[int]bool
}

// NewSession creates an upload session.
func NewSession(cfg Config) *Session {
	cfg.applyDefaults()
	return &Session{
		cfg:             cfg,
		retry:           resilience.NewRetry(cfg.Retry),
		completedChunks: make(map[int]bool),
	}
}

// Cancel aborts in-flight and pending chunks of an Upload in progress. Safe
// to call before, during, or after Upload; a Cancel made while no Upload is
// running has no effect, and a later Upload call proceeds normally.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Upload validates (filename, mimeType, size), then uploads every chunk of
// r not already marked complete by a prior call, fanning out up to
// MaxParallelUploads chunks at a time. Each chunk retries independently via
// the configured retry policy; a non-retryable failure or a cancellation
// stops the whole session (errgroup cancels its shared context on the
// first error), leaving whatever chunks already succeeded marked complete
// for a later resumed call.
func (s *Session) Upload(ctx context.Context, r io.ReaderAt, size int64, filename, mimeType string) error {
	errCtx := svcerr.NewContextBuilder(s.cfg.SessionID, "/upload", "PUT", svcerr.ProtocolREST).Build()
	if svcErr := s.cfg.Validation.check(filename, mimeType, size, errCtx); svcErr != nil {
		return svcErr
	}

	totalChunks := int((size + s.cfg.ChunkSize - 1) / s.cfg.ChunkSize)
	if size == 0 {
		totalChunks = 0
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	s.total = size
	s.totalChunks = totalChunks
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallelUploads)

	for i := 0; i < totalChunks; i++ {
		idx := i

		s.mu.Lock()
		done := s.completedChunks[idx]
		s.mu.Unlock()
		if done {
			continue
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			start := int64(idx) * s.cfg.ChunkSize
			length := s.cfg.ChunkSize
			if start+length > size {
				length = size - start
			}
			data := make([]byte, length)
			if _, err := r.ReadAt(data, start); err != nil && err != io.EOF {
				return err
			}

			opErr := s.retry.Execute(gctx, func(ctx context.Context, attempt int) (*svcerr.ServiceError, error) {
				err := s.cfg.Uploader(ctx, s.cfg.SessionID, idx, totalChunks, data)
				if err == nil {
					return nil, nil
				}
				svcErr, ok := svcerr.As(err)
				if !ok || !svcErr.Retryable() {
					return nil, err
				}
				return svcErr, nil
			})
			if opErr != nil {
				return opErr
			}

			s.markComplete(idx, length)
			return nil
		})
	}

	return g.Wait()
}

func (s *Session) markComplete(idx int, length int64) {
	s.mu.Lock()
	s.completedChunks[idx] = true
	s.uploaded += length
	uploaded, total, started := s.uploaded, s.total, s.startedAt
	s.mu.Unlock()

	if s.cfg.OnProgress == nil {
		return
	}

	elapsed := time.Since(started).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(uploaded) / elapsed
	}
	var eta time.Duration
	if speed > 0 && total > uploaded {
		eta = time.Duration(float64(total-uploaded)/speed) * time.Second
	}
	s.cfg.OnProgress(Progress{BytesUploaded: uploaded, TotalBytes: total, SpeedBPS: speed, ETA: eta})
}

// Finalize calls the configured Finalizer for this session. Call it once
// every chunk reported by Upload's return has succeeded.
func (s *Session) Finalize(ctx context.Context) error {
	s.mu.Lock()
	totalChunks := s.totalChunks
	s.mu.Unlock()
	return s.cfg.Finalizer(ctx, s.cfg.SessionID, totalChunks)
}

// Progress returns the session's cumulative upload progress.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.startedAt).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(s.uploaded) / elapsed
	}
	var eta time.Duration
	if speed > 0 && s.total > s.uploaded {
		eta = time.Duration(float64(s.total-s.uploaded)/speed) * time.Second
	}
	return Progress{BytesUploaded: s.uploaded, TotalBytes: s.total, SpeedBPS: speed, ETA: eta}
}
