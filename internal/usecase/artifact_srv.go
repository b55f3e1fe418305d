package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"flight-booking/internal/artifact"
	"flight-booking/internal/data/entity"
	"flight-booking/internal/data/repository"
	"flight-booking/internal/dto/response"
	"flight-booking/internal/metrics"
	"flight-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const staleBatchSize = 100

type ArtifactService interface {
	InvoiceScheduler

	// RequestGeneration starts generating the invoice unless it is already
	// READY (and force is false) or IN_PROGRESS. It never blocks on the job.
	RequestGeneration(ctx context.Context, bookingID string, requester Requester, force bool) (*response.ArtifactStatusResponse, error)

	// CheckStatus reports the invoice state. attempt is the client's poll
	// counter; past the poll budget an unfinished job is reported as
	// STILL_PROCESSING instead of PROCESSING.
	CheckStatus(ctx context.Context, bookingID string, requester Requester, attempt int) (*response.ArtifactStatusResponse, error)

	// WaitForStatus polls on the caller's behalf until the job settles or
	// the poll budget runs out.
	WaitForStatus(ctx context.Context, bookingID string, requester Requester) (*response.ArtifactStatusResponse, error)

	OpenDocument(ctx context.Context, bookingID string, requester Requester) (*Document, error)

	SweepStale(ctx context.Context) error
	Start()
	Shutdown(ctx context.Context) error
}

// Document is a READY invoice. Body is nil when the file lives at a remote
// Location the client should fetch itself.
type Document struct {
	Location string
	Checksum string
	Body     io.ReadCloser
}

type artifactService struct {
	repo     *repository.Repository
	cfg      utils.ArtifactConfig
	renderer artifact.Renderer
	store    artifact.ObjectStore
	cache    artifact.StatusCache
	pool     *artifact.WorkerPool
	now      func() time.Time
	log      *zap.Logger
}

func NewArtifactService(repo *repository.Repository, cfg utils.ArtifactConfig, deps Dependencies, log *zap.Logger) ArtifactService {
	if cfg.PollMaxAttempts < 1 {
		cfg.PollMaxAttempts = 1
	}
	s := &artifactService{
		repo:     repo,
		cfg:      cfg,
		renderer: deps.Renderer,
		store:    deps.Store,
		cache:    deps.Cache,
		now:      deps.Clock,
		log:      log.With(zap.String("service", "artifact")),
	}
	s.pool = artifact.NewWorkerPool(cfg.Workers, cfg.QueueSize, s.generate, log)
	return s
}

func (s *artifactService) Start() {
	s.pool.Start()
}

func (s *artifactService) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}

func (s *artifactService) Schedule(ctx context.Context, bookingID uuid.UUID) {
	if _, err := s.begin(ctx, bookingID, false); err != nil {
		s.log.Error("Failed to schedule invoice generation",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
	}
}

func (s *artifactService) RequestGeneration(ctx context.Context, bookingID string, requester Requester, force bool) (*response.ArtifactStatusResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}
	if !booking.IsConfirmed() {
		return nil, ErrAlreadyCancelled
	}

	a, err := s.begin(ctx, booking.ID, force)
	if err != nil {
		return nil, err
	}

	return s.statusResponse(booking.ID, a, 0), nil
}

// begin moves the artifact into IN_PROGRESS when that is allowed and hands
// the job to the pool. The returned artifact is the state after the call.
func (s *artifactService) begin(ctx context.Context, bookingID uuid.UUID, force bool) (*entity.InvoiceArtifact, error) {
	current, err := s.repo.Artifact.Find(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find artifact: %w", err)
	}
	if current != nil {
		switch current.Status {
		case entity.ArtifactStatusInProgress:
			return current, nil
		case entity.ArtifactStatusReady:
			if !force {
				return current, nil
			}
		}
	}

	started, ok, err := s.repo.Artifact.BeginAttempt(ctx, bookingID, force, s.now())
	if err != nil {
		return nil, fmt.Errorf("begin artifact attempt: %w", err)
	}
	if !ok {
		// another request won the transition
		current, err = s.repo.Artifact.Find(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("find artifact: %w", err)
		}
		return current, nil
	}

	if force {
		s.cache.Invalidate(ctx, bookingID)
	}

	if err := s.pool.Enqueue(artifact.Job{BookingID: bookingID, Attempt: started.Attempt}); err != nil {
		s.log.Warn("Invoice job rejected",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		if _, markErr := s.repo.Artifact.MarkFailed(ctx, bookingID, started.Attempt, err.Error(), s.now()); markErr != nil {
			return nil, fmt.Errorf("mark rejected artifact failed: %w", markErr)
		}
		reason := err.Error()
		started.Status = entity.ArtifactStatusFailed
		started.LastError = &reason
		return started, nil
	}

	s.log.Info("Invoice generation scheduled",
		zap.String("booking_id", bookingID.String()),
		zap.Int("attempt", started.Attempt),
		zap.Bool("force", force),
	)
	return started, nil
}

// generate runs on a pool worker.
func (s *artifactService) generate(ctx context.Context, job artifact.Job) {
	start := time.Now()
	log := s.log.With(zap.String("booking_id", job.BookingID.String()), zap.Int("attempt", job.Attempt))

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	location, checksum, err := s.produce(ctx, job.BookingID)
	// the job context may be spent; state writes must still land
	wctx := context.WithoutCancel(ctx)
	if err != nil {
		log.Error("Invoice generation failed", zap.Error(err))
		metrics.RecordArtifactJob("failed", time.Since(start).Seconds())
		if _, markErr := s.repo.Artifact.MarkFailed(wctx, job.BookingID, job.Attempt, err.Error(), s.now()); markErr != nil {
			log.Error("Failed to mark invoice failed", zap.Error(markErr))
		}
		return
	}

	ok, err := s.repo.Artifact.MarkReady(wctx, job.BookingID, job.Attempt, location, checksum, s.now())
	if err != nil {
		log.Error("Failed to mark invoice ready", zap.Error(err))
		metrics.RecordArtifactJob("failed", time.Since(start).Seconds())
		return
	}
	if !ok {
		log.Info("Invoice attempt superseded, result discarded")
		metrics.RecordArtifactJob("superseded", time.Since(start).Seconds())
		return
	}

	s.cache.SetReady(wctx, job.BookingID, artifact.ReadyStatus{
		Location: location,
		Checksum: checksum,
		Attempt:  job.Attempt,
	})
	s.dropIfSuperseded(wctx, job.BookingID, job.Attempt)
	metrics.RecordArtifactJob("ready", time.Since(start).Seconds())
	log.Info("Invoice ready", zap.String("location", location))
}

func (s *artifactService) produce(ctx context.Context, bookingID uuid.UUID) (string, string, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return "", "", err
	}
	if booking == nil {
		return "", "", ErrBookingNotFound
	}

	flight, err := s.repo.Flight.FindByID(ctx, booking.FlightID)
	if err != nil {
		return "", "", err
	}
	if flight == nil {
		return "", "", ErrFlightNotFound
	}

	seat, err := s.repo.Seat.Find(ctx, booking.FlightID, booking.SeatNumber)
	if err != nil {
		return "", "", err
	}

	passenger := booking.UserID.String()
	if user, err := s.repo.User.FindByID(ctx, booking.UserID); err == nil && user != nil {
		passenger = user.Username
	}

	doc, err := s.renderer.Render(ctx, artifact.InvoiceData{
		Booking:   booking,
		Flight:    flight,
		Seat:      seat,
		Passenger: passenger,
	})
	if err != nil {
		return "", "", fmt.Errorf("render invoice: %w", err)
	}

	location, err := s.store.Put(ctx, artifact.InvoiceKey(bookingID), doc)
	if err != nil {
		return "", "", fmt.Errorf("store invoice: %w", err)
	}

	return location, artifact.Checksum(doc), nil
}

func (s *artifactService) CheckStatus(ctx context.Context, bookingID string, requester Requester, attempt int) (*response.ArtifactStatusResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, booking.ID, attempt)
}

func (s *artifactService) status(ctx context.Context, bookingID uuid.UUID, attempt int) (*response.ArtifactStatusResponse, error) {
	if ready, ok := s.cache.GetReady(ctx, bookingID); ok {
		return &response.ArtifactStatusResponse{
			BookingID:   bookingID.String(),
			Status:      entity.ArtifactStatusReady,
			Outcome:     response.OutcomeReady,
			Location:    &ready.Location,
			Checksum:    &ready.Checksum,
			DownloadURL: response.InvoiceDownloadPath(bookingID.String()),
			Attempt:     ready.Attempt,
		}, nil
	}

	a, err := s.repo.Artifact.Find(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find artifact: %w", err)
	}
	if a != nil && a.Status == entity.ArtifactStatusReady && a.Location != nil {
		checksum := ""
		if a.Checksum != nil {
			checksum = *a.Checksum
		}
		s.cache.SetReady(ctx, bookingID, artifact.ReadyStatus{Location: *a.Location, Checksum: checksum, Attempt: a.Attempt})
		s.dropIfSuperseded(ctx, bookingID, a.Attempt)
	}

	return s.statusResponse(bookingID, a, attempt), nil
}

// dropIfSuperseded removes a READY entry written for attempt when a forced
// regeneration began between the read and the write. The regeneration's own
// invalidation may have run before the entry landed.
func (s *artifactService) dropIfSuperseded(ctx context.Context, bookingID uuid.UUID, attempt int) {
	current, err := s.repo.Artifact.Find(ctx, bookingID)
	if err == nil && current != nil && current.Status == entity.ArtifactStatusReady && current.Attempt == attempt {
		return
	}
	s.cache.Invalidate(ctx, bookingID)
}

func (s *artifactService) statusResponse(bookingID uuid.UUID, a *entity.InvoiceArtifact, attempt int) *response.ArtifactStatusResponse {
	resp := &response.ArtifactStatusResponse{
		BookingID: bookingID.String(),
		Status:    entity.ArtifactStatusNotStarted,
		Outcome:   response.OutcomeNotStarted,
	}
	if a == nil {
		resp.Message = "Invoice has not been requested yet"
		return resp
	}

	resp.Status = a.Status
	resp.Attempt = a.Attempt

	switch a.Status {
	case entity.ArtifactStatusReady:
		resp.Outcome = response.OutcomeReady
		resp.Location = a.Location
		resp.Checksum = a.Checksum
		resp.DownloadURL = response.InvoiceDownloadPath(resp.BookingID)
	case entity.ArtifactStatusFailed:
		resp.Outcome = response.OutcomeFailed
		resp.Message = "Invoice generation failed, request it again to retry"
	case entity.ArtifactStatusInProgress:
		resp.Outcome = response.OutcomeProcessing
		resp.RetryAfterSeconds = s.retryAfterSeconds()
		if attempt >= s.cfg.PollMaxAttempts || s.overBudget(a) {
			resp.Outcome = response.OutcomeStillProcessing
			resp.Message = "Still generating, check back shortly"
		}
	default:
		resp.Message = "Invoice has not been requested yet"
	}

	return resp
}

// pollBudget is the longest a client is expected to keep polling.
func (s *artifactService) pollBudget() time.Duration {
	return s.cfg.PollInterval * time.Duration(s.cfg.PollMaxAttempts)
}

func (s *artifactService) overBudget(a *entity.InvoiceArtifact) bool {
	if a.StartedAt == nil || s.pollBudget() <= 0 {
		return false
	}
	return s.now().Sub(*a.StartedAt) > s.pollBudget()
}

func (s *artifactService) retryAfterSeconds() int {
	secs := int(math.Ceil(s.cfg.PollInterval.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func (s *artifactService) WaitForStatus(ctx context.Context, bookingID string, requester Requester) (*response.ArtifactStatusResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}

	var last *response.ArtifactStatusResponse
	for attempt := 1; attempt <= s.cfg.PollMaxAttempts; attempt++ {
		last, err = s.status(ctx, booking.ID, attempt)
		if err != nil {
			return nil, err
		}
		if last.Outcome != response.OutcomeProcessing {
			return last, nil
		}

		timer := time.NewTimer(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, nil
		case <-timer.C:
		}
	}

	last.Outcome = response.OutcomeStillProcessing
	last.Message = "Still generating, check back shortly"
	return last, nil
}

func (s *artifactService) OpenDocument(ctx context.Context, bookingID string, requester Requester) (*Document, error) {
	booking, err := s.loadBooking(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}

	a, err := s.repo.Artifact.Find(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("find artifact: %w", err)
	}
	if a == nil || a.Status != entity.ArtifactStatusReady || a.Location == nil {
		return nil, ErrArtifactNotFound
	}

	doc := &Document{Location: *a.Location}
	if a.Checksum != nil {
		doc.Checksum = *a.Checksum
	}

	body, err := s.store.Open(ctx, *a.Location)
	if errors.Is(err, artifact.ErrRemoteLocation) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open invoice: %w", err)
	}
	doc.Body = body
	return doc, nil
}

// SweepStale fails IN_PROGRESS artifacts whose worker is gone and starts a
// new attempt while the automatic attempt budget allows it.
func (s *artifactService) SweepStale(ctx context.Context) error {
	stale, err := s.repo.Artifact.FindStale(ctx, s.now().Add(-s.cfg.StaleAfter), staleBatchSize)
	if err != nil {
		return fmt.Errorf("find stale artifacts: %w", err)
	}

	for _, a := range stale {
		ok, err := s.repo.Artifact.MarkFailed(ctx, a.BookingID, a.Attempt, "generation abandoned", s.now())
		if err != nil {
			return fmt.Errorf("fail stale artifact %s: %w", a.BookingID, err)
		}
		if !ok {
			continue
		}

		s.log.Warn("Stale invoice job failed",
			zap.String("booking_id", a.BookingID.String()),
			zap.Int("attempt", a.Attempt),
		)
		metrics.RecordArtifactJob("abandoned", 0)

		if a.Attempt < s.cfg.MaxAutoAttempts {
			if _, err := s.begin(ctx, a.BookingID, false); err != nil {
				s.log.Error("Failed to restart stale invoice job", zap.Error(err), zap.String("booking_id", a.BookingID.String()))
			}
		}
	}

	return nil
}

func (s *artifactService) loadBooking(ctx context.Context, bookingID string, requester Requester) (*entity.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, validationError("booking_id", "Invalid booking ID")
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !requester.CanAccess(booking.UserID) {
		return nil, ErrForbidden
	}
	return booking, nil
}
