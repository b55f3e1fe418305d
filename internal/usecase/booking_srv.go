package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"flight-booking/internal/data/entity"
	"flight-booking/internal/data/repository"
	"flight-booking/internal/dto/request"
	"flight-booking/internal/dto/response"
	"flight-booking/internal/events"
	"flight-booking/internal/metrics"
	"flight-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCodeAttempts = 5

type BookingService interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, bookingID string, requester Requester) (*response.BookingResponse, error)
	ModifySeat(ctx context.Context, bookingID string, requester Requester, req *request.ModifySeatRequest) (*response.BookingResponse, error)

	GetBooking(ctx context.Context, bookingID string, requester Requester) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

// InvoiceScheduler starts invoice generation for a freshly confirmed booking.
type InvoiceScheduler interface {
	Schedule(ctx context.Context, bookingID uuid.UUID)
}

type bookingService struct {
	repo      *repository.Repository
	cfg       utils.BookingConfig
	pricer    Pricer
	payments  PaymentValidator
	invoices  InvoiceScheduler
	publisher events.Publisher
	now       func() time.Time
	log       *zap.Logger
	operator  *zap.Logger
}

func NewBookingService(repo *repository.Repository, cfg utils.BookingConfig, deps Dependencies, invoices InvoiceScheduler, log *zap.Logger) BookingService {
	if cfg.MaxClaimRetries < 1 {
		cfg.MaxClaimRetries = 1
	}
	if cfg.CompensationTries < 1 {
		cfg.CompensationTries = 1
	}
	return &bookingService{
		repo:      repo,
		cfg:       cfg,
		pricer:    deps.Pricer,
		payments:  deps.Payments,
		invoices:  invoices,
		publisher: deps.Publisher,
		now:       deps.Clock,
		log:       log.With(zap.String("service", "booking")),
		operator:  utils.OperatorLogger(log),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	flightID, err := uuid.Parse(req.FlightID)
	if err != nil {
		return nil, validationError("flight_id", "Invalid flight ID")
	}
	seatNumber := normalizeCode(req.SeatNumber)

	flight, err := s.loadFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	seat, err := s.repo.Seat.Find(ctx, flightID, seatNumber)
	if err != nil {
		return nil, fmt.Errorf("find seat %s: %w", seatNumber, err)
	}
	if seat == nil {
		return nil, validationError("seat_number", "Seat does not exist on this flight")
	}
	if !seat.IsAvailable {
		metrics.RecordBookingOperation("create", "unavailable")
		return nil, ErrSeatUnavailable
	}

	ok, err := s.payments.Validate(ctx, userID, s.pricer.Price(flight, seat), req.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("validate payment: %w", err)
	}
	if !ok {
		s.log.Info("Payment declined", zap.String("user_id", userID.String()))
		return nil, validationError("payment_token", ErrPaymentDeclined.Error())
	}

	booking, err := s.claimAndInsert(ctx, userID, flight, seatNumber)
	if err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return nil, validationError("seat_number", "Seat does not exist on this flight")
		}
		metrics.RecordBookingOperation("create", outcomeLabel(err))
		return nil, err
	}

	metrics.RecordBookingOperation("create", "ok")
	s.log.Info("Booking confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("flight_id", flightID.String()),
		zap.String("seat_number", seatNumber),
	)

	s.afterConfirmed(ctx, booking)
	s.publish(ctx, events.BookingConfirmed, bookingEvent(booking, nil, s.now()))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID string, requester Requester) (*response.BookingResponse, error) {
	booking, flight, err := s.loadMutable(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.retire(ctx, booking, flight, nil)
	if err != nil {
		metrics.RecordBookingOperation("cancel", outcomeLabel(err))
		return nil, err
	}

	metrics.RecordBookingOperation("cancel", "ok")
	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("seat_number", booking.SeatNumber),
	)
	s.publish(ctx, events.BookingCancelled, bookingEvent(cancelled, nil, s.now()))

	resp := response.BookingToResponse(cancelled)
	return &resp, nil
}

// ModifySeat moves a booking to another seat on the same flight. The new
// seat is claimed together with a replacement booking first; the original
// booking and its seat are retired afterwards. If retiring fails the
// replacement is rolled back so the customer keeps the original seat.
func (s *bookingService) ModifySeat(ctx context.Context, bookingID string, requester Requester, req *request.ModifySeatRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Modify seat validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}
	newSeat := normalizeCode(req.SeatNumber)

	original, flight, err := s.loadMutable(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}

	if newSeat == original.SeatNumber {
		resp := response.BookingToResponse(original)
		return &resp, nil
	}

	replacement, err := s.claimAndInsert(ctx, original.UserID, flight, newSeat)
	if err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return nil, validationError("seat_number", "Seat does not exist on this flight")
		}
		metrics.RecordBookingOperation("modify", outcomeLabel(err))
		return nil, err
	}

	if _, err := s.retireSafely(ctx, original, flight, &replacement.ID); err != nil {
		s.log.Warn("Retiring original booking failed, compensating",
			zap.Error(err),
			zap.String("booking_id", original.ID.String()),
			zap.String("replacement_id", replacement.ID.String()),
		)

		if compErr := s.compensate(ctx, replacement, flight); compErr != nil {
			metrics.RecordBookingOperation("modify", "inconsistent")
			return nil, fmt.Errorf("%w: %v", ErrInconsistent, compErr)
		}

		metrics.RecordBookingOperation("modify", outcomeLabel(err))
		return nil, err
	}

	metrics.RecordBookingOperation("modify", "ok")
	s.log.Info("Booking seat changed",
		zap.String("booking_id", original.ID.String()),
		zap.String("replacement_id", replacement.ID.String()),
		zap.String("from_seat", original.SeatNumber),
		zap.String("to_seat", newSeat),
	)

	s.afterConfirmed(ctx, replacement)
	s.publish(ctx, events.BookingSeatChanged, bookingEvent(replacement, original, s.now()))

	resp := response.BookingToResponse(replacement)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string, requester Requester) (*response.BookingResponse, error) {
	booking, err := s.loadBooking(ctx, bookingID, requester)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("get bookings for user %s: %w", userID, err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count bookings for user %s: %w", userID, err)
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

// claimAndInsert claims seatNumber and inserts a CONFIRMED booking for it in
// one transaction, retrying on version conflicts up to the configured bound.
func (s *bookingService) claimAndInsert(ctx context.Context, userID uuid.UUID, flight *entity.Flight, seatNumber string) (*entity.Booking, error) {
	for attempt := 1; attempt <= s.cfg.MaxClaimRetries; attempt++ {
		var booking *entity.Booking
		err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
			seat, err := tx.Seat.Find(ctx, flight.ID, seatNumber)
			if err != nil {
				return err
			}
			if seat == nil {
				return ErrSeatNotFound
			}
			if !seat.IsAvailable {
				return ErrSeatNotAvailable
			}

			if _, err := NewSeatLedger(tx.Seat, s.log).TryClaim(ctx, flight.ID, seatNumber, seat.Version); err != nil {
				return err
			}

			booking, err = s.insertConfirmed(ctx, tx, userID, flight, seat)
			return err
		})

		switch {
		case err == nil:
			return booking, nil
		case errors.Is(err, ErrConflict):
			s.log.Debug("Seat claim conflict, retrying",
				zap.String("flight_id", flight.ID.String()),
				zap.String("seat_number", seatNumber),
				zap.Int("attempt", attempt),
			)
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		case errors.Is(err, ErrSeatNotAvailable), errors.Is(err, repository.ErrSeatAlreadyBooked):
			return nil, ErrSeatUnavailable
		default:
			return nil, err
		}
	}

	metrics.RecordRetriesExhausted()
	s.log.Info("Seat claim retries exhausted",
		zap.String("flight_id", flight.ID.String()),
		zap.String("seat_number", seatNumber),
		zap.Int("retries", s.cfg.MaxClaimRetries),
	)
	return nil, ErrSeatUnavailable
}

func (s *bookingService) insertConfirmed(ctx context.Context, tx *repository.Repository, userID uuid.UUID, flight *entity.Flight, seat *entity.Seat) (*entity.Booking, error) {
	now := s.now()
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := utils.GenerateConfirmationCode()
		if err != nil {
			return nil, fmt.Errorf("generate confirmation code: %w", err)
		}

		booking := &entity.Booking{
			ID:               uuid.New(),
			UserID:           userID,
			FlightID:         flight.ID,
			SeatNumber:       seat.SeatNumber,
			Status:           entity.BookingStatusConfirmed,
			BookingTime:      now,
			TotalPrice:       s.pricer.Price(flight, seat),
			ConfirmationCode: code,
			UpdatedAt:        now,
		}

		err = tx.Booking.Create(ctx, booking)
		if errors.Is(err, repository.ErrDuplicateConfirmationCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return booking, nil
	}

	return nil, fmt.Errorf("no free confirmation code after %d attempts", maxCodeAttempts)
}

// retire cancels booking and releases its seat in one transaction.
func (s *bookingService) retire(ctx context.Context, booking *entity.Booking, flight *entity.Flight, replacedBy *uuid.UUID) (*entity.Booking, error) {
	for attempt := 1; attempt <= s.cfg.MaxClaimRetries; attempt++ {
		now := s.now()
		err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
			cancelled, err := tx.Booking.Cancel(ctx, booking.ID, replacedBy, now)
			if err != nil {
				return err
			}
			if !cancelled {
				return ErrAlreadyCancelled
			}

			seat, err := tx.Seat.Find(ctx, flight.ID, booking.SeatNumber)
			if err != nil {
				return err
			}
			if seat == nil {
				return fmt.Errorf("seat %s of booking %s: %w", booking.SeatNumber, booking.ID, ErrSeatNotFound)
			}

			_, err = NewSeatLedger(tx.Seat, s.log).Release(ctx, flight.ID, booking.SeatNumber, seat.Version)
			return err
		})

		switch {
		case err == nil:
			out := *booking
			out.Status = entity.BookingStatusCancelled
			out.ReplacedBy = replacedBy
			out.CancelledAt = &now
			out.UpdatedAt = now
			return &out, nil
		case errors.Is(err, ErrConflict):
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		case errors.Is(err, ErrSeatNotHeld):
			// confirmed booking on a free seat: the ledger is already off
			s.operator.Error("Confirmed booking points at an available seat",
				zap.String("booking_id", booking.ID.String()),
				zap.String("flight_id", flight.ID.String()),
				zap.String("seat_number", booking.SeatNumber),
			)
			metrics.RecordLedgerDivergence()
			return nil, fmt.Errorf("%w: seat %s already released", ErrInconsistent, booking.SeatNumber)
		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("release seat %s: %w", booking.SeatNumber, ErrConflict)
}

// retireSafely is retire with panics turned into errors, so a failure in the
// middle of a seat change always reaches compensation.
func (s *bookingService) retireSafely(ctx context.Context, booking *entity.Booking, flight *entity.Flight, replacedBy *uuid.UUID) (out *entity.Booking, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("retire booking %s: panic: %v", booking.ID, r)
		}
	}()
	return s.retire(ctx, booking, flight, replacedBy)
}

// compensate undoes the replacement booking of a failed seat change. It runs
// on a context that ignores the caller's cancellation.
func (s *bookingService) compensate(ctx context.Context, replacement *entity.Booking, flight *entity.Flight) error {
	cctx := context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= s.cfg.CompensationTries; attempt++ {
		_, err = s.retireSafely(cctx, replacement, flight, nil)
		if err == nil || errors.Is(err, ErrAlreadyCancelled) {
			metrics.RecordCompensation("ok")
			s.log.Info("Seat change compensated",
				zap.String("replacement_id", replacement.ID.String()),
				zap.String("seat_number", replacement.SeatNumber),
			)
			return nil
		}
		_ = s.backoff(cctx, attempt)
	}

	metrics.RecordCompensation("failed")
	metrics.RecordLedgerDivergence()
	s.operator.Error("Seat change compensation failed",
		zap.Error(err),
		zap.String("booking_id", replacement.ID.String()),
		zap.String("flight_id", flight.ID.String()),
		zap.String("seat_number", replacement.SeatNumber),
		zap.Int("tries", s.cfg.CompensationTries),
	)
	s.publish(cctx, events.OpsInconsistency, events.InconsistencyEvent{
		BookingID:  replacement.ID,
		FlightID:   flight.ID,
		SeatNumber: replacement.SeatNumber,
		Operation:  "modify_seat",
		Reason:     err.Error(),
		DetectedAt: s.now(),
	})

	return err
}

func (s *bookingService) backoff(ctx context.Context, attempt int) error {
	if s.cfg.RetryBackoff <= 0 {
		return ctx.Err()
	}
	wait := s.cfg.RetryBackoff*time.Duration(attempt) + rand.N(s.cfg.RetryBackoff)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *bookingService) loadFlight(ctx context.Context, flightID uuid.UUID) (*entity.Flight, error) {
	flight, err := s.repo.Flight.FindByID(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("load flight %s: %w", flightID, err)
	}
	if flight == nil {
		return nil, validationError("flight_id", "Flight not found")
	}
	if flight.HasDeparted(s.now(), s.cfg.DepartureCutoff) {
		return nil, ErrFlightDeparted
	}
	return flight, nil
}

func (s *bookingService) loadBooking(ctx context.Context, bookingID string, requester Requester) (*entity.Booking, error) {
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
		s.log.Warn("Booking access denied",
			zap.String("booking_id", id.String()),
			zap.String("requester_id", requester.UserID.String()),
		)
		return nil, ErrForbidden
	}
	return booking, nil
}

// loadMutable loads a booking that may still change state: it must be
// CONFIRMED and its flight must not have departed.
func (s *bookingService) loadMutable(ctx context.Context, bookingID string, requester Requester) (*entity.Booking, *entity.Flight, error) {
	booking, err := s.loadBooking(ctx, bookingID, requester)
	if err != nil {
		return nil, nil, err
	}
	if !booking.IsConfirmed() {
		return nil, nil, ErrAlreadyCancelled
	}

	flight, err := s.repo.Flight.FindByID(ctx, booking.FlightID)
	if err != nil {
		return nil, nil, fmt.Errorf("load flight %s: %w", booking.FlightID, err)
	}
	if flight == nil {
		return nil, nil, fmt.Errorf("flight %s of booking %s: %w", booking.FlightID, booking.ID, ErrFlightNotFound)
	}
	if flight.HasDeparted(s.now(), s.cfg.DepartureCutoff) {
		return nil, nil, ErrFlightDeparted
	}
	return booking, flight, nil
}

func (s *bookingService) afterConfirmed(ctx context.Context, booking *entity.Booking) {
	if s.invoices != nil {
		s.invoices.Schedule(context.WithoutCancel(ctx), booking.ID)
	}
}

func (s *bookingService) publish(ctx context.Context, routingKey string, event any) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), routingKey, event); err != nil {
		s.log.Warn("Failed to publish booking event", zap.Error(err), zap.String("routing_key", routingKey))
	}
}

func bookingEvent(b *entity.Booking, previous *entity.Booking, at time.Time) events.BookingEvent {
	ev := events.BookingEvent{
		BookingID:        b.ID,
		UserID:           b.UserID,
		FlightID:         b.FlightID,
		SeatNumber:       b.SeatNumber,
		ConfirmationCode: b.ConfirmationCode,
		TotalPrice:       b.TotalPrice,
		OccurredAt:       at,
	}
	if previous != nil {
		ev.PreviousBookingID = &previous.ID
		ev.PreviousSeat = previous.SeatNumber
	}
	return ev
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrSeatUnavailable):
		return "unavailable"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrFlightDeparted):
		return "departed"
	case errors.Is(err, ErrInconsistent):
		return "inconsistent"
	default:
		return "error"
	}
}
