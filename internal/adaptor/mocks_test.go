package adaptor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flight-booking/internal/dto/request"
	"flight-booking/internal/dto/response"
	"flight-booking/internal/usecase"
	"flight-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBookingService struct{ mock.Mock }

func (m *mockBookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	args := m.Called(ctx, userID, req)
	resp, _ := args.Get(0).(*response.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID string, requester usecase.Requester) (*response.BookingResponse, error) {
	args := m.Called(ctx, bookingID, requester)
	resp, _ := args.Get(0).(*response.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookingService) ModifySeat(ctx context.Context, bookingID string, requester usecase.Requester, req *request.ModifySeatRequest) (*response.BookingResponse, error) {
	args := m.Called(ctx, bookingID, requester, req)
	resp, _ := args.Get(0).(*response.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookingService) GetBooking(ctx context.Context, bookingID string, requester usecase.Requester) (*response.BookingResponse, error) {
	args := m.Called(ctx, bookingID, requester)
	resp, _ := args.Get(0).(*response.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockBookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	args := m.Called(ctx, userID, req)
	resp, _ := args.Get(0).(*response.PaginatedResponse[response.BookingResponse])
	return resp, args.Error(1)
}

type mockArtifactService struct{ mock.Mock }

func (m *mockArtifactService) Schedule(ctx context.Context, bookingID uuid.UUID) {
	m.Called(ctx, bookingID)
}

func (m *mockArtifactService) RequestGeneration(ctx context.Context, bookingID string, requester usecase.Requester, force bool) (*response.ArtifactStatusResponse, error) {
	args := m.Called(ctx, bookingID, requester, force)
	resp, _ := args.Get(0).(*response.ArtifactStatusResponse)
	return resp, args.Error(1)
}

func (m *mockArtifactService) CheckStatus(ctx context.Context, bookingID string, requester usecase.Requester, attempt int) (*response.ArtifactStatusResponse, error) {
	args := m.Called(ctx, bookingID, requester, attempt)
	resp, _ := args.Get(0).(*response.ArtifactStatusResponse)
	return resp, args.Error(1)
}

func (m *mockArtifactService) WaitForStatus(ctx context.Context, bookingID string, requester usecase.Requester) (*response.ArtifactStatusResponse, error) {
	args := m.Called(ctx, bookingID, requester)
	resp, _ := args.Get(0).(*response.ArtifactStatusResponse)
	return resp, args.Error(1)
}

func (m *mockArtifactService) OpenDocument(ctx context.Context, bookingID string, requester usecase.Requester) (*usecase.Document, error) {
	args := m.Called(ctx, bookingID, requester)
	doc, _ := args.Get(0).(*usecase.Document)
	return doc, args.Error(1)
}

func (m *mockArtifactService) SweepStale(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockArtifactService) Start() {}

func (m *mockArtifactService) Shutdown(ctx context.Context) error { return nil }

type mockFlightService struct{ mock.Mock }

func (m *mockFlightService) CreateFlight(ctx context.Context, req *request.CreateFlightRequest) (*response.FlightResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*response.FlightResponse)
	return resp, args.Error(1)
}

func (m *mockFlightService) GetSeatMap(ctx context.Context, flightID string) (*response.SeatMapResponse, error) {
	args := m.Called(ctx, flightID)
	resp, _ := args.Get(0).(*response.SeatMapResponse)
	return resp, args.Error(1)
}

// serve routes req through a chi router so URL params resolve, with the
// caller authenticated as userID when it is not uuid.Nil.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request, userID uuid.UUID, role string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != uuid.Nil {
		req = req.WithContext(utils.SetUserContext(req.Context(), userID, role))
	}
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var body utils.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
