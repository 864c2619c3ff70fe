package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/classifier"
	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/limiter"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/repository"
	"github.com/spec-kit/ticket-intake/internal/service"
)

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

type serverOptions struct {
	createMax  int
	authOn     bool
	production bool
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	if opts.createMax == 0 {
		opts.createMax = 50
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	repo := repository.NewMemoryTicketRepository()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repo,
		Classifier: classifier.NewDisabled("OPENAI_API_KEY not configured"),
		Dispatcher: events.NewInMemoryDispatcher(logger),
		Metrics:    metrics,
		Logger:     logger,
	})
	tokens := auth.NewTokenManager("test-secret", 30)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics, opts.production)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second, Production: opts.production})
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("ticket-intake", "test", repo, nil),
		Tickets:   handlers.NewTicketsHandler(ticketService),
		StaffAuth: auth.NewStaffAuth(opts.authOn, tokens),
		Limiter:   limiter.NewManager(limiter.NewMemoryFixedWindow(), "rl:", logger),
		Limits: RateLimits{
			CreateMax:     opts.createMax,
			CreateWindow:  time.Minute,
			GeneralMax:    1000,
			GeneralWindow: 6 * time.Minute,
		},
	})
	return &testServer{app: app, tokens: tokens, metrics: metrics}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Message string         `json:"message"`
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, target string, body any, headers ...string) (*nethttp.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func validTicket() map[string]string {
	return map[string]string{
		"customerName": "Jo",
		"email":        "jo@x.com",
		"subject":      "Login fails",
		"description":  "Cannot log in since yesterday, error 500.",
	}
}

type ticketJSON struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Category          string   `json:"category"`
	Priority          string   `json:"priority"`
	Status            string   `json:"status"`
	AssignedTeam      *string  `json:"assignedTeam"`
	AIConfidence      *float64 `json:"aiConfidence"`
	AIProcessingError *string  `json:"aiProcessingError"`
}

func (s *testServer) create(t *testing.T, body map[string]string) ticketJSON {
	t.Helper()
	resp, env := s.do(t, nethttp.MethodPost, "/api/tickets", body)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	var ticket ticketJSON
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	return ticket
}

func TestCreateTicketWithoutClassifier(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	resp, env := s.do(t, nethttp.MethodPost, "/api/tickets", validTicket())

	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "Ticket created successfully", env.Message)

	var ticket ticketJSON
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "General Inquiry", ticket.Category)
	assert.Equal(t, "Medium", ticket.Priority)
	assert.Equal(t, "New", ticket.Status)
	require.NotNil(t, ticket.AssignedTeam)
	assert.Equal(t, "General Support", *ticket.AssignedTeam)
	assert.Nil(t, ticket.AIConfidence)
	require.NotNil(t, ticket.AIProcessingError)
	assert.Contains(t, *ticket.AIProcessingError, "AI service disabled")
}

func TestCreateTicketValidation(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	body := validTicket()
	body["email"] = "not-an-email"
	body["description"] = "short"

	resp, env := s.do(t, nethttp.MethodPost, "/api/tickets", body)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "Validation failed", env.Error.Message)
	assert.Equal(t, "Please provide a valid email address", env.Error.Details["email"])
	assert.Equal(t, "Description must be at least 10 characters long", env.Error.Details["description"])

	_, list := s.do(t, nethttp.MethodGet, "/api/tickets", nil)
	var data struct {
		Tickets []ticketJSON `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &data))
	assert.Empty(t, data.Tickets)
}

func TestCreateTicketRateLimit(t *testing.T) {
	s := newTestServer(t, serverOptions{createMax: 2})
	s.create(t, validTicket())
	s.create(t, validTicket())

	resp, env := s.do(t, nethttp.MethodPost, "/api/tickets", validTicket())
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	assert.Equal(t, "Too many requests. Please try again later.", env.Error.Message)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.EqualValues(t, 60, env.Error.Details["retryAfter"])

	resp, _ = s.do(t, nethttp.MethodGet, "/api/tickets", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestListingDoesNotSpendCreateAllowance(t *testing.T) {
	s := newTestServer(t, serverOptions{createMax: 10})
	for i := 0; i < 10; i++ {
		resp, _ := s.do(t, nethttp.MethodGet, "/api/tickets", nil)
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	}

	for i := 0; i < 10; i++ {
		resp, _ := s.do(t, nethttp.MethodPost, "/api/tickets", validTicket())
		require.Equal(t, nethttp.StatusCreated, resp.StatusCode, "create %d", i+1)
		assert.Equal(t, "10", resp.Header.Get("RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(9-i), resp.Header.Get("RateLimit-Remaining"))
	}

	resp, env := s.do(t, nethttp.MethodPost, "/api/tickets", validTicket())
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.EqualValues(t, 60, env.Error.Details["retryAfter"])
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestListTicketsFiltersAndSorts(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, s.create(t, validTicket()).ID)
	}
	for i, p := range []string{"Low", "Critical", "High"} {
		resp, _ := s.do(t, nethttp.MethodPut, "/api/tickets/"+ids[i], map[string]string{"status": "Closed", "priority": p})
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	}

	q := url.Values{"status": {"Closed"}, "sortBy": {"priority"}, "sortOrder": {"asc"}, "limit": {"200"}}
	resp, env := s.do(t, nethttp.MethodGet, "/api/tickets?"+q.Encode(), nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var data struct {
		Tickets    []ticketJSON       `json:"tickets"`
		Pagination service.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Tickets, 3)
	assert.Equal(t, "Critical", data.Tickets[0].Priority)
	assert.Equal(t, "High", data.Tickets[1].Priority)
	assert.Equal(t, "Low", data.Tickets[2].Priority)
	assert.Equal(t, 100, data.Pagination.ItemsPerPage)
	assert.Equal(t, 3, data.Pagination.TotalItems)
	assert.False(t, data.Pagination.HasNextPage)
}

func TestListTicketsHugePageIsEmpty(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.create(t, validTicket())

	resp, env := s.do(t, nethttp.MethodGet, "/api/tickets?page=100000000000000000&limit=100", nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var data struct {
		Tickets    []ticketJSON       `json:"tickets"`
		Pagination service.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data.Tickets)
	assert.Equal(t, 100000000000000000, data.Pagination.CurrentPage)
	assert.Equal(t, 1, data.Pagination.TotalPages)
	assert.Equal(t, 1, data.Pagination.TotalItems)
	assert.False(t, data.Pagination.HasNextPage)
	assert.True(t, data.Pagination.HasPreviousPage)
}

func TestListTicketsRejectsBadQuery(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	resp, env := s.do(t, nethttp.MethodGet, "/api/tickets?sortBy=subject&page=0", nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error.Details, "sortBy")
	assert.Contains(t, env.Error.Details, "page")
}

func TestTicketNotFoundAndBadID(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	missing := "4f7c8f0e-3c1a-4e0b-9d55-1f1e5b2a9c10"

	resp, env := s.do(t, nethttp.MethodGet, "/api/tickets/"+missing, nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "Ticket not found", env.Error.Message)
	assert.Equal(t, missing, env.Error.Details["id"])

	resp, env = s.do(t, nethttp.MethodGet, "/api/tickets/123", nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ticket ID format", env.Error.Message)

	resp, env = s.do(t, nethttp.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Route not found", env.Error.Message)
}

func TestUpdateAndDeleteTicket(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	ticket := s.create(t, validTicket())

	resp, env := s.do(t, nethttp.MethodPut, "/api/tickets/"+ticket.ID, map[string]string{"category": "Bug Report"})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ticket updated successfully", env.Message)
	var updated ticketJSON
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Technical Support", *updated.AssignedTeam)

	resp, env = s.do(t, nethttp.MethodPut, "/api/tickets/"+ticket.ID, map[string]string{"status": "Reopened"})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error.Details, "status")

	resp, env = s.do(t, nethttp.MethodDelete, "/api/tickets/"+ticket.ID, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ticket deleted successfully", env.Message)
	assert.JSONEq(t, `{"id":"`+ticket.ID+`"}`, string(env.Data))

	resp, _ = s.do(t, nethttp.MethodDelete, "/api/tickets/"+ticket.ID, nil)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestStaffAuthGuardsMutations(t *testing.T) {
	s := newTestServer(t, serverOptions{authOn: true})
	ticket := s.create(t, validTicket())

	resp, env := s.do(t, nethttp.MethodPut, "/api/tickets/"+ticket.ID, map[string]string{"status": "Resolved"})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	agent, _, err := s.tokens.GenerateToken(domain.Staff{ID: "s-1", Name: "Sam", Role: domain.StaffRoleAgent})
	require.NoError(t, err)

	resp, _ = s.do(t, nethttp.MethodPut, "/api/tickets/"+ticket.ID, map[string]string{"status": "Resolved"}, "Authorization", "Bearer "+agent)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, env = s.do(t, nethttp.MethodDelete, "/api/tickets/"+ticket.ID, nil, "Authorization", "Bearer "+agent)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	resp, _ = s.do(t, nethttp.MethodGet, "/api/tickets/"+ticket.ID, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	resp, env := s.do(t, nethttp.MethodGet, "/health", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Equal(t, "Server is running", env.Message)

	resp, env = s.do(t, nethttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

func TestRequestsAreCounted(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.do(t, nethttp.MethodGet, "/api/tickets/123", nil)

	snap := s.metrics.Snapshot()
	assert.NotEmpty(t, snap.Requests)
	assert.NotEmpty(t, snap.Errors)
}
