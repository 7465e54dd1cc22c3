package routes_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventmanager/middlewares"
	"eventmanager/models"
	"eventmanager/models/modeltest"
	"eventmanager/routes"
	"eventmanager/utils"
)

/* ---------- helpers ---------- */

type serverDeps struct {
	s  *gin.Engine
	ur *modeltest.MemUserRepo
	er *modeltest.MemEventRepo
}

func setupServer(t *testing.T) serverDeps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	t.Cleanup(func() { mr.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := utils.NewCacheInvalidator(rdb)

	ur := modeltest.NewMemUserRepo()
	er := modeltest.NewMemEventRepo()

	s := gin.New()
	s.Use(middlewares.ResponseCache(rdb, 30*time.Second))
	routes.RegisterRoutes(s, ur, er, rdb, inv)
	return serverDeps{s: s, ur: ur, er: er}
}

// sessionUser seeds a user and a live session token directly in the store,
// bypassing the rate-limited signup/login endpoints.
func sessionUser(t *testing.T, ur *modeltest.MemUserRepo, username, email string) string {
	t.Helper()
	u := models.User{Username: username, Email: email, Password: "password123"}
	if err := ur.Create(&u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token := username + "-token"
	if err := ur.AddToken(u.ID, models.SessionToken{Token: token, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return token
}

func seedEvent(t *testing.T, er *modeltest.MemEventRepo, id, organizerEmail string, capacity int, createdAt time.Time) models.Event {
	t.Helper()
	e := models.Event{
		ID:        id,
		Organizer: models.PersonDets{Username: strings.Split(organizerEmail, "@")[0], Email: organizerEmail},
		Details: models.EventDetails{
			Title:       "Event " + id,
			Description: "desc",
			Date:        "2026-12-01",
			Time:        "19:00",
			Location:    "Hall",
			Capacity:    capacity,
			Status:      models.StatusPending,
		},
		Attendees: []models.Attendee{},
		CreatedAt: createdAt,
	}
	if err := er.Create(&e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func doReq(s *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	s.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Events     []models.Event `json:"events"`
		TotalPages int            `json:"totalPages"`
	} `json:"data"`
}

/* ---------- auth ---------- */

func TestSignupAndLogin(t *testing.T) {
	deps := setupServer(t)

	w := doReq(deps.s, http.MethodPost, "/auth/signup",
		`{"username":"alice","email":"alice@example.com","password":"longenough"}`, "")
	if w.Code != 200 {
		t.Fatalf("signup code=%d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"longenough"}`, "")
	if w.Code != 200 {
		t.Fatalf("login code=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Success || resp.Token == "" {
		t.Fatalf("expected a session token, got %+v", resp)
	}

	// The issued token resolves back to the user.
	u, err := deps.ur.FindByToken(resp.Token)
	if err != nil || u.Email != "alice@example.com" {
		t.Fatalf("token not stored: %v %+v", err, u)
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	deps := setupServer(t)
	w := doReq(deps.s, http.MethodPost, "/auth/signup",
		`{"username":"bob","email":"bob@example.com","password":"short"}`, "")
	if w.Code != 400 {
		t.Fatalf("want 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	deps := setupServer(t)
	sessionUser(t, deps.ur, "carol", "carol@example.com")

	w := doReq(deps.s, http.MethodPost, "/auth/signup",
		`{"username":"carol","email":"other@example.com","password":"longenough"}`, "")
	if w.Code != 409 {
		t.Fatalf("want 409, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Username already exists") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	deps := setupServer(t)
	sessionUser(t, deps.ur, "dave", "dave@example.com")

	w := doReq(deps.s, http.MethodPost, "/auth/signup",
		`{"username":"dave2","email":"dave@example.com","password":"longenough"}`, "")
	if w.Code != 409 {
		t.Fatalf("want 409, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Email has been used") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	deps := setupServer(t)
	sessionUser(t, deps.ur, "erin", "erin@example.com")

	w := doReq(deps.s, http.MethodPost, "/auth/login",
		`{"email":"erin@example.com","password":"wrongpass"}`, "")
	if w.Code != 401 {
		t.Fatalf("want 401, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestMutatingEndpoints_RequireToken(t *testing.T) {
	deps := setupServer(t)

	w := doReq(deps.s, http.MethodPost, "/events/createEvent",
		`{"eventDetails":{"title":"x"}}`, "")
	if w.Code != 401 {
		t.Fatalf("no token: want 401, got %d", w.Code)
	}

	w = doReq(deps.s, http.MethodPost, "/events/createEvent",
		`{"eventDetails":{"title":"x"}}`, "bogus-token")
	if w.Code != 401 {
		t.Fatalf("unknown token: want 401, got %d", w.Code)
	}
}

/* ---------- events ---------- */

func TestEvents_Create(t *testing.T) {
	deps := setupServer(t)
	token := sessionUser(t, deps.ur, "organizer", "organizer@example.com")

	body := `{"eventDetails":{"title":"GoConf","description":"fun","date":"2026-11-20","time":"09:00","location":"TW","capacity":100}}`
	w := doReq(deps.s, http.MethodPost, "/events/createEvent", body, token)
	if w.Code != 200 {
		t.Fatalf("create code=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Event models.Event `json:"event"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Event.ID == "" {
		t.Fatalf("expected server-assigned id")
	}
	if resp.Event.Organizer.Email != "organizer@example.com" {
		t.Fatalf("organizer snapshot wrong: %+v", resp.Event.Organizer)
	}
	if resp.Event.Details.Status != models.StatusPending {
		t.Fatalf("new events must start pending, got %q", resp.Event.Details.Status)
	}
	if _, err := deps.er.GetByID(resp.Event.ID); err != nil {
		t.Fatalf("event not persisted: %v", err)
	}
}

func TestEvents_Create_Validation(t *testing.T) {
	deps := setupServer(t)
	token := sessionUser(t, deps.ur, "organizer", "organizer@example.com")

	// Missing location and zero capacity.
	body := `{"eventDetails":{"title":"GoConf","description":"fun","date":"2026-11-20","time":"09:00","capacity":0}}`
	w := doReq(deps.s, http.MethodPost, "/events/createEvent", body, token)
	if w.Code != 400 {
		t.Fatalf("want 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestEvents_Edit_OwnershipAndStatus(t *testing.T) {
	deps := setupServer(t)
	ownerToken := sessionUser(t, deps.ur, "owner", "owner@example.com")
	otherToken := sessionUser(t, deps.ur, "other", "other@example.com")
	seedEvent(t, deps.er, "e1", "owner@example.com", 10, time.Now())

	body := `{"id":"e1","eventDetails":{"title":"New","description":"new","date":"2026-12-02","time":"20:00","location":"Arena","capacity":15,"status":"completed"}}`

	// Non-owner is rejected.
	w := doReq(deps.s, http.MethodPost, "/events/editEvent", body, otherToken)
	if w.Code != 403 {
		t.Fatalf("non-owner edit: want 403, got %d body=%s", w.Code, w.Body.String())
	}

	// Owner succeeds, but cannot smuggle a status change through edit.
	w = doReq(deps.s, http.MethodPost, "/events/editEvent", body, ownerToken)
	if w.Code != 200 {
		t.Fatalf("owner edit: code=%d body=%s", w.Code, w.Body.String())
	}
	e, err := deps.er.GetByID("e1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Details.Title != "New" || e.Details.Capacity != 15 {
		t.Fatalf("details not replaced: %+v", e.Details)
	}
	if e.Details.Status != models.StatusPending {
		t.Fatalf("edit must not change status, got %q", e.Details.Status)
	}

	// Unknown event.
	missing := strings.Replace(body, `"e1"`, `"nope"`, 1)
	w = doReq(deps.s, http.MethodPost, "/events/editEvent", missing, ownerToken)
	if w.Code != 404 {
		t.Fatalf("missing event: want 404, got %d", w.Code)
	}
}

// An edit that raced the completion sweep must not drag the event back to
// pending and reopen ticket sales.
func TestEvents_Edit_CannotResurrectCompletedEvent(t *testing.T) {
	deps := setupServer(t)
	ownerToken := sessionUser(t, deps.ur, "owner", "owner@example.com")
	buyerToken := sessionUser(t, deps.ur, "buyer", "buyer@example.com")
	seedEvent(t, deps.er, "e1", "owner@example.com", 10, time.Now())

	// The sweep completes the event; the edit below carries the stale
	// pending status an interleaved handler would have read beforehand.
	n, err := deps.er.CompleteDue("2026-12-01")
	if err != nil || n != 1 {
		t.Fatalf("complete: n=%d err=%v", n, err)
	}

	body := `{"id":"e1","eventDetails":{"title":"New","description":"new","date":"2026-12-01","time":"20:00","location":"Arena","capacity":15,"status":"pending"}}`
	w := doReq(deps.s, http.MethodPost, "/events/editEvent", body, ownerToken)
	if w.Code != 200 {
		t.Fatalf("edit: code=%d body=%s", w.Code, w.Body.String())
	}

	e, err := deps.er.GetByID("e1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Details.Status != models.StatusCompleted {
		t.Fatalf("status regressed: completed -> %q", e.Details.Status)
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"e1"}`, buyerToken)
	if w.Code != 409 {
		t.Fatalf("completed event sold a ticket: code=%d body=%s", w.Code, w.Body.String())
	}
}

// A date the sweep's YYYY-MM-DD comparison can never match must not be
// accepted, or the event would stay pending forever.
func TestEvents_Create_RejectsUnparseableDate(t *testing.T) {
	deps := setupServer(t)
	token := sessionUser(t, deps.ur, "organizer", "organizer@example.com")

	body := `{"eventDetails":{"title":"GoConf","description":"fun","date":"31-12-2020","time":"09:00","location":"TW","capacity":100}}`
	w := doReq(deps.s, http.MethodPost, "/events/createEvent", body, token)
	if w.Code != 400 {
		t.Fatalf("want 400, got %d body=%s", w.Code, w.Body.String())
	}
	if len(deps.er.Items) != 0 {
		t.Fatalf("event with bad date was persisted")
	}
}

func TestEvents_Delete(t *testing.T) {
	deps := setupServer(t)
	ownerToken := sessionUser(t, deps.ur, "owner", "owner@example.com")
	otherToken := sessionUser(t, deps.ur, "other", "other@example.com")
	seedEvent(t, deps.er, "e1", "owner@example.com", 10, time.Now())

	w := doReq(deps.s, http.MethodPost, "/events/deleteEvent", `{"eventId":"e1"}`, otherToken)
	if w.Code != 403 {
		t.Fatalf("non-owner delete: want 403, got %d", w.Code)
	}

	w = doReq(deps.s, http.MethodPost, "/events/deleteEvent", `{"eventId":"e1"}`, ownerToken)
	if w.Code != 200 {
		t.Fatalf("owner delete: code=%d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodPost, "/events/deleteEvent", `{"eventId":"e1"}`, ownerToken)
	if w.Code != 404 {
		t.Fatalf("delete again: want 404, got %d", w.Code)
	}
}

func TestEvents_DetailAndNotFound(t *testing.T) {
	deps := setupServer(t)
	seedEvent(t, deps.er, "e1", "owner@example.com", 10, time.Now())

	w := doReq(deps.s, http.MethodGet, "/events/eventDetail?eventId=e1", "", "")
	if w.Code != 200 {
		t.Fatalf("detail code=%d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodGet, "/events/eventDetail?eventId=missing", "", "")
	if w.Code != 404 {
		t.Fatalf("missing detail: want 404, got %d", w.Code)
	}
}

/* ---------- pagination ---------- */

// 25 events, page size 10: pages 1 and 2 hold 20 distinct events and the
// listing reports 3 total pages.
func TestPagination_RoundTrip(t *testing.T) {
	deps := setupServer(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		seedEvent(t, deps.er, fmt.Sprintf("e%02d", i), "owner@example.com", 10, base.Add(time.Duration(i)*time.Minute))
	}

	seen := map[string]bool{}
	for _, page := range []int{1, 2} {
		w := doReq(deps.s, http.MethodGet, fmt.Sprintf("/events/getEvents?page=%d&limit=10", page), "", "")
		if w.Code != 200 {
			t.Fatalf("page %d: code=%d body=%s", page, w.Code, w.Body.String())
		}
		var resp listResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Data.TotalPages != 3 {
			t.Fatalf("want totalPages=3, got %d", resp.Data.TotalPages)
		}
		if len(resp.Data.Events) != 10 {
			t.Fatalf("page %d: want 10 events, got %d", page, len(resp.Data.Events))
		}
		for _, e := range resp.Data.Events {
			if seen[e.ID] {
				t.Fatalf("event %s appears on more than one page", e.ID)
			}
			seen[e.ID] = true
		}
	}
	if len(seen) != 20 {
		t.Fatalf("want 20 distinct events across pages 1+2, got %d", len(seen))
	}
}

func TestEvents_ListOrderedNewestFirst(t *testing.T) {
	deps := setupServer(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedEvent(t, deps.er, "older", "owner@example.com", 10, base)
	seedEvent(t, deps.er, "newer", "owner@example.com", 10, base.Add(time.Hour))

	w := doReq(deps.s, http.MethodGet, "/events/getEvents", "", "")
	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Data.Events) != 2 || resp.Data.Events[0].ID != "newer" {
		t.Fatalf("want newest first, got %+v", resp.Data.Events)
	}
}

/* ---------- tickets ---------- */

// Capacity-1 scenario: A buys the only seat, B is sold out, A cannot buy a
// second ticket.
func TestBuyTicket_CapacityOneScenario(t *testing.T) {
	deps := setupServer(t)
	tokenA := sessionUser(t, deps.ur, "buyerA", "a@example.com")
	tokenB := sessionUser(t, deps.ur, "buyerB", "b@example.com")
	seedEvent(t, deps.er, "e1", "owner@example.com", 1, time.Now())

	w := doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"e1","tier":"vip"}`, tokenA)
	if w.Code != 200 {
		t.Fatalf("first purchase: code=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "vip ticket") {
		t.Fatalf("receipt should name the tier: %s", w.Body.String())
	}
	e, _ := deps.er.GetByID("e1")
	if len(e.Attendees) != 1 {
		t.Fatalf("want 1 attendee, got %d", len(e.Attendees))
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"e1"}`, tokenB)
	if w.Code != 409 || !strings.Contains(w.Body.String(), "fully booked") {
		t.Fatalf("sold out: code=%d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"e1","tier":"general"}`, tokenA)
	if w.Code != 409 || !strings.Contains(w.Body.String(), "already bought") {
		t.Fatalf("duplicate purchase: code=%d body=%s", w.Code, w.Body.String())
	}
}

func TestBuyTicket_Rejections(t *testing.T) {
	deps := setupServer(t)
	organizerToken := sessionUser(t, deps.ur, "owner", "owner@example.com")
	buyerToken := sessionUser(t, deps.ur, "buyer", "buyer@example.com")
	seedEvent(t, deps.er, "open", "owner@example.com", 10, time.Now())

	seedEvent(t, deps.er, "closed", "owner@example.com", 10, time.Now())
	closed := deps.er.Items["closed"]
	closed.Details.Status = models.StatusCompleted
	deps.er.Items["closed"] = closed

	w := doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"missing"}`, buyerToken)
	if w.Code != 404 {
		t.Fatalf("missing event: want 404, got %d", w.Code)
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"closed"}`, buyerToken)
	if w.Code != 409 {
		t.Fatalf("closed event: want 409, got %d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"open"}`, organizerToken)
	if w.Code != 403 {
		t.Fatalf("self purchase: want 403, got %d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"open","tier":"platinum"}`, buyerToken)
	if w.Code != 400 {
		t.Fatalf("unknown tier: want 400, got %d", w.Code)
	}
}

// Buying a ticket changes the attendee list, so the cached public detail
// response has to be purged rather than served for the rest of its TTL.
func TestBuyTicket_PurgesCachedEventDetail(t *testing.T) {
	deps := setupServer(t)
	buyerToken := sessionUser(t, deps.ur, "buyer", "buyer@example.com")
	seedEvent(t, deps.er, "e1", "owner@example.com", 5, time.Now())

	w := doReq(deps.s, http.MethodGet, "/events/eventDetail?eventId=e1", "", "")
	if got := w.Result().Header.Get("X-Cache"); got != "MISS" {
		t.Fatalf("first detail: want MISS, got %q", got)
	}

	w = doReq(deps.s, http.MethodGet, "/events/eventDetail?eventId=e1", "", "")
	if got := w.Result().Header.Get("X-Cache"); got != "HIT" {
		t.Fatalf("second detail: want HIT, got %q", got)
	}

	w = doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"e1"}`, buyerToken)
	if w.Code != 200 {
		t.Fatalf("purchase: code=%d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodGet, "/events/eventDetail?eventId=e1", "", "")
	if got := w.Result().Header.Get("X-Cache"); got != "MISS" {
		t.Fatalf("detail after purchase: want MISS (cache purged), got %q", got)
	}
	if !strings.Contains(w.Body.String(), "buyer@example.com") {
		t.Fatalf("detail is stale, attendee missing: %s", w.Body.String())
	}
}

func TestMyEventsAndMyTickets(t *testing.T) {
	deps := setupServer(t)
	ownerToken := sessionUser(t, deps.ur, "owner", "owner@example.com")
	buyerToken := sessionUser(t, deps.ur, "buyer", "buyer@example.com")

	seedEvent(t, deps.er, "mine", "owner@example.com", 10, time.Now())
	seedEvent(t, deps.er, "theirs", "someone@example.com", 10, time.Now().Add(time.Minute))

	w := doReq(deps.s, http.MethodPost, "/tickets/buyTicket", `{"id":"theirs"}`, buyerToken)
	if w.Code != 200 {
		t.Fatalf("purchase: code=%d body=%s", w.Code, w.Body.String())
	}

	w = doReq(deps.s, http.MethodGet, "/events/getMyEvents", "", ownerToken)
	var mine listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &mine); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(mine.Data.Events) != 1 || mine.Data.Events[0].ID != "mine" {
		t.Fatalf("my-events: %+v", mine.Data.Events)
	}

	w = doReq(deps.s, http.MethodGet, "/tickets/getMyTickets", "", buyerToken)
	var tickets listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tickets); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tickets.Data.Events) != 1 || tickets.Data.Events[0].ID != "theirs" {
		t.Fatalf("my-tickets: %+v", tickets.Data.Events)
	}
}
