package movement

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

func newTestServer(c *chain) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = fault.HTTPErrorHandler(zerolog.Nop())
	NewHandler(c.svc).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func doJSON(e *echo.Echo, actor auth.Actor, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ShipAndConfirm(t *testing.T) {
	c := newChain(t, false)
	e := newTestServer(c)

	body := `{"lot_id":"` + c.lot.String() + `","destination_entity_id":"` + c.authority.String() + `","quantity":40}`
	rec := doJSON(e, c.distributorActor(), http.MethodPost, "/api/v1/movements/distributor-to-authority", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created Handoff
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Status != StatusInTransit {
		t.Errorf("status = %s, want %s", created.Status, StatusInTransit)
	}

	rec = doJSON(e, c.authorityActor(), http.MethodPost,
		"/api/v1/movements/distributor-to-authority/"+created.ID.String()+"/confirm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, c.authorityActor(), http.MethodPost,
		"/api/v1/movements/distributor-to-authority/"+created.ID.String()+"/confirm", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second confirm status = %d, want 409", rec.Code)
	}
}

func TestHandler_UnknownKindRejected(t *testing.T) {
	c := newChain(t, false)
	e := newTestServer(c)

	rec := doJSON(e, c.distributorActor(), http.MethodGet, "/api/v1/movements/factory-to-moon", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandler_CancelReturnsNoContent(t *testing.T) {
	c := newChain(t, false)
	e := newTestServer(c)
	h := c.ship(t)

	rec := doJSON(e, c.distributorActor(), http.MethodDelete,
		"/api/v1/movements/distributor-to-authority/"+h.ID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel status = %d, want 204", rec.Code)
	}

	rec = doJSON(e, c.distributorActor(), http.MethodGet,
		"/api/v1/movements/distributor-to-authority/"+h.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after cancel = %d, want 404", rec.Code)
	}
}
