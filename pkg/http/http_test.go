package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type windowRequest struct {
	Symbol string  `query:"symbol" validate:"required"`
	Short  int     `query:"short" default:"5" validate:"gte=1"`
	Long   int     `query:"long" default:"20" validate:"gtfield=Short"`
	Spread float64 `query:"w" default:"0.01" validate:"gt=0"`
}

func bindQuery(t *testing.T, query string) (*windowRequest, interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &windowRequest{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	r, verr := bindQuery(t, "symbol=AAA")
	if verr != nil {
		t.Fatalf("unexpected validation error %v", verr)
	}
	if r.Short != 5 || r.Long != 20 || r.Spread != 0.01 {
		t.Fatalf("expected defaults 5/20/0.01, got %+v", r)
	}
}

func TestReadAndValidateReportsWireNames(t *testing.T) {
	_, verr := bindQuery(t, "short=30&long=10&w=-1")
	errs, ok := verr.([]ValidationError)
	if !ok {
		t.Fatalf("expected []ValidationError, got %T", verr)
	}
	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Code
	}
	want := map[string]string{"symbol": "ERR_REQUIRED", "long": "ERR_GTFIELD", "w": "ERR_GT"}
	for f, code := range want {
		if got[f] != code {
			t.Fatalf("field %s: expected %s, got %q (all %v)", f, code, got[f], got)
		}
	}
}

func TestReadAndValidateBindError(t *testing.T) {
	_, verr := bindQuery(t, "symbol=A&short=abc")
	errs, ok := verr.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_BIND" {
		t.Fatalf("expected one ERR_BIND, got %v", verr)
	}
}

func TestAppErrorResponseStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := NewAppError("ERR_NUMERIC_DOMAIN", "", "log of non-positive", http.StatusBadRequest).WithError(errors.New("boom"))
	if rerr := AppErrorResponse(c, err); rerr != nil {
		t.Fatalf("response: %v", rerr)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != 400 || len(body.Data) != 1 || body.Data[0].Code != "ERR_NUMERIC_DOMAIN" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = AppErrorResponse(c, errors.New("plain"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for plain errors, got %d", rec.Code)
	}
}

type panicHandler struct{}

func (panicHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/boom", func(echo.Context) error { panic("boom") })
}

func TestServerRecoversPanics(t *testing.T) {
	s := NewServer(Handlers{panicHandler{}})
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
