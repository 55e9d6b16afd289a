package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"intake/internal/patients/service"
	apperrors "intake/pkg/errors"
	"intake/pkg/logger"
	"intake/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockPatientService struct {
	createFunc  func(ctx context.Context, p *model.Patient) error
	getByIDFunc func(ctx context.Context, id string) (*model.Patient, error)
	getAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Patient, int64, error)
	searchFunc  func(ctx context.Context, query string) ([]*model.Patient, error)
	updateFunc  func(ctx context.Context, id string, updates *model.PatientUpdate) (*model.Patient, error)
	deleteFunc  func(ctx context.Context, id string) error
}

func (m *mockPatientService) Create(ctx context.Context, p *model.Patient) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, p)
	}
	return nil
}

func (m *mockPatientService) GetByID(ctx context.Context, id string) (*model.Patient, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Patient{ID: id}, nil
}

func (m *mockPatientService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Patient, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Patient{}, 0, nil
}

func (m *mockPatientService) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return []*model.Patient{}, nil
}

func (m *mockPatientService) Update(ctx context.Context, id string, updates *model.PatientUpdate) (*model.Patient, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, updates)
	}
	return &model.Patient{ID: id}, nil
}

func (m *mockPatientService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockPatientService) Defaults() *model.Patient {
	return &model.Patient{Gender: model.GenderMale, Attachments: []model.Attachment{}}
}

func (m *mockPatientService) ValidateCPF(raw string) service.CPFCheck {
	if raw == "111.444.777-35" {
		return service.CPFCheck{CPF: "11144477735", Valid: true, Formatted: raw}
	}
	return service.CPFCheck{CPF: raw, Message: "CPF inválido"}
}

func (m *mockPatientService) CompleteAddress(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func newTestRouter(svc service.PatientService) *httprouter.Router {
	router := httprouter.New()
	NewPatientHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	var received *model.Patient
	svc := &mockPatientService{
		createFunc: func(ctx context.Context, p *model.Patient) error {
			received = p
			p.ID = "65f1c0a2b3c4d5e6f7a8b9c0"
			return nil
		},
	}

	body := `{"name":"Maria","cpf":"111.444.777-35","birth_date":"1990-05-10","contact":{"email":"m@example.com"}}`
	w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/patients", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if received == nil || received.BirthDate.String() != "1990-05-10" || received.Contact.Email != "m@example.com" {
		t.Errorf("unexpected decoded patient: %+v", received)
	}
	if !strings.Contains(w.Body.String(), `"id":"65f1c0a2b3c4d5e6f7a8b9c0"`) {
		t.Errorf("response should carry the new id: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "name_key") {
		t.Error("internal search key must not be exposed")
	}
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "malformed json", body: `{"name":`, wantStatus: http.StatusBadRequest},
		{name: "bad date", body: `{"birth_date":"10/05/1990"}`, wantStatus: http.StatusBadRequest},
		{name: "validation", body: `{"cpf":"1"}`, serviceErr: apperrors.Validation("Patient validation failed", nil), wantStatus: http.StatusUnprocessableEntity},
		{name: "conflict", body: `{}`, serviceErr: apperrors.Conflict("Patient with this CPF already exists"), wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPatientService{
				createFunc: func(context.Context, *model.Patient) error { return tt.serviceErr },
			}
			w := serve(newTestRouter(svc), http.MethodPost, "/api/v1/patients", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestGetAll_QueryParameters(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockPatientService{
		getAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Patient, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Patient{{ID: "a"}}, 31, nil
		},
	}
	router := newTestRouter(svc)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int64
	}{
		{name: "defaults", query: "", wantStatus: http.StatusOK, wantLimit: 10, wantOffset: 0},
		{name: "explicit", query: "?limit=20&offset=40", wantStatus: http.StatusOK, wantLimit: 20, wantOffset: 40},
		{name: "clamped", query: "?limit=500&offset=-3", wantStatus: http.StatusOK, wantLimit: 100, wantOffset: 0},
		{name: "alphabetic limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "alphabetic offset", query: "?offset=xyz", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/api/v1/patients"+tt.query, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("service got limit=%d offset=%d", gotLimit, gotOffset)
			}
			var resp struct {
				TotalCount int64 `json:"total_count"`
				Limit      int   `json:"limit"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.TotalCount != 31 || resp.Limit != tt.wantLimit {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	svc := &mockPatientService{
		getByIDFunc: func(ctx context.Context, id string) (*model.Patient, error) {
			if id == "missing" {
				return nil, apperrors.NotFoundWithID("Patient", id)
			}
			return &model.Patient{ID: id, Name: "Maria"}, nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodGet, "/api/v1/patients/id/abc", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Maria"`) {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}

	w = serve(router, http.MethodGet, "/api/v1/patients/id/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSearch(t *testing.T) {
	var gotQuery string
	svc := &mockPatientService{
		searchFunc: func(ctx context.Context, query string) ([]*model.Patient, error) {
			gotQuery = query
			return []*model.Patient{{ID: "a"}}, nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodGet, "/api/v1/patients/search?q=", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", w.Code)
	}

	w = serve(router, http.MethodGet, "/api/v1/patients/search?q=111.444.777-35", "")
	if w.Code != http.StatusOK || gotQuery != "111.444.777-35" {
		t.Errorf("status = %d query = %q", w.Code, gotQuery)
	}
}

func TestUpdate(t *testing.T) {
	var gotID string
	var gotUpdates *model.PatientUpdate
	svc := &mockPatientService{
		updateFunc: func(ctx context.Context, id string, updates *model.PatientUpdate) (*model.Patient, error) {
			gotID, gotUpdates = id, updates
			return &model.Patient{ID: id, Observations: *updates.Observations}, nil
		},
	}

	w := serve(newTestRouter(svc), http.MethodPatch, "/api/v1/patients/id/abc", `{"observations":"alérgico a dipirona"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if gotID != "abc" || gotUpdates.Name != nil || gotUpdates.Observations == nil {
		t.Errorf("unexpected update: id=%s %+v", gotID, gotUpdates)
	}
}

func TestDelete(t *testing.T) {
	svc := &mockPatientService{}
	w := serve(newTestRouter(svc), http.MethodDelete, "/api/v1/patients/id/abc", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestDefaults(t *testing.T) {
	w := serve(newTestRouter(&mockPatientService{}), http.MethodGet, "/api/v1/patients/defaults", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"gender":"masculino"`) || !strings.Contains(body, `"attachments":[]`) || !strings.Contains(body, `"is_newborn_in_plan":false`) {
		t.Errorf("unexpected defaults: %s", body)
	}
}

func TestValidateCPF(t *testing.T) {
	router := newTestRouter(&mockPatientService{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantValid  bool
	}{
		{name: "valid", body: `{"cpf":"111.444.777-35"}`, wantStatus: http.StatusOK, wantValid: true},
		{name: "invalid", body: `{"cpf":"111.444.777-36"}`, wantStatus: http.StatusOK, wantValid: false},
		{name: "malformed", body: `nope`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, "/api/v1/patients/validate-cpf", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Data service.CPFCheck `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Data.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", resp.Data.Valid, tt.wantValid)
			}
		})
	}
}
