package ficha

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tiopaulo/anamnese/internal/domain/records"
	"github.com/tiopaulo/anamnese/internal/platform/nav"
	"github.com/tiopaulo/anamnese/internal/platform/pdfexport"
)

type fakeExporter struct {
	err  error
	docs []pdfexport.Document
}

func (f *fakeExporter) Export(ctx context.Context, doc pdfexport.Document) (*pdfexport.Result, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	return &pdfexport.Result{
		FileName:  pdfexport.Filename(doc.Subject),
		Data:      []byte("%PDF-1.3 fake"),
		Pages:     1,
		ArchiveID: "blob-1",
	}, nil
}

func newTestServer(t *testing.T, patients records.PatientRepository, consultations records.ConsultationRepository, exp Exporter) *echo.Echo {
	t.Helper()
	svc := NewService(patients, consultations, zerolog.Nop())
	h := NewHandler(svc, exp, nav.NewShell("Tio Paulo", ""), zerolog.Nop())
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))
	h.RegisterPages(e)
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetFichaJSON(t *testing.T) {
	store, ana := seedAna(t)
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})

	rec := get(e, "/api/v1/fichas/"+ana.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v struct {
		Found    bool `json:"found"`
		Paciente struct {
			NomeCrianca         string `json:"nome_crianca"`
			NecessidadeEspecial *bool  `json:"necessidade_especial"`
			ComprometimentoVis  *bool  `json:"comprometimento_visual"`
		} `json:"paciente"`
		Consultas []json.RawMessage `json:"consultas"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !v.Found || v.Paciente.NomeCrianca != "Ana Clara" || len(v.Consultas) != 2 {
		t.Errorf("unexpected body %+v", v)
	}
	if v.Paciente.NecessidadeEspecial == nil || *v.Paciente.NecessidadeEspecial {
		t.Error("false tri-state must round-trip as false")
	}
	if v.Paciente.ComprometimentoVis != nil {
		t.Error("unanswered tri-state must round-trip as null")
	}
}

func TestGetFichaJSON_NotFound(t *testing.T) {
	store, _ := seedAna(t)
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})

	for _, id := range []string{uuid.NewString(), "garbage"} {
		rec := get(e, "/api/v1/fichas/"+id)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", id, rec.Code)
		}
	}
}

func TestExportFicha(t *testing.T) {
	store, ana := seedAna(t)
	exp := &fakeExporter{}
	e := newTestServer(t, store.Patients(), store.Consultations(), exp)

	rec := get(e, "/api/v1/patients/"+ana.ID.String()+"/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, params, err := mime.ParseMediaType(rec.Header().Get(echo.HeaderContentDisposition)); err != nil || params["filename"] != "ficha_Ana_Clara.pdf" {
		t.Errorf("Content-Disposition = %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if rec.Header().Get("X-Archive-ID") != "blob-1" {
		t.Error("expected archive id header")
	}
	if len(exp.docs) != 1 || exp.docs[0].Key != ana.ID.String() {
		t.Errorf("unexpected export calls %+v", exp.docs)
	}
}

func TestExportFicha_Failures(t *testing.T) {
	store, ana := seedAna(t)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"already exporting", pdfexport.ErrExportInProgress, http.StatusConflict},
		{"render failure", errors.New("rasterize: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{err: tt.err})
			rec := get(e, "/api/v1/patients/"+ana.ID.String()+"/export")
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("expected a visible error message, got %s", rec.Body.String())
			}
		})
	}

	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})
	if rec := get(e, "/api/v1/patients/"+uuid.NewString()+"/export"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown patient: expected 404, got %d", rec.Code)
	}
}

func TestDetailPage(t *testing.T) {
	store, ana := seedAna(t)
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})

	rec := get(e, nav.VisualizarFicha.WithID(ana.ID.String()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Ana Clara",
		"10/01/2019",
		"Não informado",
		"NÃO",
		"MAPA DENTAL",
		"Histórico de Consultas",
		"18.5 kg",
		"Assinatura do Responsável",
		"Assinatura do Profissional",
		"Editar Ficha",
		"/visualizar-ficha/pdf?id=" + ana.ID.String(),
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestDetailPage_NotFound(t *testing.T) {
	store, _ := seedAna(t)
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})

	for _, path := range []string{"/visualizar-ficha", nav.VisualizarFicha.WithID(uuid.NewString())} {
		rec := get(e, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Paciente não encontrado") || !strings.Contains(body, `href="/dashboard"`) {
			t.Errorf("%s: expected not-found state with a way back", path)
		}
	}
}

func TestDetailPage_StoreFailure(t *testing.T) {
	store := records.NewMemoryStore()
	e := newTestServer(t, failingPatients{store.Patients()}, store.Consultations(), &fakeExporter{})

	rec := get(e, nav.VisualizarFicha.WithID(uuid.NewString()))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Tentar novamente") {
		t.Error("expected a retry link")
	}
}

func TestExportPage_FailureIsVisible(t *testing.T) {
	store, ana := seedAna(t)
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{err: errors.New("boom")})

	rec := get(e, "/visualizar-ficha/pdf?id="+ana.ID.String())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, msgExportFailed) || !strings.Contains(body, "Ana Clara") {
		t.Error("expected the detail page with the export error")
	}
}

func TestExportPage_Download(t *testing.T) {
	store, ana := seedAna(t)
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})

	rec := get(e, "/visualizar-ficha/pdf?id="+ana.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Error("expected PDF bytes")
	}
}

func TestExportFicha_QuotedNameKeepsHeaderValid(t *testing.T) {
	store := records.NewMemoryStore()
	p := &records.Patient{NomeCrianca: `Ana "Nina" João`, ResponsavelNome: "Maria"}
	if err := store.Patients().Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	e := newTestServer(t, store.Patients(), store.Consultations(), &fakeExporter{})

	rec := get(e, "/api/v1/patients/"+p.ID.String()+"/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	disposition, params, err := mime.ParseMediaType(rec.Header().Get(echo.HeaderContentDisposition))
	if err != nil {
		t.Fatalf("Content-Disposition does not parse: %v", err)
	}
	if want := `ficha_Ana_"Nina"_João.pdf`; disposition != "attachment" || params["filename"] != want {
		t.Errorf("filename = %q, want %q", params["filename"], want)
	}
}
