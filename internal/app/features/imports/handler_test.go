package imports_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/coursedesk/internal/app/features/imports"
	"github.com/dalemusser/coursedesk/internal/app/store/records"
	"github.com/dalemusser/coursedesk/internal/app/system/apierr"
	"github.com/dalemusser/coursedesk/internal/app/system/integrity"
	"github.com/dalemusser/coursedesk/internal/domain/models"
	"github.com/dalemusser/coursedesk/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", ref, v); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var goodRows = [][]any{
	{"Datum", "von", "bis", "Lehrer", "Folien", "Lena Roth", "Omar Haddad"},
	{"03.06.2024", "18:00", "19:30", "Anna Berg", "Lektion 1", "x", "e"},
	{"24.06.2024", "18:00", "19:30", "Anna Berg", "Lektion 2", "", ""},
}

var badRows = [][]any{
	{"Datum", "von", "bis", "Lehrer", "Folien"},
	{"03.06.2024", "18:00", "", "Anna Berg", "Lektion 1"},
	{"2024-06-10", "18:00", "19:30", "", "Lektion 2"},
}

func newRouter(store records.Store, maxUpload int64) (chi.Router, *integrity.Service) {
	svc := testutil.NewService(store)
	h := imports.NewHandler(svc, maxUpload, zap.NewNop())
	h.Now = func() time.Time { return testutil.FixedNow }
	return imports.Routes(h), svc
}

func TestValidate(t *testing.T) {
	store := testutil.NewMemStore()
	router, _ := newRouter(store, 0)

	rec := testutil.Serve(router, uploadRequest(t, "/validate", "G12 A1.1 online.xlsx", workbookBytes(t, goodRows)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if !resp.Valid || len(resp.Errors) != 0 {
		t.Errorf("expected valid report, got %+v", resp)
	}

	rec = testutil.Serve(router, uploadRequest(t, "/validate", "G12 A1.1.xlsx", workbookBytes(t, badRows)))
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Valid || len(resp.Errors) < 2 {
		t.Errorf("expected one error per bad row, got %+v", resp)
	}
	if store.Len(models.CollCourses) != 0 {
		t.Error("validate must not write")
	}
}

func TestImport(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := testutil.NewMemStore()
	router, _ := newRouter(store, 0)

	rec := testutil.Serve(router, uploadRequest(t, "/", "G12 A1.1 online.xlsx", workbookBytes(t, goodRows)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res integrity.ImportResult
	testutil.DecodeJSON(t, rec, &res)
	if res.Sessions != 2 || res.Students != 2 || res.Teachers != 1 {
		t.Errorf("result = %+v", res)
	}

	c := testutil.Load[models.Course](t, ctx, store, models.CollCourses, res.CourseID)
	if c.Name != "G12 A1.1" || len(c.SessionIDs) != 2 {
		t.Errorf("course = %+v", c)
	}
	if c.Status != integrity.CourseActive {
		t.Errorf("course status = %q, want active (one session is after now)", c.Status)
	}
}

func TestImport_Rejections(t *testing.T) {
	store := testutil.NewMemStore()
	router, _ := newRouter(store, 0)

	t.Run("invalid rows", func(t *testing.T) {
		rec := testutil.Serve(router, uploadRequest(t, "/", "G12 A1.1.xlsx", workbookBytes(t, badRows)))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var body apierr.Body
		testutil.DecodeJSON(t, rec, &body)
		if len(body.Details) < 2 {
			t.Errorf("details = %v, want every row error", body.Details)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		rec := testutil.Serve(router, uploadRequest(t, "/", "schedule.csv", []byte("a,b")))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		rec := testutil.Serve(router, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not a workbook", func(t *testing.T) {
		rec := testutil.Serve(router, uploadRequest(t, "/", "G12.xlsx", []byte("not a zip")))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})

	if store.Len(models.CollCourses) != 0 {
		t.Error("rejected imports must not write")
	}
}

func TestImport_TooLarge(t *testing.T) {
	router, _ := newRouter(testutil.NewMemStore(), 512)

	rec := testutil.Serve(router, uploadRequest(t, "/", "G12 A1.1.xlsx", workbookBytes(t, goodRows)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body apierr.Body
	testutil.DecodeJSON(t, rec, &body)
	if body.Error == "" {
		t.Error("expected error message")
	}
}
