package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"optiplus/internal/csvparse"
	"optiplus/internal/http/middleware"
	"optiplus/internal/model"
	"optiplus/internal/service"
	serviceMocks "optiplus/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testID = "0b4a5e3c-3a4b-4c1d-9e2f-1a2b3c4d5e6f"

func sampleResult() *service.DatasetResult {
	row := model.NewRow(2)
	row.Set("name", model.String("Widget"))
	row.Set("qty", model.Number(5))
	return &service.DatasetResult{
		Dataset: model.Dataset{
			ID:         testID,
			Filename:   "sales.csv",
			StorageKey: testID + "-sales.csv",
			UploadDate: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Headers:    []string{"name", "qty"},
			RowCount:   1,
		},
		Rows: []model.Row{row},
	}
}

func decodeError(t *testing.T, r io.Reader) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		body := decodeError(t, resp.Body)
		assert.False(t, body.Success)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Code)
	})

	require.NoError(t, dbMock.ExpectationsWereMet())
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDatasets(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(m *serviceMocks.MockDatasetService)
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name: "success",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				ds := sampleResult().Dataset
				ds.PreviewData = sampleResult().Rows
				broken := model.Dataset{ID: "x", Filename: "bad.csv", Headers: []string{}, Error: "Failed to process file"}
				m.On("List", mock.Anything).Return([]model.Dataset{ds, broken}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var res struct {
					Success  bool            `json:"success"`
					Datasets []model.Dataset `json:"datasets"`
				}
				require.NoError(t, json.Unmarshal(body, &res))
				assert.True(t, res.Success)
				require.Len(t, res.Datasets, 2)
				assert.Equal(t, testID, res.Datasets[0].ID)
				assert.Len(t, res.Datasets[0].PreviewData, 1)
				assert.Equal(t, "Failed to process file", res.Datasets[1].Error)
			},
		},
		{
			name: "empty catalog",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("List", mock.Anything).Return(nil, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"success":true,"datasets":[]}`, string(body))
			},
		},
		{
			name: "service error",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("List", mock.Anything).Return(nil, errors.New("index unavailable")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				var res errorPayload
				require.NoError(t, json.Unmarshal(body, &res))
				assert.False(t, res.Success)
				assert.Equal(t, "index unavailable", res.Error)
				assert.Equal(t, "INTERNAL_ERROR", res.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDatasetService)
			tt.setupMocks(mockSvc)
			app := fiber.New()
			app.Get("/datasets", ListDatasets(mockSvc))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/datasets", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			tt.check(t, body)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestUploadDataset(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		setupMocks func(m *serviceMocks.MockDatasetService)
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:  "success",
			field: "file",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("Create", mock.Anything, "sales.csv", mock.Anything).Return(sampleResult(), nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing file field",
			field:      "attachment",
			setupMocks: func(m *serviceMocks.MockDatasetService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE_REQUIRED",
			wantError:  "No file provided",
		},
		{
			name:  "malformed csv",
			field: "file",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				pe := &csvparse.ParseError{Line: 2, Message: "wrong number of fields"}
				m.On("Create", mock.Anything, "sales.csv", mock.Anything).Return(nil, pe).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_CSV",
			wantError:  "Error parsing CSV: " + (&csvparse.ParseError{Line: 2, Message: "wrong number of fields"}).Error(),
		},
		{
			name:  "storage failure",
			field: "file",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("Create", mock.Anything, "sales.csv", mock.Anything).Return(nil, errors.New("disk full")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantError:  "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDatasetService)
			tt.setupMocks(mockSvc)
			app := fiber.New()
			app.Use(middleware.RequestID())
			app.Post("/datasets", UploadDataset(mockSvc))

			body, ct := multipartBody(t, tt.field, "sales.csv", "name,qty\nWidget,5\n")
			req := httptest.NewRequest(http.MethodPost, "/datasets", body)
			req.Header.Set("Content-Type", ct)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode == "" {
				var res struct {
					Success  bool            `json:"success"`
					Data     json.RawMessage `json:"data"`
					Dataset  model.Dataset   `json:"dataset"`
					FilePath string          `json:"filePath"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
				assert.True(t, res.Success)
				assert.Equal(t, testID, res.Dataset.ID)
				assert.Equal(t, "/datasets/"+testID+"/export", res.FilePath)
				assert.JSONEq(t, `[{"name":"Widget","qty":5}]`, string(res.Data))
			} else {
				res := decodeError(t, resp.Body)
				assert.False(t, res.Success)
				assert.Equal(t, tt.wantCode, res.Code)
				assert.Equal(t, tt.wantError, res.Error)
				assert.Equal(t, resp.Header.Get(middleware.RequestIDHeader), res.RequestID)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestGetDataset(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(m *serviceMocks.MockDatasetService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("Get", mock.Anything, testID).Return(sampleResult(), nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "not found",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("Get", mock.Anything, testID).Return(nil, service.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name: "id required",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("Get", mock.Anything, testID).Return(nil, service.ErrIDRequired).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ID_REQUIRED",
		},
		{
			name: "stored file unparseable",
			setupMocks: func(m *serviceMocks.MockDatasetService) {
				m.On("Get", mock.Anything, testID).Return(nil, &csvparse.ParseError{Line: 3, Message: "bad quote"}).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INVALID_CSV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(serviceMocks.MockDatasetService)
			tt.setupMocks(mockSvc)
			app := fiber.New()
			app.Get("/datasets/:id", GetDataset(mockSvc))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/datasets/"+testID, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode == "" {
				var res map[string]json.RawMessage
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
				assert.JSONEq(t, `true`, string(res["success"]))
				assert.JSONEq(t, `[{"name":"Widget","qty":5}]`, string(res["data"]))
				assert.NotContains(t, res, "filePath")

				var ds model.Dataset
				require.NoError(t, json.Unmarshal(res["dataset"], &ds))
				assert.Equal(t, []string{"name", "qty"}, ds.Headers)
			} else {
				assert.Equal(t, tt.wantCode, decodeError(t, resp.Body).Code)
			}
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestDeleteDataset(t *testing.T) {
	mockSvc := new(serviceMocks.MockDatasetService)
	app := fiber.New()
	app.Delete("/datasets/:id", DeleteDataset(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, testID).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/datasets/"+testID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"message":"Dataset deleted successfully"}`, string(body))
	})

	t.Run("second delete is not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, testID).Return(service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/datasets/"+testID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		body := decodeError(t, resp.Body)
		assert.Equal(t, "Dataset not found", body.Error)
	})

	mockSvc.AssertExpectations(t)
}

func TestExportDataset(t *testing.T) {
	mockSvc := new(serviceMocks.MockDatasetService)
	app := fiber.New()
	app.Get("/datasets/:id/export", ExportDataset(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, testID).
			Return(&service.ExportResult{Filename: "sales.csv", Content: []byte("name,qty\nWidget,5\n")}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/datasets/"+testID+"/export", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="sales.csv"`)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "name,qty\nWidget,5\n", string(body))
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Export", mock.Anything, "nope").Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/datasets/nope/export", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockDatasetService)
	RegisterRoutes(app, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp.Body).Code)
	})

	t.Run("health without dependencies", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("list route is wired", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Dataset{}, nil).Once()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/datasets", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}
