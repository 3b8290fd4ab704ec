package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"optiplus/internal/csvparse"
	"optiplus/internal/model"
	"optiplus/internal/service"
)

// datasetResponse is returned by upload and get.
type datasetResponse struct {
	Success  bool          `json:"success"`
	Data     []model.Row   `json:"data"`
	Dataset  model.Dataset `json:"dataset"`
	FilePath string        `json:"filePath,omitempty"`
}

type datasetListResponse struct {
	Success  bool            `json:"success"`
	Datasets []model.Dataset `json:"datasets"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ExportPath is the download URL of a dataset.
func ExportPath(id string) string {
	return "/datasets/" + id + "/export"
}

// ListDatasets returns every stored dataset with a short preview.
//
// @Summary  List datasets
// @Tags     datasets
// @Produce  json
// @Success  200 {object} datasetListResponse
// @Failure  500 {object} errorPayload
// @Router   /datasets [get]
func ListDatasets(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		if items == nil {
			items = []model.Dataset{}
		}
		return c.JSON(datasetListResponse{Success: true, Datasets: items})
	}
}

// UploadDataset accepts a multipart CSV under the "file" field.
//
// @Summary  Upload a CSV dataset
// @Tags     datasets
// @Accept   multipart/form-data
// @Produce  json
// @Param    file formData file true "CSV file"
// @Success  201 {object} datasetResponse
// @Failure  400 {object} errorPayload
// @Failure  500 {object} errorPayload
// @Router   /datasets [post]
func UploadDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", service.ErrFileRequired.Error())
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.Create(c.UserContext(), fh.Filename, f)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(datasetResponse{
			Success:  true,
			Data:     nonNilRows(res.Rows),
			Dataset:  res.Dataset,
			FilePath: ExportPath(res.Dataset.ID),
		})
	}
}

// GetDataset returns one dataset with all rows.
//
// @Summary  Get a dataset
// @Tags     datasets
// @Produce  json
// @Param    id path string true "Dataset ID"
// @Success  200 {object} datasetResponse
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /datasets/{id} [get]
func GetDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(datasetResponse{
			Success: true,
			Data:    nonNilRows(res.Rows),
			Dataset: res.Dataset,
		})
	}
}

// DeleteDataset removes a dataset.
//
// @Summary  Delete a dataset
// @Tags     datasets
// @Produce  json
// @Param    id path string true "Dataset ID"
// @Success  200 {object} messageResponse
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /datasets/{id} [delete]
func DeleteDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Success: true, Message: "Dataset deleted successfully"})
	}
}

// ExportDataset streams the stored file back as a CSV attachment.
//
// @Summary  Download a dataset
// @Tags     datasets
// @Produce  text/csv
// @Param    id path string true "Dataset ID"
// @Success  200 {file} file
// @Failure  404 {object} errorPayload
// @Router   /datasets/{id}/export [get]
func ExportDataset(svc service.DatasetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Export(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Attachment(res.Filename)
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Status(fiber.StatusOK).Send(res.Content)
	}
}

// writeServiceError translates catalog errors to HTTP responses.
func writeServiceError(c *fiber.Ctx, err error) error {
	var pe *csvparse.ParseError
	switch {
	case errors.Is(err, service.ErrFileRequired):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", err.Error())
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &pe):
		status := fiber.StatusBadRequest
		if c.Method() != fiber.MethodPost {
			// The file was accepted once; failing to parse it now is a server fault.
			status = fiber.StatusInternalServerError
		}
		return writeError(c, status, "INVALID_CSV", "Error parsing CSV: "+pe.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func nonNilRows(rows []model.Row) []model.Row {
	if rows == nil {
		return []model.Row{}
	}
	return rows
}
