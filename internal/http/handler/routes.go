package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/apperr"
	"docvault/internal/config"
	"docvault/internal/model"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// downloadURLExpiry is the presign lifetime for the download endpoint.
// The filesystem adapter ignores it.
const downloadURLExpiry = 15 * time.Minute

// RegisterRoutes attaches all HTTP routes to the Fiber app.
// db may be nil when a non-relational repository backend is configured.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, cfg *config.AppConfig) {
	app.Get("/health", HealthCheck())
	app.Get("/health/ready", ReadinessCheck(db))

	if cfg.Storage.Type == config.StorageFilesystem {
		app.Static(cfg.Storage.ServePrefix, cfg.Storage.Path)
	}

	api := app.Group("/api/v1")
	api.Get("/documents", ListDocuments(docSvc, cfg.Pagination))
	api.Post("/documents", UploadDocument(docSvc))
	api.Post("/documents/sync", SyncDocuments(docSvc))
	api.Get("/documents/:id", GetDocument(docSvc))
	api.Patch("/documents/:id", UpdateDocument(docSvc))
	api.Delete("/documents/:id", DeleteDocument(docSvc))
	api.Get("/documents/:id/content", DocumentContent(docSvc))
	api.Get("/documents/:id/download", DownloadDocument(docSvc))
}

// HealthCheck is the liveness probe. Always 200.
//
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Router /health [get]
func HealthCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return writeData(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	}
}

// ReadinessCheck reports readiness. When a SQL database is configured
// it is pinged with a short timeout; otherwise the process is ready as
// soon as it serves.
//
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health/ready [get]
func ReadinessCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return apperr.Unavailable("database unavailable").WithCause(err)
			}
		}
		return writeData(c, fiber.StatusOK, fiber.Map{"status": "ready"})
	}
}

// ListDocuments returns a paginated document listing ordered by
// creation time, newest first.
//
// @Summary List documents
// @Tags documents
// @Produce json
// @Param page query int false "1-indexed page" default(1)
// @Param limit query int false "page size"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /api/v1/documents [get]
func ListDocuments(docSvc service.DocumentService, pag config.PaginationConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, limit, err := parsePagination(c, pag)
		if err != nil {
			return err
		}

		res, err := docSvc.List(c.UserContext(), page, limit)
		if err != nil {
			return err
		}

		return writeData(c, fiber.StatusOK, PaginatedData{
			Items: res.Items,
			Pagination: Pagination{
				Page:       res.Page,
				Limit:      res.Limit,
				Total:      res.Total,
				TotalPages: res.TotalPages,
			},
		})
	}
}

// UploadDocument accepts a multipart upload. Field "file" is required;
// "title", "description", "tags" (comma-separated), and "metadata"
// (JSON object of string values) are optional.
//
// @Summary Upload a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "file content"
// @Param title formData string false "display title, defaults to the file name"
// @Param description formData string false "free-text description"
// @Param tags formData string false "comma-separated tags"
// @Param metadata formData string false "JSON object of string values"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /api/v1/documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return apperr.Validation("file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return apperr.Validation("cannot open uploaded file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return apperr.Internal("failed to read uploaded file").WithCause(err)
		}

		in := service.UploadInput{
			Data:     data,
			FileName: fh.Filename,
			MimeType: fh.Header.Get(fiber.HeaderContentType),
			Title:    c.FormValue("title"),
		}
		if desc := c.FormValue("description"); desc != "" {
			in.Description = &desc
		}
		if tags := c.FormValue("tags"); tags != "" {
			in.Tags = splitTags(tags)
		}
		if meta := c.FormValue("metadata"); meta != "" {
			if err := json.Unmarshal([]byte(meta), &in.Metadata); err != nil {
				return apperr.Validation("metadata must be a JSON object of string values")
			}
		}

		doc, err := docSvc.Upload(c.UserContext(), in)
		if err != nil {
			return err
		}
		return writeData(c, fiber.StatusCreated, doc)
	}
}

// GetDocument returns a single document by ID.
//
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/documents/{id} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return err
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return writeData(c, fiber.StatusOK, doc)
	}
}

// UpdateDocument applies a partial metadata update. Fields absent from
// the body are left untouched; explicit nulls clear nullable fields.
//
// @Summary Update document metadata
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/documents/{id} [patch]
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return err
		}

		var patch model.DocumentPatch
		if err := json.Unmarshal(c.Body(), &patch); err != nil {
			return apperr.Validation("invalid JSON body")
		}

		doc, err := docSvc.Update(c.UserContext(), id, &patch)
		if err != nil {
			return err
		}
		return writeData(c, fiber.StatusOK, doc)
	}
}

// DeleteDocument soft-deletes a document. The stored file is kept so a
// later sync can resurrect the record.
//
// @Summary Delete a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return err
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			return err
		}
		return writeData(c, fiber.StatusOK, fiber.Map{"id": id, "deleted": true})
	}
}

// DocumentContent streams the stored file content for preview. With
// ?format=html markdown documents are rendered server-side.
//
// @Summary Get document content
// @Tags documents
// @Param id path string true "document id"
// @Param format query string false "set to html to render markdown"
// @Success 200 {string} string
// @Failure 404 {object} Response
// @Router /api/v1/documents/{id}/content [get]
func DocumentContent(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return err
		}

		res, err := docSvc.Content(c.UserContext(), id, c.Query("format") == "html")
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, res.MimeType)
		return c.Status(fiber.StatusOK).Send(res.Content)
	}
}

// DownloadDocument redirects to a client-fetchable URL for the stored
// file. For S3 backends this is a short-lived presigned URL. Files
// registered from outside the static serving root have no URL to
// redirect to and are streamed directly as an attachment.
//
// @Summary Download a document
// @Tags documents
// @Param id path string true "document id"
// @Success 302 {string} string
// @Failure 404 {object} Response
// @Router /api/v1/documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := documentID(c)
		if err != nil {
			return err
		}

		u, err := docSvc.DownloadURL(c.UserContext(), id, downloadURLExpiry)
		if err != nil {
			if !errors.Is(err, storage.ErrNoStaticRoute) {
				return err
			}
			res, err := docSvc.Content(c.UserContext(), id, false)
			if err != nil {
				return err
			}
			c.Set(fiber.HeaderContentType, res.MimeType)
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.FileName))
			return c.Status(fiber.StatusOK).Send(res.Content)
		}
		return c.Redirect(u, fiber.StatusFound)
	}
}

type syncRequest struct {
	Directories []string `json:"directories"`
}

// SyncDocuments reconciles metadata records with storage contents.
//
// @Summary Sync documents with storage
// @Tags documents
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/documents/sync [post]
func SyncDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req syncRequest
		if len(c.Body()) > 0 {
			if err := json.Unmarshal(c.Body(), &req); err != nil {
				return apperr.Validation("invalid JSON body")
			}
		}

		res, err := docSvc.Sync(c.UserContext(), req.Directories)
		if err != nil {
			return err
		}

		return writeData(c, fiber.StatusOK, fiber.Map{
			"added":       res.Added,
			"removed":     res.Removed,
			"directories": res.Directories,
			"message":     fmt.Sprintf("sync complete: %d added, %d removed", res.Added, res.Removed),
		})
	}
}

func documentID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperr.Validation("invalid id format")
	}
	return id, nil
}

func parsePagination(c *fiber.Ctx, pag config.PaginationConfig) (page, limit int, err error) {
	page = 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, apperr.Validation("page must be a positive integer")
		}
	}

	limit = pag.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, apperr.Validation("limit must be a positive integer")
		}
	}
	if limit > pag.MaxLimit {
		return 0, 0, apperr.Validation("limit exceeds maximum").WithDetails(fiber.Map{"maxLimit": pag.MaxLimit})
	}
	return page, limit, nil
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
