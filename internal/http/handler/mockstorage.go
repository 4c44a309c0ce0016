package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"docvault/internal/storage"
)

// MockStoragePrefix is where the in-memory object store serves signed URLs.
const MockStoragePrefix = "/mock-storage"

// signedQuery returns the raw query of the request; signatures are computed over it.
func signedQuery(c *fiber.Ctx) (url.Values, error) {
	return url.ParseQuery(string(c.Context().QueryArgs().QueryString()))
}

func writeMockStorageError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrSignatureInvalid):
		return writeError(c, fiber.StatusForbidden, "SIGNATURE_INVALID", err.Error())
	case errors.Is(err, storage.ErrURLExpired):
		return writeError(c, fiber.StatusForbidden, "URL_EXPIRED", err.Error())
	case errors.Is(err, storage.ErrUploadNotIssued):
		return writeError(c, fiber.StatusForbidden, "UPLOAD_NOT_ISSUED", err.Error())
	case errors.Is(err, storage.ErrHeaderMismatch):
		return writeError(c, fiber.StatusBadRequest, "HEADER_MISMATCH", err.Error())
	case errors.Is(err, storage.ErrObjectNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
	default:
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "malformed storage request")
	}
}

// MockStoragePut accepts an upload against a URL signed by the local backend.
func MockStoragePut(store *storage.LocalBackend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Params are only valid for the request; the key outlives it.
		key := utils.CopyString(c.Params("*"))
		q, err := signedQuery(c)
		if err != nil {
			return writeMockStorageError(c, err)
		}
		if err := store.Verify(fiber.MethodPut, key, q); err != nil {
			return writeMockStorageError(c, err)
		}
		if err := store.Store(key, c.Get(fiber.HeaderContentType), c.Body()); err != nil {
			return writeMockStorageError(c, err)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}

// MockStorageGet serves an object against a URL signed by the local backend.
func MockStorageGet(store *storage.LocalBackend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("*")
		q, err := signedQuery(c)
		if err != nil {
			return writeMockStorageError(c, err)
		}
		if err := store.Verify(fiber.MethodGet, key, q); err != nil {
			return writeMockStorageError(c, err)
		}
		data, info, err := store.Open(key)
		if err != nil {
			return writeMockStorageError(c, err)
		}
		c.Set(fiber.HeaderContentType, info.ContentType)
		if cd := q.Get("response-content-disposition"); cd != "" {
			c.Set(fiber.HeaderContentDisposition, cd)
		}
		return c.Send(data)
	}
}
