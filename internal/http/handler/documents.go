package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/service"
)

type sharingRequest struct {
	IsSharedWithPatient *bool `json:"is_shared_with_patient"`
}

// actorOrAbort returns the identity stored by middleware.Actor.
func actorOrAbort(c *fiber.Ctx) (model.Actor, error) {
	a, ok := middleware.GetActor(c)
	if !ok {
		return model.Actor{}, fiber.ErrUnauthorized
	}
	return a, nil
}

// param copies a route parameter out of the request buffer; values reach spans exported later.
func param(c *fiber.Ctx, name string) string {
	return utils.CopyString(c.Params(name))
}

// documentID validates the :id route parameter.
func documentID(c *fiber.Ctx) (string, bool) {
	id := param(c, "id")
	_, err := uuid.Parse(id)
	return id, err == nil
}

// RequestUpload godoc
// @Summary  Request a signed upload URL
// @Tags     documents
// @Accept   json
// @Produce  json
// @Param    X-Actor-ID   header string              true "actor id"
// @Param    X-Actor-Role header string              true "PATIENT, DOCTOR or STAFF"
// @Param    body         body   service.UploadInput true "file description"
// @Success  201 {object} service.UploadResult
// @Failure  400 {object} errorPayload
// @Router   /api/v1/documents/upload-url [post]
func RequestUpload(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		var in service.UploadInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := svc.RequestUpload(c.UserContext(), actor, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ConfirmUpload godoc
// @Summary  Verify uploaded bytes and activate the document
// @Tags     documents
// @Produce  json
// @Param    id path string true "document id"
// @Success  200 {object} model.Document
// @Failure  400 {object} errorPayload
// @Router   /api/v1/documents/{id}/confirm [post]
func ConfirmUpload(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.ConfirmUpload(c.UserContext(), actor, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ListDocuments godoc
// @Summary  List documents visible to the actor
// @Tags     documents
// @Produce  json
// @Param    patient_id     query string false "patient id"
// @Param    appointment_id query string false "appointment id"
// @Param    uploader_id    query string false "uploader id"
// @Param    category       query string false "category"
// @Param    status         query string false "pending, active or quarantined"
// @Param    shared         query bool   false "shared with patient"
// @Param    from           query string false "created at or after (RFC 3339)"
// @Param    to             query string false "created at or before (RFC 3339)"
// @Param    sort           query string false "created_at, updated_at or file_name"
// @Param    order          query string false "asc or desc"
// @Param    limit          query int    false "page size"
// @Param    offset         query int    false "offset"
// @Success  200 {object} service.DocumentListResult
// @Router   /api/v1/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		in, code, msg := parseListInput(c)
		if code != "" {
			return writeError(c, fiber.StatusBadRequest, code, msg)
		}
		res, err := svc.List(c.UserContext(), actor, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// parseListInput reads list query parameters. A non-empty code names the first invalid parameter.
func parseListInput(c *fiber.Ctx) (in service.ListInput, code, msg string) {
	var err error
	if in.Limit, err = strconv.Atoi(c.Query("limit", "0")); err != nil {
		return in, "INVALID_LIMIT", "invalid limit"
	}
	if in.Offset, err = strconv.Atoi(c.Query("offset", "0")); err != nil || in.Offset < 0 {
		return in, "INVALID_OFFSET", "invalid offset"
	}

	in.Sort = model.DefaultSort
	if s := c.Query("sort"); s != "" {
		in.Sort.Field = model.SortField(s)
		if !in.Sort.Field.Valid() {
			return in, "INVALID_SORT", "invalid sort field"
		}
	}
	switch strings.ToLower(c.Query("order", "desc")) {
	case "asc":
		in.Sort.Desc = false
	case "desc":
		in.Sort.Desc = true
	default:
		return in, "INVALID_ORDER", "order must be asc or desc"
	}

	f := model.DocumentFilter{
		PatientID:     c.Query("patient_id"),
		AppointmentID: c.Query("appointment_id"),
		UploaderID:    c.Query("uploader_id"),
		Category:      c.Query("category"),
		Status:        model.Status(c.Query("status")),
	}
	if v := c.Query("shared"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, "INVALID_SHARED", "shared must be a boolean"
		}
		f.IsShared = &b
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.CreatedFrom}, {"to", &f.CreatedTo}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return in, "INVALID_DATE", p.name + " must be an RFC 3339 timestamp"
		}
		*p.dst = &t
	}
	in.Filter = f
	return in, "", ""
}

// GetDocument godoc
// @Summary  Get document metadata
// @Tags     documents
// @Produce  json
// @Param    id path string true "document id"
// @Success  200 {object} model.Document
// @Failure  404 {object} errorPayload
// @Router   /api/v1/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), actor, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadURL godoc
// @Summary  Get a signed download URL
// @Tags     documents
// @Produce  json
// @Param    id path string true "document id"
// @Success  200 {object} storage.DownloadTicket
// @Failure  404 {object} errorPayload
// @Router   /api/v1/documents/{id}/download-url [get]
func DownloadURL(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		ticket, err := svc.DownloadURL(c.UserContext(), actor, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(ticket)
	}
}

// UpdateDocument godoc
// @Summary  Update document metadata
// @Tags     documents
// @Accept   json
// @Produce  json
// @Param    id   path string               true "document id"
// @Param    body body model.DocumentUpdate true "fields to change"
// @Success  200 {object} model.Document
// @Router   /api/v1/documents/{id} [patch]
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var u model.DocumentUpdate
		if err := c.BodyParser(&u); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := svc.Update(c.UserContext(), actor, id, u)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// SetSharing godoc
// @Summary  Share or unshare a document with its patient
// @Tags     documents
// @Accept   json
// @Produce  json
// @Param    id   path string         true "document id"
// @Param    body body sharingRequest true "sharing flag"
// @Success  200 {object} model.Document
// @Router   /api/v1/documents/{id}/sharing [put]
func SetSharing(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req sharingRequest
		if err := c.BodyParser(&req); err != nil || req.IsSharedWithPatient == nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "is_shared_with_patient is required")
		}
		doc, err := svc.SetSharing(c.UserContext(), actor, id, *req.IsSharedWithPatient)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument godoc
// @Summary  Soft-delete a document
// @Tags     documents
// @Param    id path string true "document id"
// @Success  204
// @Failure  404 {object} errorPayload
// @Router   /api/v1/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), actor, id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListPatientDocuments godoc
// @Summary  List a patient's documents
// @Tags     patients
// @Produce  json
// @Param    patientId path string true "patient id"
// @Success  200 {array} model.Document
// @Router   /api/v1/patients/{patientId}/documents [get]
func ListPatientDocuments(svc service.DocumentService) fiber.Handler {
	return scopedList(func(c *fiber.Ctx, actor model.Actor) ([]model.Document, error) {
		return svc.ListByPatient(c.UserContext(), actor, param(c, "patientId"))
	})
}

// ListAppointmentDocuments godoc
// @Summary  List documents linked to an appointment
// @Tags     appointments
// @Produce  json
// @Param    appointmentId path string true "appointment id"
// @Success  200 {array} model.Document
// @Router   /api/v1/appointments/{appointmentId}/documents [get]
func ListAppointmentDocuments(svc service.DocumentService) fiber.Handler {
	return scopedList(func(c *fiber.Ctx, actor model.Actor) ([]model.Document, error) {
		return svc.ListByAppointment(c.UserContext(), actor, param(c, "appointmentId"))
	})
}

// ListUploaderDocuments godoc
// @Summary  List documents created by a user
// @Tags     users
// @Produce  json
// @Param    userId path string true "uploader id"
// @Success  200 {array} model.Document
// @Router   /api/v1/users/{userId}/documents [get]
func ListUploaderDocuments(svc service.DocumentService) fiber.Handler {
	return scopedList(func(c *fiber.Ctx, actor model.Actor) ([]model.Document, error) {
		return svc.ListByUploader(c.UserContext(), actor, param(c, "userId"))
	})
}

func scopedList(list func(c *fiber.Ctx, actor model.Actor) ([]model.Document, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		docs, err := list(c, actor)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": docs, "total": len(docs)})
	}
}

// PatientStats godoc
// @Summary  Document statistics for a patient
// @Tags     patients
// @Produce  json
// @Param    patientId path string true "patient id"
// @Success  200 {object} model.DocumentStats
// @Router   /api/v1/patients/{patientId}/documents/stats [get]
func PatientStats(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOrAbort(c)
		if err != nil {
			return err
		}
		stats, err := svc.Stats(c.UserContext(), actor, param(c, "patientId"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(stats)
	}
}
