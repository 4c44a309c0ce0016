package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	// DB is pinged by /health. Leave nil when the repository is in memory.
	DB   Pinger
	Docs service.DocumentService
	// MockStorage, when set, serves the signed URLs of the in-memory object store.
	MockStorage *storage.LocalBackend
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.MockStorage != nil {
		app.Put(MockStoragePrefix+"/*", MockStoragePut(deps.MockStorage))
		app.Get(MockStoragePrefix+"/*", MockStorageGet(deps.MockStorage))
	}

	api := app.Group("/api/v1", middleware.Actor())

	docs := api.Group("/documents")
	docs.Post("/upload-url", RequestUpload(deps.Docs))
	docs.Get("/", ListDocuments(deps.Docs))
	docs.Get("/:id", GetDocument(deps.Docs))
	docs.Patch("/:id", UpdateDocument(deps.Docs))
	docs.Delete("/:id", DeleteDocument(deps.Docs))
	docs.Post("/:id/confirm", ConfirmUpload(deps.Docs))
	docs.Get("/:id/download-url", DownloadURL(deps.Docs))
	docs.Put("/:id/sharing", SetSharing(deps.Docs))

	api.Get("/patients/:patientId/documents", ListPatientDocuments(deps.Docs))
	api.Get("/patients/:patientId/documents/stats", PatientStats(deps.Docs))
	api.Get("/appointments/:appointmentId/documents", ListAppointmentDocuments(deps.Docs))
	api.Get("/users/:userId/documents", ListUploaderDocuments(deps.Docs))
}
