package devserver

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Server is an in-memory stand-in for the RAG backend, good enough to drive
// the console and admin binaries without the real service.
type Server struct {
	app   *fiber.App
	store *memStore
	stop  chan struct{}
}

func New() *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB, matches the real upload limit
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type, Authorization",
	}))

	app.Use(otelfiber.Middleware())

	store := newMemStore()
	s := &Server{
		app:   app,
		store: store,
		stop:  make(chan struct{}),
	}
	s.registerRoutes()

	return s
}

// GetApp exposes the fiber app for tests.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	port := os.Getenv("DEVSERVER_PORT")
	if port == "" {
		port = "8000"
	}
	go s.store.runIngest(10*time.Second, s.stop)
	log.Printf("Devserver is running on http://localhost:%s", port)
	return s.app.Listen(":" + port)
}

func (s *Server) Shutdown() error {
	close(s.stop)
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	// Auth & users
	api.Post("/session", s.login)
	api.Delete("/session", jwtMiddleware, s.logout)
	api.Post("/users", s.register)
	api.Get("/user", jwtMiddleware, s.currentUser)
	api.Post("/users/:id", jwtMiddleware, s.updateUser)

	// Conversation
	api.Post("/query", jwtMiddleware, s.query)
	api.Get("/history", jwtMiddleware, s.history)

	// Documents (admin surface)
	api.Post("/upload", jwtMiddleware, adminOnly, s.upload)
	api.Get("/get_uploaded_documents", jwtMiddleware, adminOnly, s.uploadedDocuments)
	api.Get("/get_rag_documents", jwtMiddleware, adminOnly, s.processedDocuments)
	api.Delete("/delete_document/:name", jwtMiddleware, adminOnly, s.deleteDocument)
}
