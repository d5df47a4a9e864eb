package devserver

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"ragchat-console/internal/dto"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid body"})
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail != "" && req.Email == adminEmail && req.Password == adminPassword {
		token, err := issueToken("admin")
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
		return ctx.JSON(dto.LoginResponse{JwtToken: token, IsAdmin: true})
	}

	u, ok := s.store.userByEmail(req.Email)
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Invalid credentials"})
	}

	token, err := issueToken(u.Id)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return ctx.JSON(dto.LoginResponse{JwtToken: token, IsAdmin: false})
}

func (s *Server) logout(ctx *fiber.Ctx) error {
	// Tokens are stateless; logout is a courtesy acknowledgement.
	return ctx.JSON(fiber.Map{"message": "Logout successful"})
}

func (s *Server) register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Email and password are required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	u := &user{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if !s.store.addUser(u) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Email already registered"})
	}
	return ctx.JSON(dto.UserResponse{Id: u.Id})
}

func (s *Server) currentUser(ctx *fiber.Ctx) error {
	id, _ := ctx.Locals("user_id").(string)
	return ctx.JSON(dto.UserResponse{Id: id})
}

func (s *Server) updateUser(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	u, ok := s.store.userById(id)
	if !ok && id != "admin" {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	}

	var req dto.UpdateUserRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid body"})
	}
	if u != nil {
		if req.Name != "" {
			u.Name = req.Name
		}
		if req.Email != "" {
			u.Email = req.Email
		}
		if req.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
			}
			u.PasswordHash = hash
		}
	}
	return ctx.JSON(fiber.Map{"message": "User updated"})
}

func (s *Server) query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid body"})
	}

	// Canned answer with provenance drawn from the processed set, so the
	// console's disclosure flow can be exercised end to end.
	res := dto.QueryResponse{
		Answer: fmt.Sprintf("(%s) You asked: %q. This is a canned devserver answer.", req.Model, req.Text),
	}
	_, processed := s.store.documents()
	if len(processed) > 0 {
		res.KeywordMetadata = processed[0]
		res.KeywordContext = fmt.Sprintf("Keyword match for %q in %s.", req.Text, processed[0])
		res.SemanticMetadata = processed[len(processed)-1]
		res.SemanticContext = fmt.Sprintf("Semantic match for %q in %s.", req.Text, processed[len(processed)-1])
	}

	userId, _ := ctx.Locals("user_id").(string)
	s.store.appendHistory(dto.HistoryRecord{
		Query:            req.Text,
		Answer:           res.Answer,
		KeywordMetadata:  res.KeywordMetadata,
		KeywordContext:   res.KeywordContext,
		SemanticMetadata: res.SemanticMetadata,
		SemanticContext:  res.SemanticContext,
		UserId:           userId,
	})

	return ctx.JSON(res)
}

func (s *Server) history(ctx *fiber.Ctx) error {
	return ctx.JSON(s.store.historyRecords())
}

func (s *Server) upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing file"})
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "Only PDF files are allowed"})
	}

	s.store.addUploaded(fileHeader.Filename)
	return ctx.JSON(dto.UploadResponse{Message: "Successfully uploaded"})
}

func (s *Server) uploadedDocuments(ctx *fiber.Ctx) error {
	uploaded, _ := s.store.documents()
	return ctx.JSON(dto.DocumentsResponse{Documents: uploaded})
}

func (s *Server) processedDocuments(ctx *fiber.Ctx) error {
	_, processed := s.store.documents()
	return ctx.JSON(dto.DocumentsResponse{Documents: processed})
}

func (s *Server) deleteDocument(ctx *fiber.Ctx) error {
	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid document name"})
	}
	s.store.deleteDocument(name)
	return ctx.JSON(fiber.Map{"message": "Deleted"})
}
