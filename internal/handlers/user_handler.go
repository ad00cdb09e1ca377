package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
)

// UserHandler handles HTTP requests for mentor discovery and profiles.
type UserHandler struct {
	userService *services.UserService
	validate    *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the user routes with the Fiber app. Every route
// requires authentication; the by-ID lookup is additionally admin-only.
func (h *UserHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	userRoutes := router.Group("/users", authRequired)
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Put("/profile", h.HandleUpdateProfile)
	userRoutes.Get("/:id", middleware.RoleRequired(models.RoleAdmin), h.HandleGetUserByID)
}

// HandleListUsers returns other users for the mentor discovery page.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	users, err := h.userService.ListMentors(user.ID)
	if err != nil {
		log.Printf("Error listing mentors for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Server error.",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
}

// HandleUpdateProfile updates the caller's own profile. Only whitelisted
// fields are applied; anything else in the body is ignored.
func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var update services.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		log.Printf("Error parsing profile update body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if errs := validationErrors(h.validate, update); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"errors":  errs,
		})
	}

	updated, err := h.userService.UpdateProfile(user.ID, update)
	if err != nil {
		log.Printf("Error updating profile for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update profile.",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    updated,
	})
}

// HandleGetUserByID returns a single user record. Admin only.
func (h *UserHandler) HandleGetUserByID(c *fiber.Ctx) error {
	id := c.Params("id")
	user, err := h.userService.GetUser(id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": fmt.Sprintf("User with ID %s not found.", id),
			})
		}
		log.Printf("Error getting user %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Server error.",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
