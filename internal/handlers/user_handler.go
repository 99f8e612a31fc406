package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"comptes/internal/repositories"
	"comptes/internal/services"
)

// UserHandler handles HTTP requests for registration, email verification and
// user lookups.
type UserHandler struct {
	accountService *services.AccountService
	validate       *validator.Validate
	loginURL       string // where the confirmation page redirects to
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accountService *services.AccountService, loginURL string) *UserHandler {
	return &UserHandler{
		accountService: accountService,
		validate:       validator.New(),
		loginURL:       loginURL,
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Get("/verify-email", h.HandleVerifyEmail)
	router.Post("/resend-verification", h.HandleResendVerification)
	router.Get("/users", h.HandleListUsers)
	router.Get("/users/:id", h.HandleGetUser)
}

// HandleRegister handles new user registration. Every failure, including
// downstream ones, is reported as a 400 with {success:false, message} to
// keep the existing surface stable.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var input services.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return registerFailure(c, "Tous les champs sont requis")
	}

	if err := h.validate.Struct(input); err != nil {
		return registerFailure(c, "Tous les champs sont requis")
	}

	user, err := h.accountService.Register(&input)
	if err != nil {
		if services.IsDomainError(err) {
			return registerFailure(c, err.Error())
		}
		log.Printf("Error registering user: %v", err)
		return registerFailure(c, "Erreur lors de l'inscription")
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func registerFailure(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

var verifiedPageTemplate = template.Must(template.New("verified").Parse(`<!DOCTYPE html>
<html lang="fr">
	<head>
		<meta charset="UTF-8" />
		<meta name="viewport" content="width=device-width, initial-scale=1.0" />
		<title>Email vérifié</title>
		<style>
			body { font-family: 'Arial', sans-serif; background-color: #f0f4f8; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
			.container { background-color: white; padding: 40px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1); text-align: center; max-width: 400px; width: 100%; }
			h1 { color: #4CAF50; font-size: 24px; margin-bottom: 20px; }
			p { color: #333; font-size: 16px; margin-bottom: 30px; }
			.button { display: inline-block; padding: 12px 24px; background-color: #4CAF50; color: white; border-radius: 5px; text-decoration: none; font-weight: bold; }
			.redirect { color: #888; margin-top: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<h1>Email vérifié avec succès !</h1>
			<p>Votre email a bien été vérifié. Vous allez être redirigé vers la page de connexion.</p>
			<a href="{{.LoginURL}}" class="button">Aller à la connexion</a>
			<p class="redirect">Redirection automatique dans 3 secondes...</p>
		</div>
		<script>
			setTimeout(function() {
				window.location.href = '{{.LoginURL}}';
			}, 3000);
		</script>
	</body>
</html>`))

// HandleVerifyEmail consumes a verification token and flips the account to
// verified, answering with an HTML confirmation page that redirects to the
// login page.
func (h *UserHandler) HandleVerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")

	if _, err := h.accountService.VerifyEmail(token); err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusBadRequest).SendString(services.ErrInvalidToken.Error())
		}
		log.Printf("Error verifying email: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Erreur lors de la vérification de l'email")
	}

	var page bytes.Buffer
	if err := verifiedPageTemplate.Execute(&page, map[string]string{"LoginURL": h.loginURL}); err != nil {
		log.Printf("Error rendering confirmation page: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Erreur lors de la vérification de l'email")
	}

	c.Type("html", "utf-8")
	return c.Send(page.Bytes())
}

// ResendVerificationRequest represents the request body for resending the
// verification email.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResendVerification mints a fresh verification token for an
// unverified account and re-sends the email.
func (h *UserHandler) HandleResendVerification(c *fiber.Ctx) error {
	var req ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return registerFailure(c, "Tous les champs sont requis")
	}
	if err := h.validate.Struct(req); err != nil {
		return registerFailure(c, "Tous les champs sont requis")
	}

	if err := h.accountService.ResendVerification(req.Email); err != nil {
		if services.IsDomainError(err) {
			return registerFailure(c, err.Error())
		}
		log.Printf("Error resending verification email to %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Erreur lors de l'envoi de l'email de vérification",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email de vérification renvoyé",
	})
}

// HandleListUsers returns all users.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.accountService.GetUsers()
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Erreur lors de la récupération des utilisateurs",
		})
	}
	return c.JSON(users)
}

// HandleGetUser returns a single user by ID, or a JSON null when no user has
// that ID.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.accountService.GetUserByID(c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(nil)
		}
		log.Printf("Error getting user %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Erreur lors de la récupération de l'utilisateur",
		})
	}
	return c.JSON(user)
}
