package auth

import (
	"errors"

	"github.com/amirasaad/vatm/pkg/domain"
	authsvc "github.com/amirasaad/vatm/pkg/service/auth"
	"github.com/amirasaad/vatm/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

func Routes(app *fiber.App, authSvc *authsvc.Service) {
	app.Post("/auth/login", Login(authSvc))
}

// Login authenticates an account holder with account number and PIN and
// returns a JWT for that account.
func Login(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		token, _, err := authSvc.Login(c.UserContext(), input.Number, input.PIN)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredential) {
				return common.ProblemDetailsJSON(c, "Invalid account number or PIN", nil,
					"Account number or PIN is incorrect", fiber.StatusUnauthorized)
			}
			log.Errorf("Login failed for %s: %v", input.Number, err)
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", fiber.Map{"token": token})
	}
}
