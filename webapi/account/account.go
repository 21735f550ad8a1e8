package account

import (
	"strconv"

	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/middleware"
	"github.com/amirasaad/vatm/pkg/money"
	"github.com/amirasaad/vatm/pkg/service/auth"
	"github.com/amirasaad/vatm/pkg/service/ledger"
	"github.com/amirasaad/vatm/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routes registers the account endpoints. Everything under /accounts/:number
// requires a session for that same account. idem runs after the ownership
// check so a rejected request never fills an idempotency slot.
//
// Routes:
//   - POST /accounts                         : open an account
//   - GET  /accounts/:number                 : account details
//   - GET  /accounts/:number/balance         : current balance
//   - POST /accounts/:number/deposit         : deposit funds
//   - POST /accounts/:number/withdraw        : withdraw funds (PIN)
//   - POST /accounts/:number/transfer        : transfer to another account (PIN)
//   - PUT  /accounts/:number/pin             : change the PIN
//   - PUT  /accounts/:number/lock            : lock the account
//   - GET  /accounts/:number/history         : recent movements
//   - GET  /accounts/:number/movements/:id   : one movement
func Routes(
	app *fiber.App,
	svc *ledger.Service,
	authSvc *auth.Service,
	cfg *config.App,
	idem fiber.Handler,
) {
	app.Post("/accounts", idem, OpenAccount(svc))

	g := app.Group("/accounts/:number", middleware.JwtProtected(cfg.Auth.Jwt), common.RequireOwner(authSvc))
	g.Get("/", GetAccount(svc))
	g.Get("/balance", GetBalance(svc))
	g.Post("/deposit", idem, Deposit(svc))
	g.Post("/withdraw", idem, Withdraw(svc))
	g.Post("/transfer", idem, Transfer(svc))
	g.Put("/pin", idem, ChangePIN(svc))
	g.Put("/lock", idem, Lock(svc))
	g.Get("/history", History(svc))
	g.Get("/movements/:id", Receipt(svc))
}

// OpenAccount opens an ACTIVE account with an optional initial balance.
func OpenAccount(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[OpenAccountRequest](c)
		if input == nil {
			return err
		}
		initial := decimal.Zero
		if input.InitialBalance != "" {
			initial, err = decimal.NewFromString(input.InitialBalance)
			if err != nil {
				return common.ProblemDetailsJSON(c, "Invalid initial balance", domain.ErrInvalidAmount)
			}
		}
		view, err := svc.OpenAccount(c.UserContext(), ledger.NewAccount{
			Number:         input.Number,
			Holder:         input.Holder,
			PIN:            input.PIN,
			InitialBalance: initial,
		})
		if err != nil {
			log.Errorf("Failed to open account %s: %v", input.Number, err)
			return common.ProblemDetailsJSON(c, "Failed to open account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account opened", toAccountDTO(view))
	}
}

// GetAccount returns the account's public details.
func GetAccount(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		view, err := svc.GetAccount(c.UserContext(), number)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", toAccountDTO(view))
	}
}

// GetBalance returns the committed balance.
func GetBalance(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		balance, err := svc.GetBalance(c.UserContext(), number)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched",
			BalanceDTO{Number: number, Balance: money.Format(balance)})
	}
}

// Deposit credits the account.
func Deposit(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		log.Infof("Deposit handler: account %s, amount %s", number, amount)
		receipt, err := svc.Deposit(c.UserContext(), number, amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to deposit", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Deposit successful", toReceiptDTO(receipt))
	}
}

// Withdraw debits the account after checking the PIN.
func Withdraw(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		input, err := common.BindAndValidate[WithdrawRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		receipt, err := svc.Withdraw(c.UserContext(), number, amount, input.PIN)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to withdraw", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Withdrawal successful", toReceiptDTO(receipt))
	}
}

// Transfer moves funds to another account.
func Transfer(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		input, err := common.BindAndValidate[TransferRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		receipt, err := svc.Transfer(c.UserContext(), number, input.Destination, amount, input.PIN)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to transfer", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer successful", toTransferDTO(receipt))
	}
}

// ChangePIN replaces the account's PIN.
func ChangePIN(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		input, err := common.BindAndValidate[ChangePINRequest](c)
		if input == nil {
			return err
		}
		if err := svc.ChangeCredential(c.UserContext(), number, input.OldPIN, input.NewPIN); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to change PIN", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "PIN changed", nil)
	}
}

// Lock locks the account. The body is optional.
func Lock(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		reason := ""
		if len(c.Body()) > 0 {
			input, err := common.BindAndValidate[LockRequest](c)
			if input == nil {
				return err
			}
			reason = input.Reason
		}
		if err := svc.LockAccount(c.UserContext(), number, reason); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to lock account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account locked", nil)
	}
}

// History lists recent movements, newest first. ?limit= defaults to 10 and is capped at 100.
func History(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				return common.ProblemDetailsJSON(c, "Invalid limit", nil, "limit must be a non-negative integer")
			}
			limit = v
		}
		list, err := svc.History(c.UserContext(), number, limit)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch history", err)
		}
		dtos := make([]MovementDTO, 0, len(list))
		for _, m := range list {
			dtos = append(dtos, toMovementDTO(m))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "History fetched", dtos)
	}
}

// Receipt returns a single movement of the account.
func Receipt(svc *ledger.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Params("number")
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Movement not found", domain.ErrMovementNotFound)
		}
		m, err := svc.Receipt(c.UserContext(), number, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch movement", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Movement fetched", toMovementDTO(*m))
	}
}
