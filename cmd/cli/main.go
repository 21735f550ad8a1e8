package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/vatm/infra/initializer"
	"github.com/amirasaad/vatm/pkg/app"
	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/money"
	"github.com/amirasaad/vatm/pkg/service/ledger"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

const usage = `Usage: cli <command> [arguments]

Commands:
  open <number> <holder> [initial_balance]   open an account (asks for a PIN)
  seed                                       open the demo accounts
  balance <number>                           show the balance
  deposit <number> <amount>                  deposit funds
  withdraw <number> <amount>                 withdraw funds (asks for the PIN)
  transfer <from> <to> <amount>              transfer funds (asks for the PIN)
  pin <number>                               change the PIN
  lock <number> [reason]                     lock the account
  history <number> [limit]                   recent movements, newest first
  receipt <number> <movement_id>             one movement`

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return
	}
	cfg, err := config.Load(".env")
	if err != nil {
		errColor.Fprintln(os.Stderr, "Failed to load configuration:", err) //nolint:errcheck
		os.Exit(1)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		errColor.Fprintln(os.Stderr, "Failed to initialize:", err) //nolint:errcheck
		os.Exit(1)
	}
	a := app.New(deps, cfg)

	c := &cli{svc: a.Ledger, out: os.Stdout, prompt: terminalPrompt(os.Stdin)}
	err = c.run(context.Background(), os.Args[1:])
	a.Close()
	if err != nil {
		errColor.Fprintln(os.Stderr, "Error:", err) //nolint:errcheck
		os.Exit(1)
	}
}

// promptFunc asks the user for a secret.
type promptFunc func(label string) (string, error)

// terminalPrompt reads without echo when in is a terminal and falls back to
// one line per secret otherwise.
func terminalPrompt(in *os.File) promptFunc {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return linePrompt(in)
	}
	return func(label string) (string, error) {
		fmt.Fprint(os.Stderr, label+": ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
}

func linePrompt(r io.Reader) promptFunc {
	scanner := bufio.NewScanner(r)
	return func(string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(scanner.Text()), nil
	}
}

type cli struct {
	svc    *ledger.Service
	out    io.Writer
	prompt promptFunc
}

var (
	errUsage       = errors.New("wrong number of arguments")
	errPINMismatch = errors.New("PINs do not match")
)

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]
	need := func(n int) error {
		if len(args) < n {
			fmt.Fprintln(c.out, usage)
			return errUsage
		}
		return nil
	}

	switch cmd {
	case "open":
		if err := need(2); err != nil {
			return err
		}
		initial := money.Zero
		if len(args) > 2 {
			v, err := decimal.NewFromString(args[2])
			if err != nil {
				return domain.ErrInvalidAmount
			}
			if err := money.ValidateBalance(v); err != nil {
				return err
			}
			initial = v
		}
		pin, err := c.newPIN()
		if err != nil {
			return err
		}
		view, err := c.svc.OpenAccount(ctx, ledger.NewAccount{
			Number: args[0], Holder: args[1], PIN: pin, InitialBalance: initial,
		})
		if err != nil {
			return err
		}
		c.ok("Account %s opened for %s. Balance: %s", view.Number, view.Holder, money.Format(view.Balance))
	case "seed":
		if err := c.svc.SeedDemo(ctx); err != nil {
			return err
		}
		c.ok("Demo accounts ready")
	case "balance":
		if err := need(1); err != nil {
			return err
		}
		balance, err := c.svc.GetBalance(ctx, args[0])
		if err != nil {
			return err
		}
		c.ok("Balance of %s: %s", args[0], money.Format(balance))
	case "deposit":
		if err := need(2); err != nil {
			return err
		}
		amount, err := money.Parse(args[1])
		if err != nil {
			return err
		}
		r, err := c.svc.Deposit(ctx, args[0], amount)
		if err != nil {
			return err
		}
		c.ok("Deposited %s to %s. New balance: %s (movement %s)", money.Format(amount), r.AccountNumber, money.Format(r.Balance), r.MovementID)
	case "withdraw":
		if err := need(2); err != nil {
			return err
		}
		amount, err := money.Parse(args[1])
		if err != nil {
			return err
		}
		pin, err := c.prompt("PIN")
		if err != nil {
			return err
		}
		r, err := c.svc.Withdraw(ctx, args[0], amount, pin)
		if err != nil {
			return err
		}
		c.ok("Withdrew %s from %s. New balance: %s (movement %s)", money.Format(amount), r.AccountNumber, money.Format(r.Balance), r.MovementID)
	case "transfer":
		if err := need(3); err != nil {
			return err
		}
		amount, err := money.Parse(args[2])
		if err != nil {
			return err
		}
		pin, err := c.prompt("PIN")
		if err != nil {
			return err
		}
		r, err := c.svc.Transfer(ctx, args[0], args[1], amount, pin)
		if err != nil {
			return err
		}
		c.ok("Transferred %s from %s to %s. New balance: %s", money.Format(amount), r.Source, r.Destination, money.Format(r.SourceBalance))
	case "pin":
		if err := need(1); err != nil {
			return err
		}
		old, err := c.prompt("Current PIN")
		if err != nil {
			return err
		}
		pin, err := c.newPIN()
		if err != nil {
			return err
		}
		if err := c.svc.ChangeCredential(ctx, args[0], old, pin); err != nil {
			return err
		}
		c.ok("PIN changed for %s", args[0])
	case "lock":
		if err := need(1); err != nil {
			return err
		}
		reason := strings.Join(args[1:], " ")
		if err := c.svc.LockAccount(ctx, args[0], reason); err != nil {
			return err
		}
		c.ok("Account %s locked", args[0])
	case "history":
		if err := need(1); err != nil {
			return err
		}
		limit := 0
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v < 0 {
				return fmt.Errorf("invalid limit %q", args[1])
			}
			limit = v
		}
		list, err := c.svc.History(ctx, args[0], limit)
		if err != nil {
			return err
		}
		c.printMovements(list)
	case "receipt":
		if err := need(2); err != nil {
			return err
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return domain.ErrMovementNotFound
		}
		m, err := c.svc.Receipt(ctx, args[0], id)
		if err != nil {
			return err
		}
		c.printMovements([]ledger.MovementView{*m})
	default:
		fmt.Fprintln(c.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (c *cli) newPIN() (string, error) {
	pin, err := c.prompt("New PIN")
	if err != nil {
		return "", err
	}
	confirm, err := c.prompt("Repeat PIN")
	if err != nil {
		return "", err
	}
	if pin != confirm {
		return "", errPINMismatch
	}
	return pin, nil
}

func (c *cli) ok(format string, args ...any) {
	okColor.Fprintf(c.out, format+"\n", args...) //nolint:errcheck
}

func (c *cli) printMovements(list []ledger.MovementView) {
	headColor.Fprintf(c.out, "%-36s  %-12s  %14s  %14s  %s\n", "ID", "KIND", "AMOUNT", "BALANCE", "DATE") //nolint:errcheck
	for _, m := range list {
		fmt.Fprintf(c.out, "%-36s  %-12s  %14s  %14s  %s\n",
			m.ID, m.Kind, money.Format(m.Amount), money.Format(m.ResultingBalance), m.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
