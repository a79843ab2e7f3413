package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// DefaultWhatsAppRegion is the region used to parse contact numbers entered
// without a country prefix.
var DefaultWhatsAppRegion = "US"

// EnsureAccountMessage provisions a marketplace account record with its role
// ahead of (or independent of) the first role resolution: the storefront
// sign-up flow dispatches it so the record usually exists before the first
// lookup ever misses.
type EnsureAccountMessage struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	WhatsApp  string `json:"whatsapp_number"`
	Role      string `json:"role"`
	UseHashid bool   `json:"-"`
}

func (e EnsureAccountMessage) Type() string { return "account.ensure" }

// Validate will run validation rules
func (e EnsureAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Role, validation.By(validateOptionalRole)),
		validation.Field(&e.WhatsApp, validation.By(validateWhatsApp)),
	)
}

// EnsureAccountHandler executes EnsureAccountMessage against the account
// repository.
type EnsureAccountHandler struct {
	repo RepositoryManager
}

// NewEnsureAccountHandler returns a handler bound to repo.
func NewEnsureAccountHandler(repo RepositoryManager) *EnsureAccountHandler {
	return &EnsureAccountHandler{repo: repo}
}

func (h *EnsureAccountHandler) Execute(ctx context.Context, event EnsureAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *EnsureAccountHandler) execute(ctx context.Context, event EnsureAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account provisioning payload").
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID := event.UserID
	if userID == "" && event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			userID = id.String()
		}
	}
	if userID == "" {
		return goerrors.New("account provisioning requires a user id", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	role, ok := ParseRole(event.Role)
	if !ok {
		role = RoleBuyer
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Accounts().UpsertDefaultRoleTx(ctx, tx, userID, event.Email, role); err != nil {
			return err
		}

		if event.WhatsApp == "" {
			return nil
		}

		contact := normalizeWhatsApp(event.WhatsApp)
		record := &User{WhatsApp: contact}
		_, err := tx.NewUpdate().
			Model(record).
			Column("whatsapp_number").
			Where("?TableAlias.id = ?", userID).
			Exec(ctx)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account provisioning transaction failed")
	}

	return nil
}

func validateOptionalRole(value any) error {
	role, _ := value.(string)
	if role == "" {
		return nil
	}
	if !IsValidRole(role) {
		return goerrors.New("unknown marketplace role", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"role": role})
	}
	return nil
}

func validateWhatsApp(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, DefaultWhatsAppRegion)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "could not parse WhatsApp number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid WhatsApp number", goerrors.CategoryValidation)
	}

	return nil
}

func normalizeWhatsApp(raw string) string {
	num, err := phonenumbers.Parse(raw, DefaultWhatsAppRegion)
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
