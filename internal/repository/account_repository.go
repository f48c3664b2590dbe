package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// AccountRepositoryInterface covers per-account collaborator settings:
// transport credentials, generation keys, saved templates and notifications.
type AccountRepositoryInterface interface {
	GetSMTPCredential(ctx context.Context, accountID string) (*model.SMTPCredential, error)
	GetOpenAIKey(ctx context.Context, accountID string) (string, error)
	FindAccountTemplate(ctx context.Context, accountID string, scope model.TemplateScope, language string) (*model.Template, error)
	FindGlobalTemplate(ctx context.Context, scope model.TemplateScope, language string) (*model.Template, error)
	InsertNotification(ctx context.Context, n *model.Notification) error
}

type AccountRepository struct {
	DB *sqlx.DB
}

// GetSMTPCredential returns nil without error when none is configured.
func (r *AccountRepository) GetSMTPCredential(ctx context.Context, accountID string) (*model.SMTPCredential, error) {
	var c model.SMTPCredential
	query := `
        SELECT account_id, host, port, username, password_encrypted, from_email, from_name
        FROM smtp_credentials WHERE account_id=$1
        LIMIT 1
    `
	if err := db.Conn(ctx, r.DB).GetContext(ctx, &c, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetOpenAIKey returns the encrypted key, or "" when the account has none.
func (r *AccountRepository) GetOpenAIKey(ctx context.Context, accountID string) (string, error) {
	var key *string
	err := db.Conn(ctx, r.DB).GetContext(ctx, &key, `SELECT openai_api_key FROM accounts WHERE id=$1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if key == nil {
		return "", nil
	}
	return *key, nil
}

func (r *AccountRepository) FindAccountTemplate(ctx context.Context, accountID string, scope model.TemplateScope, language string) (*model.Template, error) {
	query := `
        SELECT id, account_id, scope, language, body FROM ai_templates
        WHERE account_id=$1 AND scope=$2 AND language=$3
        ORDER BY created_at DESC LIMIT 1
    `
	return r.findTemplate(ctx, query, accountID, scope, language)
}

func (r *AccountRepository) FindGlobalTemplate(ctx context.Context, scope model.TemplateScope, language string) (*model.Template, error) {
	query := `
        SELECT id, account_id, scope, language, body FROM ai_templates
        WHERE account_id IS NULL AND scope=$1 AND language=$2
        ORDER BY created_at DESC LIMIT 1
    `
	return r.findTemplate(ctx, query, scope, language)
}

func (r *AccountRepository) findTemplate(ctx context.Context, query string, args ...interface{}) (*model.Template, error) {
	var t model.Template
	if err := db.Conn(ctx, r.DB).GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *AccountRepository) InsertNotification(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(map[string]int{"count": n.Count})
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, r.DB).ExecContext(ctx,
		`INSERT INTO user_notifications (account_id, type, payload) VALUES ($1, $2, $3)`,
		n.AccountID, n.Type, types.JSONText(payload))
	return err
}

// UpsertAccount creates the account row or refreshes its email and sealed key.
func (r *AccountRepository) UpsertAccount(ctx context.Context, a *model.Account) error {
	query := `
        INSERT INTO accounts (id, email, openai_api_key) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, openai_api_key = EXCLUDED.openai_api_key
    `
	_, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, a.ID, a.Email, a.OpenAIKeyEncrypted)
	return err
}

func (r *AccountRepository) UpsertSMTPCredential(ctx context.Context, c *model.SMTPCredential) error {
	query := `
        INSERT INTO smtp_credentials (account_id, host, port, username, password_encrypted, from_email, from_name)
        VALUES (:account_id, :host, :port, :username, :password_encrypted, :from_email, :from_name)
        ON CONFLICT (account_id) DO UPDATE SET
            host = EXCLUDED.host,
            port = EXCLUDED.port,
            username = EXCLUDED.username,
            password_encrypted = EXCLUDED.password_encrypted,
            from_email = EXCLUDED.from_email,
            from_name = EXCLUDED.from_name
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, c)
	return err
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
