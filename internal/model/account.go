// internal/model/account.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID                 string  `db:"id" json:"id"`
	Email              string  `db:"email" json:"email"`
	OpenAIKeyEncrypted *string `db:"openai_api_key" json:"-"`
}

type SMTPCredential struct {
	AccountID         string  `db:"account_id" json:"account_id"`
	Host              string  `db:"host" json:"host"`
	Port              int     `db:"port" json:"port"`
	Username          string  `db:"username" json:"username"`
	PasswordEncrypted string  `db:"password_encrypted" json:"-"`
	FromEmail         string  `db:"from_email" json:"from_email"`
	FromName          *string `db:"from_name" json:"from_name,omitempty"`
}

type TemplateScope string

const (
	ScopeEmail    TemplateScope = "email"
	ScopeLinkedIn TemplateScope = "linkedin"
)

// Template is a saved prompt template. A nil AccountID marks a global template.
type Template struct {
	ID        string        `db:"id" json:"id"`
	AccountID *string       `db:"account_id" json:"account_id,omitempty"`
	Scope     TemplateScope `db:"scope" json:"scope"`
	Language  string        `db:"language" json:"language"`
	Body      string        `db:"body" json:"body"`
}

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID        string          `db:"id" json:"id"`
	AccountID string          `db:"account_id" json:"account_id"`
	Number    string          `db:"number" json:"number"`
	Status    InvoiceStatus   `db:"status" json:"status"`
	DueDate   time.Time       `db:"due_date" json:"due_date"`
	Total     decimal.Decimal `db:"total" json:"total"`
}

type Notification struct {
	AccountID string `json:"account_id"`
	Type      string `json:"type"`
	Count     int    `json:"count"`
}
