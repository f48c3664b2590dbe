// internal/service/template_service.go
package service

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

const DefaultEmailTemplate = `Write a concise outreach email to {{first_name}} at {{company}} (title: {{title}}).
Product: Mistral – AI CRM that automates prospecting so reps can focus on closing.
Goal: book a short call. Tone: professional, brief, personalized. 90–120 words. Add a clear CTA to propose a time. Language: {{language}}.`

var DefaultActionTemplates = map[model.ActionType]string{
	model.ActionSendConnection: "Write a concise LinkedIn connection note to {{first_name}} ({{title}} at {{company}}). Goal: get accepted and book a short intro call. 180–250 chars max. Language: {{language}}.",
	model.ActionFollowUpMsg:    "Write a brief LinkedIn DM after connection acceptance to {{first_name}} at {{company}} (title: {{title}}). Value-driven, propose 2 time slots. 120–200 words. Language: {{language}}.",
}

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// RenderTemplate substitutes {{name}} placeholders; unknown names render empty.
func RenderTemplate(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return data[key]
	})
}

// LanguageName turns a campaign language code into an English display name.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return "English"
	}
	base, _ := tag.Base()
	name := display.English.Languages().Name(language.Make(base.String()))
	if name == "" {
		return "English"
	}
	return name
}

// ProspectVars are the substitutions available to prompt templates.
func ProspectVars(p *model.Prospect, campaignLanguage string) map[string]string {
	return map[string]string{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"company":    p.Company,
		"title":      p.Title,
		"language":   LanguageName(campaignLanguage),
	}
}

// TemplateResolver walks the prompt precedence chain: step template, the
// account's saved template, the global saved template, then the built-in default.
type TemplateResolver struct {
	Accounts repository.AccountRepositoryInterface
}

func (r *TemplateResolver) Resolve(ctx context.Context, accountID string, scope model.TemplateScope, languageCode string, stepTemplate *string, fallback string) (string, error) {
	if stepTemplate != nil && strings.TrimSpace(*stepTemplate) != "" {
		return *stepTemplate, nil
	}
	t, err := r.Accounts.FindAccountTemplate(ctx, accountID, scope, languageCode)
	if err != nil {
		return "", fmt.Errorf("account template: %w", err)
	}
	if t != nil {
		return t.Body, nil
	}
	t, err = r.Accounts.FindGlobalTemplate(ctx, scope, languageCode)
	if err != nil {
		return "", fmt.Errorf("global template: %w", err)
	}
	if t != nil {
		return t.Body, nil
	}
	return fallback, nil
}

// EmailSubject is the subject line used for generated step emails.
func EmailSubject(p *model.Prospect) string {
	return "Quick question, " + p.FirstName
}

// WrapEmailBody renders generated plain text as the HTML email body.
func WrapEmailBody(text string) string {
	body := strings.ReplaceAll(html.EscapeString(text), "\n", "<br/>")
	return `<div style="font-family:ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial,sans-serif;line-height:1.5;font-size:16px;color:#0f172a">` +
		body + `</div>`
}

// InjectTrackingPixel places an invisible 1x1 image referencing token before
// </body>, or appends it when the body has no closing tag.
func InjectTrackingPixel(body, token, baseURL string) string {
	pixel := fmt.Sprintf(`<img src="%s/api/t.gif?m=%s" alt="" width="1" height="1" style="display:none" />`,
		strings.TrimRight(baseURL, "/"), token)
	if strings.Contains(body, "</body>") {
		return strings.Replace(body, "</body>", pixel+"</body>", 1)
	}
	return body + pixel
}
