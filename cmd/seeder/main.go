// cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/logger"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type seedOptions struct {
	accountID string
	email     string
	plan      string
	openAIKey string
	smtpHost  string
	smtpPort  int
	smtpUser  string
	smtpPass  string
}

func main() {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Create a demo account with credentials and one campaign",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.accountID, "account", "demo-account", "account id")
	f.StringVar(&opts.email, "email", "demo@example.com", "account email, also used as sender")
	f.StringVar(&opts.plan, "plan", string(model.PlanPro), "plan: starter, pro or business")
	f.StringVar(&opts.openAIKey, "openai-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key stored sealed")
	f.StringVar(&opts.smtpHost, "smtp-host", "localhost", "SMTP host")
	f.IntVar(&opts.smtpPort, "smtp-port", 1025, "SMTP port")
	f.StringVar(&opts.smtpUser, "smtp-user", "demo", "SMTP username")
	f.StringVar(&opts.smtpPass, "smtp-pass", "demo", "SMTP password stored sealed")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sealer := a.Sealer
	accounts := &repository.AccountRepository{DB: a.DB}

	account := &model.Account{ID: opts.accountID, Email: opts.email}
	if opts.openAIKey != "" {
		sealed, err := sealer.Seal(opts.openAIKey)
		if err != nil {
			return err
		}
		account.OpenAIKeyEncrypted = &sealed
	}
	if err := accounts.UpsertAccount(ctx, account); err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	sealedPass, err := sealer.Seal(opts.smtpPass)
	if err != nil {
		return err
	}
	err = accounts.UpsertSMTPCredential(ctx, &model.SMTPCredential{
		AccountID:         opts.accountID,
		Host:              opts.smtpHost,
		Port:              opts.smtpPort,
		Username:          opts.smtpUser,
		PasswordEncrypted: sealedPass,
		FromEmail:         opts.email,
	})
	if err != nil {
		return fmt.Errorf("seed smtp credentials: %w", err)
	}

	_, err = a.Quota.ApplyPlanChange(ctx, service.PlanChange{
		EventID:   "seed-" + opts.accountID + "-" + opts.plan,
		AccountID: opts.accountID,
		Plan:      model.Plan(opts.plan),
	})
	if err != nil {
		return err
	}

	profile := "https://www.linkedin.com/in/ada-example"
	campaignID, err := a.Campaigns.CreateCampaign(ctx, opts.accountID, service.CreateCampaignInput{
		Name:      "Demo outreach",
		Objective: "Book intro calls",
		Language:  "en",
		Prospects: []service.ProspectInput{
			{FirstName: "Ada", LastName: "Lovelace", Company: "Analytical Engines", Title: "CTO", Email: "ada@example.com", LinkedInURL: &profile},
			{FirstName: "Grace", LastName: "Hopper", Company: "Compilers Inc", Title: "VP Engineering", Email: "grace@example.com"},
			{FirstName: "Alan", LastName: "Turing", Company: "Bletchley Labs", Title: "Head of Research", Email: "alan@example.com"},
		},
		Sequence: []service.StepInput{
			{StepNumber: 1, DelayHours: 0},
			{StepNumber: 2, DelayHours: 72},
		},
	})
	if err != nil {
		return err
	}

	log.Info("Seed complete", zap.String("account_id", opts.accountID), zap.String("campaign_id", campaignID))
	return nil
}
