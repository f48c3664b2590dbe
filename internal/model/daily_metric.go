// internal/model/daily_metric.go
package model

// DailyMetric is keyed by (account, campaign-or-null, day) and fully
// replaced on every aggregation pass.
type DailyMetric struct {
	AccountID       string  `db:"account_id" json:"account_id"`
	CampaignID      *string `db:"campaign_id" json:"campaign_id"`
	Day             string  `db:"day" json:"day"`
	EmailsScheduled int     `db:"emails_scheduled" json:"emails_scheduled"`
	EmailsSent      int     `db:"emails_sent" json:"emails_sent"`
	Opens           int     `db:"opens" json:"opens"`
	Replies         int     `db:"replies" json:"replies"`
	Bounces         int     `db:"bounces" json:"bounces"`
	LinkedInPending int     `db:"linkedin_pending" json:"linkedin_pending"`
	LinkedInDone    int     `db:"linkedin_done" json:"linkedin_done"`
}

// Add accumulates the counters of o into m.
func (m *DailyMetric) Add(o *DailyMetric) {
	m.EmailsScheduled += o.EmailsScheduled
	m.EmailsSent += o.EmailsSent
	m.Opens += o.Opens
	m.Replies += o.Replies
	m.Bounces += o.Bounces
	m.LinkedInPending += o.LinkedInPending
	m.LinkedInDone += o.LinkedInDone
}
