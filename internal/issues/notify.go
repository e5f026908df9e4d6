package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IssueSummary is the payload dispatched to the maintenance channel when an
// issue is submitted.
type IssueSummary struct {
	IssueID  string `json:"issue_id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Location string `json:"location"`
	PhotoURL string `json:"photo_url,omitempty"`
}

var titleCaser = cases.Title(language.English)

// SummaryForIssue renders the notification summary for a persisted issue.
func SummaryForIssue(issue *Issue) IssueSummary {
	label := titleCaser.String(issue.Category)
	if issue.Subcategory != "" {
		label = label + " / " + issue.Subcategory
	}

	photo := ""
	if len(issue.PhotoURLs) > 0 {
		photo = issue.PhotoURLs[0]
	}

	loc := Location{Building: issue.Building, Floor: issue.Floor, Room: issue.Room}
	return IssueSummary{
		IssueID:  issue.ID.String(),
		Category: label,
		Severity: issue.Severity,
		Location: loc.DisplayString(),
		PhotoURL: photo,
	}
}

// WebhookNotifier POSTs issue summaries to a configured webhook. Callers
// treat failures as non-fatal.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, summary IssueSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook: status %d", resp.StatusCode)
	}
	return nil
}
