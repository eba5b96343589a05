// Package client defines the collaborator services the pipeline calls out
// to: prospect search, contact enrichment, deep research, and mail delivery.
// HTTP implementations live alongside the interfaces; executors accept the
// interfaces so tests can substitute stubs.
package client

import "context"

// SearchFilters describes the audience a search should target.
type SearchFilters struct {
	JobTitle    string `json:"job_title,omitempty"`
	Location    string `json:"location,omitempty"`
	Industry    string `json:"industry,omitempty"`
	CompanySize string `json:"company_size,omitempty"`
	Seniority   string `json:"seniority,omitempty"`
}

// Person is a prospect returned by the search provider. Contact fields are
// usually absent until enrichment reveals them.
type Person struct {
	SourceID      string `json:"id"`
	FullName      string `json:"full_name"`
	Title         string `json:"title"`
	CompanyName   string `json:"company_name"`
	CompanyDomain string `json:"company_domain"`
	LinkedInURL   string `json:"linkedin_url"`
	Location      string `json:"location"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

// Searcher finds prospects matching audience filters.
type Searcher interface {
	Search(ctx context.Context, filters SearchFilters, limit int) ([]Person, error)
}

// EnrichInput identifies a lead for the enrichment provider.
type EnrichInput struct {
	SourceID    string `json:"id,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// EnrichResult is one lead's revealed contact data. Err is set when the
// provider failed for that input only.
type EnrichResult struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	LinkedInURL string `json:"linkedin_url"`
	Err         error  `json:"-"`
}

// Enricher reveals contact data for a batch of leads. Results align with the
// inputs by index.
type Enricher interface {
	Enrich(ctx context.Context, inputs []EnrichInput, revealEmail, revealPhone bool) ([]EnrichResult, error)
}

// Report is the cross-analysis a research provider produces for one lead
// against the organization's company profile.
type Report struct {
	Pains         []string `json:"pains"`
	ValueProps    []string `json:"value_props"`
	TalkingPoints []string `json:"talking_points"`
	DraftEmail    string   `json:"draft_email"`
}

// Researcher produces a personalized research report for a lead.
type Researcher interface {
	Research(ctx context.Context, person Person, companyProfile string) (*Report, error)
}

// Message is an outbound email.
type Message struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	ThreadID string `json:"thread_id,omitempty"`
}

// SendResult identifies the delivered message.
type SendResult struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}
