package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/manyblack/studio/pkg/domain"
)

// Leads list limits the backend enforces.
const (
	MaxPageSize     = 100
	DefaultPageSize = 50
)

// LeadsFilters narrows GET /api/leads. Zero values are left out of the query.
type LeadsFilters struct {
	Q                    string
	Channel              string
	Lang                 string
	DepositStatus        domain.DepositStatus
	AccountsQuotex       domain.AccountStatus
	AccountsNyrion       domain.AccountStatus
	AgreementsCanDeposit *bool
	AgreementsWantsTest  *bool
	InactiveGtHours      int
	MinEvents24h         int
	Tags                 []string // included tags
	NotTags              []string // excluded tags
	ProcedureActive      string
	ProcedureStep        string
	PendingOps           *bool
	UTMSource            string
	UTMMedium            string
	UTMCampaign          string
	UTMContent           string
	CreatedFrom          time.Time
	CreatedTo            time.Time
	LastActiveFrom       time.Time
	LastActiveTo         time.Time
	Page                 int
	PageSize             int
	SortBy               string
	SortDir              string // asc or desc
}

// Validate checks pagination and sorting before the request is sent.
func (f LeadsFilters) Validate() error {
	if f.Page < 0 {
		return fmt.Errorf("%w: page must be at least 1", domain.ErrInvalid)
	}
	if f.PageSize < 0 || f.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d", domain.ErrInvalid, MaxPageSize)
	}
	if f.SortDir != "" && f.SortDir != "asc" && f.SortDir != "desc" {
		return fmt.Errorf("%w: sort_dir must be asc or desc", domain.ErrInvalid)
	}
	if f.InactiveGtHours < 0 {
		return fmt.Errorf("%w: inactive_gt_hours must not be negative", domain.ErrInvalid)
	}
	if f.MinEvents24h < 0 {
		return fmt.Errorf("%w: min_events_24h must not be negative", domain.ErrInvalid)
	}
	if inverted(f.CreatedFrom, f.CreatedTo) {
		return fmt.Errorf("%w: created_from is after created_to", domain.ErrInvalid)
	}
	if inverted(f.LastActiveFrom, f.LastActiveTo) {
		return fmt.Errorf("%w: last_active_from is after last_active_to", domain.ErrInvalid)
	}
	return nil
}

func inverted(from, to time.Time) bool {
	return !from.IsZero() && !to.IsZero() && from.After(to)
}

// Values encodes the filters as query parameters.
func (f LeadsFilters) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	setBool := func(key string, b *bool) {
		if b != nil {
			v.Set(key, strconv.FormatBool(*b))
		}
	}
	setInt := func(key string, n int) {
		if n > 0 {
			v.Set(key, strconv.Itoa(n))
		}
	}

	set("q", f.Q)
	set("channel", f.Channel)
	set("lang", f.Lang)
	set("deposit_status", string(f.DepositStatus))
	set("accounts_quotex", string(f.AccountsQuotex))
	set("accounts_nyrion", string(f.AccountsNyrion))
	setBool("agreements_can_deposit", f.AgreementsCanDeposit)
	setBool("agreements_wants_test", f.AgreementsWantsTest)
	setTime := func(key string, t time.Time) {
		if !t.IsZero() {
			v.Set(key, t.UTC().Format(time.RFC3339))
		}
	}
	setList := func(key string, vals []string) {
		for _, val := range vals {
			if val != "" {
				v.Add(key, val)
			}
		}
	}

	setInt("inactive_gt_hours", f.InactiveGtHours)
	setInt("min_events_24h", f.MinEvents24h)
	setList("tags", f.Tags)
	setList("not_tags", f.NotTags)
	set("procedure_active", f.ProcedureActive)
	set("procedure_step", f.ProcedureStep)
	setBool("pending_ops", f.PendingOps)
	set("utm_source", f.UTMSource)
	set("utm_medium", f.UTMMedium)
	set("utm_campaign", f.UTMCampaign)
	set("utm_content", f.UTMContent)
	setTime("created_from", f.CreatedFrom)
	setTime("created_to", f.CreatedTo)
	setTime("last_active_from", f.LastActiveFrom)
	setTime("last_active_to", f.LastActiveTo)
	setInt("page", f.Page)
	setInt("page_size", f.PageSize)
	set("sort_by", f.SortBy)
	set("sort_dir", f.SortDir)
	return v
}

// LeadProcedure is where a lead stands in a procedure.
type LeadProcedure struct {
	Active *string `json:"active"`
	Step   *string `json:"step"`
}

// LeadSummary is one row of the lead list.
type LeadSummary struct {
	ID             int                             `json:"id"`
	Name           string                          `json:"name"`
	Channel        string                          `json:"channel"`
	PlatformUserID string                          `json:"platform_user_id"`
	Lang           string                          `json:"lang"`
	CreatedAt      string                          `json:"created_at,omitempty"`
	LastActivityAt *string                         `json:"last_activity_at"`
	Events24h      int                             `json:"events_24h"`
	Accounts       map[string]domain.AccountStatus `json:"accounts"`
	Deposit        map[string]any                  `json:"deposit"`
	Agreements     map[string]any                  `json:"agreements"`
	Flags          map[string]any                  `json:"flags"`
	Tags           []string                        `json:"tags"`
	Procedure      LeadProcedure                   `json:"procedure"`
}

// LeadPage is a page of the lead list.
type LeadPage struct {
	Items      []LeadSummary `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// LeadDetail is a lead with its profile and recent journey.
type LeadDetail struct {
	LeadSummary
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
	Events   []map[string]any `json:"events,omitempty"`
}

// ListLeads returns a page of leads.
func (c *Client) ListLeads(ctx context.Context, f LeadsFilters) (LeadPage, error) {
	if err := f.Validate(); err != nil {
		return LeadPage{}, err
	}
	var page LeadPage
	err := c.Do(ctx, http.MethodGet, "/api/leads", f.Values(), nil, &page)
	return page, err
}

// GetLead returns one lead.
func (c *Client) GetLead(ctx context.Context, id int) (LeadDetail, error) {
	var lead LeadDetail
	err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/leads/%d", id), nil, nil, &lead)
	return lead, err
}

// DeleteLead removes a lead and its history.
func (c *Client) DeleteLead(ctx context.Context, id int) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/leads/%d", id), nil, nil, nil)
}

// ResetLeadSession clears a lead's conversation state, keeping the lead.
func (c *Client) ResetLeadSession(ctx context.Context, id int) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/leads/%d/session", id), nil, nil, nil)
}
