package models

// SiteRules holds the procurement rules for one construction site.
// Rules are replaced wholesale on each write.
type SiteRules struct {
	Site          string   `json:"-" yaml:"-"`
	ApprovalLimit int64    `json:"approval_limit" yaml:"approval_limit" validate:"gte=0"`
	BannedVendors []string `json:"banned_vendors" yaml:"banned_vendors"`
}

// NewSiteRules creates SiteRules for a site. A nil banned list is stored as empty.
func NewSiteRules(site string, approvalLimit int64, bannedVendors []string) *SiteRules {
	if bannedVendors == nil {
		bannedVendors = []string{}
	}
	return &SiteRules{
		Site:          site,
		ApprovalLimit: approvalLimit,
		BannedVendors: bannedVendors,
	}
}

// RulesDocument is the whole persisted rule store: site name to rules.
type RulesDocument map[string]*SiteRules

// Get returns the rules for site with the Site field populated.
func (d RulesDocument) Get(site string) (*SiteRules, bool) {
	rules, ok := d[site]
	if !ok || rules == nil {
		return nil, false
	}
	out := *rules
	out.Site = site
	return &out, true
}
