package project

import (
	"time"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
)

// Project is the directory view of a project; the rest of its CRUD lives in
// the surrounding operations tool.
type Project struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShareSetting is the per-project revenue-share configuration (1:1 with the
// project). A nil SharePartnerID means no sharing is configured, regardless
// of any stale rate or visibility flag.
type ShareSetting struct {
	ProjectID        int64
	SharePartnerID   *int64
	ShareRate        *int
	VisibleToPartner bool
	UpdatedAt        time.Time
}

// Configured reports whether the project currently shares revenue.
func (s ShareSetting) Configured() bool {
	return s.SharePartnerID != nil
}

// UpdateShareSettingInput carries a share-setting mutation.
type UpdateShareSettingInput struct {
	ProjectID        int64
	SharePartnerID   *int64
	ShareRate        *int
	VisibleToPartner bool
}

// FinanceSummary is the live read path over a project's ledger: totals are
// computed on read, never stored here.
type FinanceSummary struct {
	Project Project
	Setting ShareSetting
	Totals  ledger.Totals
}
