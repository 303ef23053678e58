package project

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/atelier-ops/internal/ledger"
	"github.com/atelier-ops/atelier-ops/internal/period"
	"github.com/atelier-ops/atelier-ops/internal/shared"
)

type memProjectRepo struct {
	projects map[int64]Project
	settings map[int64]ShareSetting
}

func newMemProjectRepo() *memProjectRepo {
	return &memProjectRepo{
		projects: make(map[int64]Project),
		settings: make(map[int64]ShareSetting),
	}
}

func (r *memProjectRepo) GetProject(_ context.Context, id int64) (*Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memProjectRepo) GetShareSetting(_ context.Context, projectID int64) (ShareSetting, error) {
	if s, ok := r.settings[projectID]; ok {
		return s, nil
	}
	return ShareSetting{ProjectID: projectID}, nil
}

func (r *memProjectRepo) UpsertShareSetting(_ context.Context, in UpdateShareSettingInput) (ShareSetting, error) {
	s := ShareSetting{
		ProjectID:        in.ProjectID,
		SharePartnerID:   in.SharePartnerID,
		ShareRate:        in.ShareRate,
		VisibleToPartner: in.VisibleToPartner,
		UpdatedAt:        time.Now(),
	}
	r.settings[in.ProjectID] = s
	return s, nil
}

func (r *memProjectRepo) ListShareSettingsByPartner(_ context.Context, partnerID int64) ([]ShareSetting, error) {
	var out []ShareSetting
	for _, s := range r.settings {
		if s.SharePartnerID != nil && *s.SharePartnerID == partnerID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubLedger struct {
	totals ledger.Totals
}

func (l stubLedger) ProjectTotals(_ context.Context, _ int64, _ period.Range) (ledger.Totals, error) {
	return l.totals, nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestUpdateShareSettingValidatesRate(t *testing.T) {
	repo := newMemProjectRepo()
	repo.projects[1] = Project{ID: 1, Name: "Brand Film"}
	svc := NewService(repo, stubLedger{})

	_, err := svc.UpdateShareSetting(context.Background(), UpdateShareSettingInput{
		ProjectID: 1,
		ShareRate: intPtr(101),
	})
	require.True(t, shared.IsValidation(err))

	_, err = svc.UpdateShareSetting(context.Background(), UpdateShareSettingInput{
		ProjectID: 1,
		ShareRate: intPtr(-1),
	})
	require.True(t, shared.IsValidation(err))

	setting, err := svc.UpdateShareSetting(context.Background(), UpdateShareSettingInput{
		ProjectID:      1,
		SharePartnerID: int64Ptr(7),
		ShareRate:      intPtr(50),
	})
	require.NoError(t, err)
	require.True(t, setting.Configured())
	require.Equal(t, 50, *setting.ShareRate)
}

func TestUpdateShareSettingUnknownProject(t *testing.T) {
	svc := NewService(newMemProjectRepo(), stubLedger{})

	_, err := svc.UpdateShareSetting(context.Background(), UpdateShareSettingInput{
		ProjectID: 99,
		ShareRate: intPtr(30),
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestClearingPartnerDisablesSharing(t *testing.T) {
	repo := newMemProjectRepo()
	repo.projects[1] = Project{ID: 1, Name: "Brand Film"}
	svc := NewService(repo, stubLedger{})

	_, err := svc.UpdateShareSetting(context.Background(), UpdateShareSettingInput{
		ProjectID:      1,
		SharePartnerID: int64Ptr(7),
		ShareRate:      intPtr(40),
	})
	require.NoError(t, err)

	setting, err := svc.UpdateShareSetting(context.Background(), UpdateShareSettingInput{
		ProjectID: 1,
		ShareRate: intPtr(40),
	})
	require.NoError(t, err)
	require.False(t, setting.Configured())

	settings, err := repo.ListShareSettingsByPartner(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, settings)
}

func TestFinanceSummaryComposesLiveTotals(t *testing.T) {
	repo := newMemProjectRepo()
	repo.projects[1] = Project{ID: 1, Name: "Brand Film"}
	repo.settings[1] = ShareSetting{ProjectID: 1, SharePartnerID: int64Ptr(7), ShareRate: intPtr(50)}
	svc := NewService(repo, stubLedger{totals: ledger.Totals{Revenue: 1_000_000, Expense: 400_000, NetProfit: 600_000}})

	summary, err := svc.FinanceSummary(context.Background(), 1, period.Range{})
	require.NoError(t, err)
	require.Equal(t, "Brand Film", summary.Project.Name)
	require.Equal(t, int64(600_000), summary.Totals.NetProfit)
	require.True(t, summary.Setting.Configured())
}
