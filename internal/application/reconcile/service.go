// Package reconcile checks that every issued asset's holdings still add up to
// its initial share count.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"shares-backend/internal/domain"
	"shares-backend/internal/infrastructure/metrics"
)

// Finding describes one asset whose ledger does not balance.
type Finding struct {
	AssetType        domain.AssetType `json:"assetType"`
	AssetID          uuid.UUID        `json:"assetId"`
	Name             string           `json:"name"`
	InitialShares    int64            `json:"initialShares"`
	HeldShares       int64            `json:"heldShares"`
	NegativeHoldings int64            `json:"negativeHoldings"`
}

type Report struct {
	CheckedAt time.Time `json:"checkedAt"`
	Assets    int       `json:"assets"`
	Findings  []Finding `json:"findings"`
}

func (r Report) OK() bool { return len(r.Findings) == 0 }

type Service struct {
	DB *gorm.DB
}

type issuedAsset struct {
	asset   domain.Asset
	name    string
	initial int64
}

type assetTotals struct {
	AssetType domain.AssetType
	AssetID   uuid.UUID
	Held      int64
	Negative  int64
}

func (s *Service) issuedAssets(db *gorm.DB) ([]issuedAsset, error) {
	var funds []domain.Fund
	if err := db.Where("share_issued = ?", true).Find(&funds).Error; err != nil {
		return nil, err
	}
	var companies []domain.Company
	if err := db.Where("share_issued = ?", true).Find(&companies).Error; err != nil {
		return nil, err
	}
	out := make([]issuedAsset, 0, len(funds)+len(companies))
	for _, f := range funds {
		out = append(out, issuedAsset{asset: domain.FundAsset(f.ID), name: f.Name, initial: f.InitialShares})
	}
	for _, c := range companies {
		out = append(out, issuedAsset{asset: domain.CompanyAsset(c.ID), name: c.Name, initial: c.InitialShares})
	}
	return out, nil
}

// Run compares holdings against issuance for every issued asset.
func (s *Service) Run(ctx context.Context) (Report, error) {
	db := s.DB.WithContext(ctx)
	report := Report{CheckedAt: time.Now().UTC(), Findings: []Finding{}}

	assets, err := s.issuedAssets(db)
	if err != nil {
		return report, err
	}
	report.Assets = len(assets)

	var rows []assetTotals
	err = db.Model(&domain.Holding{}).
		Select("asset_type, asset_id, CAST(COALESCE(SUM(shares), 0) AS BIGINT) AS held, CAST(SUM(CASE WHEN shares < 0 THEN 1 ELSE 0 END) AS BIGINT) AS negative").
		Group("asset_type, asset_id").
		Scan(&rows).Error
	if err != nil {
		return report, err
	}
	totals := make(map[domain.Asset]assetTotals, len(rows))
	for _, r := range rows {
		totals[domain.Asset{Type: r.AssetType, ID: r.AssetID}] = r
	}

	for _, a := range assets {
		t := totals[a.asset]
		if t.Held == a.initial && t.Negative == 0 {
			continue
		}
		f := Finding{
			AssetType:        a.asset.Type,
			AssetID:          a.asset.ID,
			Name:             a.name,
			InitialShares:    a.initial,
			HeldShares:       t.Held,
			NegativeHoldings: t.Negative,
		}
		report.Findings = append(report.Findings, f)
		log.Error().
			Str("asset_type", string(f.AssetType)).
			Str("asset_id", f.AssetID.String()).
			Int64("initial_shares", f.InitialShares).
			Int64("held_shares", f.HeldShares).
			Int64("negative_holdings", f.NegativeHoldings).
			Msg("reconcile: holdings do not match issued shares")
	}
	metrics.ReconcileMismatches.Set(float64(len(report.Findings)))
	log.Info().Int("assets", report.Assets).Int("mismatches", len(report.Findings)).Msg("reconcile: finished")
	return report, nil
}

// Schedule registers Run on c under spec, e.g. "@every 1h".
func (s *Service) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Run(ctx); err != nil {
			log.Error().Err(err).Msg("reconcile: run failed")
		}
	})
}
