package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// HolderType is the kind of party that can own shares.
type HolderType string

const (
	HolderInvestor HolderType = "investor"
	HolderFund     HolderType = "fund"
	HolderCompany  HolderType = "company"
)

// AssetType is the kind of instrument that can be issued.
type AssetType string

const (
	AssetCompany AssetType = "company"
	AssetFund    AssetType = "fund"
)

func ParseHolderType(s string) (HolderType, error) {
	switch HolderType(s) {
	case HolderInvestor, HolderFund, HolderCompany:
		return HolderType(s), nil
	}
	return "", fmt.Errorf("unknown holder type %q", s)
}

func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(s) {
	case AssetCompany, AssetFund:
		return AssetType(s), nil
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

// Holder references a share owner.
type Holder struct {
	Type HolderType `json:"holderType"`
	ID   uuid.UUID  `json:"holderId"`
}

// Asset references an issuable instrument.
type Asset struct {
	Type AssetType `json:"assetType"`
	ID   uuid.UUID `json:"assetId"`
}

func InvestorHolder(id uuid.UUID) Holder { return Holder{Type: HolderInvestor, ID: id} }
func FundHolder(id uuid.UUID) Holder     { return Holder{Type: HolderFund, ID: id} }
func CompanyHolder(id uuid.UUID) Holder  { return Holder{Type: HolderCompany, ID: id} }

func FundAsset(id uuid.UUID) Asset    { return Asset{Type: AssetFund, ID: id} }
func CompanyAsset(id uuid.UUID) Asset { return Asset{Type: AssetCompany, ID: id} }

// Treasury is the holder that owns the unsold shares of the asset.
// A fund holds its own treasury; a company treasury is held under the company id.
func (a Asset) Treasury() Holder {
	switch a.Type {
	case AssetFund:
		return FundHolder(a.ID)
	case AssetCompany:
		return CompanyHolder(a.ID)
	}
	panic(fmt.Sprintf("domain: treasury of unknown asset type %q", a.Type))
}

func (a Asset) String() string  { return string(a.Type) + ":" + a.ID.String() }
func (h Holder) String() string { return string(h.Type) + ":" + h.ID.String() }

// PerformerType identifies who carried out a workflow action.
type PerformerType string

const (
	PerformerInvestor PerformerType = "investor"
	PerformerEmployee PerformerType = "employee"
	PerformerSystem   PerformerType = "system"
)

type Performer struct {
	Type PerformerType `json:"performerType"`
	ID   uuid.UUID     `json:"performerId"`
}

// SystemPerformer is used for actions triggered by webhooks and scheduled jobs.
var SystemPerformer = Performer{Type: PerformerSystem}
