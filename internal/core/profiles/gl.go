package profiles

import "github.com/JonMunkholm/ledgerprep/internal/core"

// GL detail column names.
const (
	ColEntityID        = "entity_id"
	ColLegalEntityName = "legal_entity_name"
	ColERPAccountCode  = "erp_account_code"
	ColNaturalAccount  = "natural_account"
	ColAccountName     = "account_name"
	ColAmount          = "amount"
	ColCurrency        = "currency"
	ColPeriod          = "period"
	ColPostingDate     = "posting_date"
)

func init() {
	registerGLDetail()
}

func registerGLDetail() {
	core.Register(core.Profile{
		Key:         "gl_detail",
		Group:       "GL",
		Label:       "GL Detail",
		Description: "Journal line export with one row per posting",
		Fields: []core.FieldSpec{
			{Name: ColEntityID, Role: core.RoleCategorical, Required: true},
			{Name: ColLegalEntityName, Role: core.RoleCategorical},
			{Name: ColERPAccountCode, Role: core.RoleCategorical},
			{Name: ColNaturalAccount, Role: core.RoleCategorical, Required: true},
			{Name: ColAccountName, Role: core.RoleCategorical},
			{Name: ColAmount, Role: core.RoleNumeric, Required: true},
			{Name: ColCurrency, Role: core.RoleCategorical},
			{Name: ColPeriod, Role: core.RoleCategorical},
			{Name: ColPostingDate, Role: core.RoleDate, Required: true},
		},
		Preset: []core.Step{
			core.NewStep(core.OpTrim, ColEntityID, nil),
			core.NewStep(core.OpUpper, ColEntityID, nil),
			core.NewStep(core.OpTrim, ColNaturalAccount, nil),
			core.NewStep(core.OpTrim, ColAccountName, nil),
			core.NewStep(core.OpCoerceNumber, ColAmount, nil),
			core.NewStep(core.OpUpper, ColCurrency, nil),
			core.NewStep(core.OpCoerceDate, ColPostingDate, nil),
		},
		Reconcile: core.ReconcileColumns{
			Account: ColNaturalAccount,
			Amount:  ColAmount,
			Entity:  ColEntityID,
		},
	})
}
