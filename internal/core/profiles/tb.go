package profiles

import "github.com/JonMunkholm/ledgerprep/internal/core"

// ColEndingBalance is the trial balance amount column.
const ColEndingBalance = "ending_balance"

func init() {
	registerTBSummary()
}

func registerTBSummary() {
	core.Register(core.Profile{
		Key:         "tb_summary",
		Group:       "TB",
		Label:       "Trial Balance",
		Description: "Ending balance per entity and natural account",
		Fields: []core.FieldSpec{
			{Name: ColEntityID, Role: core.RoleCategorical, Required: true},
			{Name: ColNaturalAccount, Role: core.RoleCategorical, Required: true},
			{Name: ColAccountName, Role: core.RoleCategorical},
			{Name: ColEndingBalance, Role: core.RoleNumeric, Required: true},
			{Name: ColPeriod, Role: core.RoleCategorical},
		},
		UniqueKey: []string{ColEntityID, ColNaturalAccount},
		Preset: []core.Step{
			core.NewStep(core.OpTrim, ColEntityID, nil),
			core.NewStep(core.OpUpper, ColEntityID, nil),
			core.NewStep(core.OpTrim, ColNaturalAccount, nil),
			core.NewStep(core.OpCoerceNumber, ColEndingBalance, nil),
		},
		Reconcile: core.ReconcileColumns{
			Account: ColNaturalAccount,
			Amount:  ColEndingBalance,
			Entity:  ColEntityID,
		},
	})
}
