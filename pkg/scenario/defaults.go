package scenario

import "github.com/Layr-Labs/offering-ledger/internal/config"

// ApplyDefaults fills offering settings the scenario leaves unset from process configuration.
func (s *Scenario) ApplyDefaults(oc *config.OfferingConfig) {
	o := &s.Offering
	if o.Admin == "" {
		o.Admin = oc.Admin
	}
	if o.ContributionToken == "" {
		o.ContributionToken = oc.ContributionToken
	}
	if o.OfferingToken == "" {
		o.OfferingToken = oc.OfferingToken
	}
	if o.ContributionDecimals == nil && oc.ContributionDecimals != 0 {
		d := oc.ContributionDecimals
		o.ContributionDecimals = &d
	}
	if o.OfferingDecimals == nil && oc.OfferingDecimals != 0 {
		d := oc.OfferingDecimals
		o.OfferingDecimals = &d
	}
	if o.NumberPools == 0 {
		o.NumberPools = oc.NumberPools
	}
	if o.PreparationSeconds == 0 {
		o.PreparationSeconds = oc.PreparationSeconds
	}
	if o.FinalWithdrawDelay == 0 {
		o.FinalWithdrawDelay = oc.FinalWithdrawDelay
	}
}
