package models

import "testing"

func TestCostTierOrdinal(t *testing.T) {
	tests := []struct {
		tier CostTier
		want int
	}{
		{CostTierNano, 0},
		{CostTierMicro, 1},
		{CostTierStandard, 2},
		{CostTierPremium, 3},
		// Unknown tiers sort after premium
		{CostTier("mega"), 4},
	}

	for _, tt := range tests {
		if got := tt.tier.Ordinal(); got != tt.want {
			t.Errorf("CostTier(%q).Ordinal() = %d, want %d", tt.tier, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RolePlanner, RoleExecutor, RoleVerifier, RoleJudge} {
		if !r.Valid() {
			t.Errorf("Role(%q).Valid() = false, want true", r)
		}
	}
	if Role("critic").Valid() {
		t.Error("Role(\"critic\").Valid() = true, want false")
	}
}

func TestRiskAtLeast(t *testing.T) {
	tests := []struct {
		risk Risk
		min  Risk
		want bool
	}{
		{RiskCritical, RiskHigh, true},
		{RiskHigh, RiskHigh, true},
		{RiskMedium, RiskHigh, false},
		{RiskLow, RiskMedium, false},
		{RiskLow, RiskLow, true},
	}

	for _, tt := range tests {
		if got := tt.risk.AtLeast(tt.min); got != tt.want {
			t.Errorf("Risk(%q).AtLeast(%q) = %v, want %v", tt.risk, tt.min, got, tt.want)
		}
	}
}
