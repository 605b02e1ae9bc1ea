package record

import "testing"

func TestSheetCategory(t *testing.T) {
	tests := []struct {
		name    string
		txType  string
		gateway string
		want    string
	}{
		{
			name:    "deposit via settlement gateway",
			txType:  "DEPOSIT",
			gateway: "ACME SETTLEMENT GATEWAY",
			want:    CategorySettlementDeposit,
		},
		{
			name:    "deposit via regular gateway",
			txType:  "DEPOSIT",
			gateway: "M2P CARDS",
			want:    CategoryM2pDeposit,
		},
		{
			name:    "withdraw via settlement gateway",
			txType:  "WITHDRAW",
			gateway: "settlement eu",
			want:    CategorySettlementWithdraw,
		},
		{
			name:    "withdraw via regular gateway",
			txType:  "WITHDRAW",
			gateway: "M2P CARDS",
			want:    CategoryM2pWithdraw,
		},
		{
			name:    "lowercase type is normalized",
			txType:  "deposit",
			gateway: "m2p cards",
			want:    CategoryM2pDeposit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SheetCategory(tt.txType, tt.gateway); got != tt.want {
				t.Errorf("SheetCategory(%q, %q) = %q, want %q", tt.txType, tt.gateway, got, tt.want)
			}
		})
	}
}

func TestIsWelcomeBonusGroup(t *testing.T) {
	if !IsWelcomeBonusGroup(`WELCOME\Welcome BBOOK`) {
		t.Error("exact group path should be flagged as welcome bonus")
	}
	if IsWelcomeBonusGroup(`WELCOME\Welcome ABOOK`) {
		t.Error("different group path should not be flagged")
	}
	if IsWelcomeBonusGroup(`welcome\welcome bbook`) {
		t.Error("comparison is case-sensitive, lowercase must not match")
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"payment", "rebate", "crm-withdrawal", "crm-deposit", "account-list"} {
		if _, ok := ParseType(s); !ok {
			t.Errorf("ParseType(%q) should succeed", s)
		}
	}
	if typ, ok := ParseType("  Payment "); !ok || typ != TypePayment {
		t.Errorf("ParseType should trim and lowercase, got %q ok=%v", typ, ok)
	}
	if _, ok := ParseType("ledger"); ok {
		t.Error("unknown selector should fail")
	}
}
