package engine

import (
	"errors"
	"testing"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func TestValidate(t *testing.T) {
	p := newPortfolio("p1", "1000")
	p.Positions["ACME"] = 10

	tests := []struct {
		name string
		prop Proposal
		want string // reject code, "" for accept
	}{
		{"buy within balance", buy("ACME", 10, "50"), ""},
		{"buy exactly balance", buy("ACME", 20, "50"), ""},
		{"buy over balance", buy("ACME", 21, "50"), "insufficient_funds"},
		{"sell held", sell("ACME", 10, "55"), ""},
		{"sell more than held", sell("ACME", 15, "55"), "insufficient_shares"},
		{"sell unheld symbol", sell("XYZ", 1, "5"), "insufficient_shares"},
		{"zero quantity", buy("ACME", 0, "50"), "invalid_quantity"},
		{"negative quantity", sell("ACME", -1, "50"), "invalid_quantity"},
		{"zero price", buy("X", 1, "0"), "invalid_price"},
		{"negative price", buy("X", 1, "-1"), "invalid_price"},
		{"quantity checked before price", buy("X", 0, "0"), "invalid_quantity"},
		{"price checked before funds", buy("X", 1000, "0"), "invalid_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(p, tt.prop)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected accept, got %v", err)
				}
				return
			}
			if got := rejectCode(err); got != tt.want {
				t.Fatalf("expected reject %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_UnknownSide(t *testing.T) {
	p := newPortfolio("p1", "1000")
	err := Validate(p, Proposal{Symbol: "ACME", Side: "HOLD", Quantity: 1, Price: dec("1")})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidate_NoSideEffects(t *testing.T) {
	p := newPortfolio("p1", "100")
	p.Positions["ACME"] = 3

	_ = Validate(p, buy("ACME", 1, "10"))
	_ = Validate(p, sell("ACME", 5, "10"))

	if !p.Balance.Equal(dec("100")) || p.Positions["ACME"] != 3 || len(p.Positions) != 1 {
		t.Fatalf("portfolio changed by Validate: %+v", p)
	}
}
