package payments

import "github.com/shopspring/decimal"

// settlementAmount returns the total charge in cents: the winning bid plus
// the buyer premium expressed in basis points, rounded half-up to a cent.
func settlementAmount(winningBidCents, premiumBps int64) int64 {
	bid := decimal.NewFromInt(winningBidCents)
	premium := bid.
		Mul(decimal.NewFromInt(premiumBps)).
		Div(decimal.NewFromInt(10000)).
		Round(0)
	return bid.Add(premium).IntPart()
}
