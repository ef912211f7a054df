package domain

import "github.com/shopspring/decimal"

// ShowPayout is the per-100-yen payout for one of the three placing
// horses in a show (fukusho) bet.
type ShowPayout struct {
	HorseNumber int
	Payout      decimal.Decimal
}

// WinPayout is the single winning combination for a win (tansho) bet.
type WinPayout struct {
	HorseNumber int
	Payout      decimal.Decimal
}

// QuinellaPayout is the unordered top-2 pair for a quinella (umaren) bet.
type QuinellaPayout struct {
	HorseNumbers [2]int
	Payout       decimal.Decimal
}

// TrioPayout is the unordered top-3 set for a trio (sanrenpuku) bet.
type TrioPayout struct {
	HorseNumbers [3]int
	Payout       decimal.Decimal
}

// RacePayouts bundles the official payout records recorded for a race.
// Any field may be absent (nil slice / zero value) if that bet type
// wasn't offered or data couldn't be fetched.
type RacePayouts struct {
	RaceID   string
	Show     []ShowPayout
	Win      *WinPayout
	Quinella *QuinellaPayout
	Trio     *TrioPayout
}
