package valuation

// BottlesPerUnit is the number of plastic bottles one unit of trade value
// prevents (tradeValue / 0.5).
const BottlesPerUnit int64 = 2

// Impact is the environmental effect attributed to a trade value.
type Impact struct {
	BottlesPrevented int64 `json:"bottles_prevented"`
	CO2Saved         int64 `json:"co2_saved"`
}

// ImpactOf derives bottles = floor(tv / 0.5) and co2 = floor(bottles * 0.5).
// Negative values yield no impact.
func ImpactOf(tradeValue int64) Impact {
	if tradeValue <= 0 {
		return Impact{}
	}
	bottles := tradeValue * BottlesPerUnit
	return Impact{
		BottlesPrevented: bottles,
		CO2Saved:         bottles / 2,
	}
}
