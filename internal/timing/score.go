package timing

import (
	"time"

	"nudged/internal/notify"
)

// ScoreTime rates a candidate delivery time for the given user context.
// Four additive factors, each independently capped:
//
//	energy-level alignment  0–40
//	historical peak match   0–30
//	user mode vs. delay     0–20
//	stress level            0–10
//
// The bands are hand-tuned and load-bearing; tests pin their boundaries.
func ScoreTime(candidate, now time.Time, uctx notify.UserContext, peakHours []int) int {
	hour := candidate.Hour()
	delay := candidate.Sub(now)

	return energyScore(hour, uctx.EnergyLevel) +
		peakScore(hour, peakHours) +
		modeScore(delay, uctx.Mode) +
		stressScore(uctx.StressLevel)
}

func energyScore(hour int, energy notify.EnergyLevel) int {
	switch energy {
	case notify.EnergyHigh:
		// Mornings carry high-energy work best.
		switch {
		case hour >= 8 && hour <= 12:
			return 40
		case hour >= 13 && hour <= 17:
			return 25
		default:
			return 10
		}
	case notify.EnergyLow:
		// Low energy: late afternoon / early evening, after the slump.
		switch {
		case hour >= 17 && hour <= 20:
			return 40
		case hour >= 14 && hour <= 16:
			return 25
		default:
			return 10
		}
	default:
		switch {
		case (hour >= 10 && hour <= 12) || (hour >= 15 && hour <= 17):
			return 40
		case hour == 9 || hour == 13 || hour == 14 || hour == 18:
			return 25
		default:
			return 10
		}
	}
}

func peakScore(hour int, peaks []int) int {
	for _, p := range peaks {
		if p == hour {
			return 30
		}
	}
	for _, p := range peaks {
		if hourDistance(p, hour) == 1 {
			return 15
		}
	}
	return 0
}

// hourDistance is circular distance on the 24h clock.
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

func modeScore(delay time.Duration, mode notify.Mode) int {
	switch mode {
	case notify.ModeFocus:
		// Focus wants the interruption as soon as possible or not at all.
		switch {
		case delay <= 30*time.Minute:
			return 20
		case delay <= time.Hour:
			return 10
		default:
			return 0
		}
	case notify.ModeRecovery:
		// Recovery prefers maximal delay, capped at four hours of credit.
		bonus := int(delay / (12 * time.Minute))
		if bonus > 20 {
			bonus = 20
		}
		return bonus
	default:
		// Balanced: a moderate delay band.
		switch {
		case delay >= time.Hour && delay <= 4*time.Hour:
			return 20
		case delay >= 30*time.Minute && delay <= 6*time.Hour:
			return 10
		default:
			return 0
		}
	}
}

func stressScore(stress notify.StressLevel) int {
	switch stress {
	case notify.StressLow:
		return 10
	case notify.StressMedium:
		return 5
	default:
		return 0
	}
}
