// Package level formats raw (tier, score, delta) triples into human-readable
// rank brackets, applying at most one promotion or demotion step at bracket
// boundaries.
package level

import (
	"fmt"
	"strings"
)

type tier struct {
	name  string
	max   int // score ceiling; reaching it promotes
	start int // score floor assigned after a tier change
}

var tiers = map[int]tier{
	101: {"novice1", 20, 0},
	102: {"novice2", 80, 0},
	103: {"novice3", 200, 0},
	201: {"adept1", 600, 300},
	202: {"adept2", 800, 400},
	203: {"adept3", 1000, 500},
	301: {"expert1", 1200, 600},
	302: {"expert2", 1400, 700},
	303: {"expert3", 2000, 1000},
	401: {"master1", 2800, 1400},
	402: {"master2", 3200, 1600},
	403: {"master3", 3600, 1800},
	501: {"saint1", 4000, 2000},
	502: {"saint2", 6000, 3000},
	503: {"saint3", 9000, 4500},
	601: {"celestial", 999999, 10000},
	// tier 703 demotes to 603, which ranks as saint3
	603: {"saint3", 9000, 4500},
}

const (
	celestialMax   = 2000
	celestialStart = 1000
)

func isCelestial(id int) bool {
	return (id/100)%100 == 7
}

// Name returns the bracket name for a tier id. Celestial sub-tiers bypass the
// table and carry their sub-rank number.
func Name(id int) string {
	if isCelestial(id) {
		return fmt.Sprintf("celestial%d", id%100)
	}
	return tiers[id%1000].name
}

// Max returns the promotion ceiling for a tier id.
func Max(id int) int {
	if isCelestial(id) {
		return celestialMax
	}
	return tiers[id%1000].max
}

// Start returns the score floor a player lands on after entering the tier.
func Start(id int) int {
	if isCelestial(id) {
		return celestialStart
	}
	return tiers[id%1000].start
}

// Format renders a bracket string for a raw tier triple. The delta is folded
// into the score first; a single demotion or promotion step is then applied.
// A last digit of 1 or 3 marks the bottom or top minor of a major bracket, so
// crossing it moves the tier by 98 instead of 1. Celestial tiers never
// promote.
func Format(id, score, delta int) string {
	score += delta
	cl := isCelestial(id)
	if score < 0 {
		if id%10 == 1 {
			id -= 98
		} else {
			id--
		}
		score = Start(id)
	} else if !cl && score >= Max(id) {
		if id%10 == 3 {
			id += 98
		} else {
			id++
		}
		score = Start(id)
	}

	name := Name(id)
	switch {
	case name == "celestial":
		return fmt.Sprintf("[%s %d]", name, score)
	case strings.HasPrefix(name, "celestial"):
		return fmt.Sprintf("[%s %d]", name, score/100)
	default:
		return fmt.Sprintf("[%s %d/%d]", name, score, Max(id))
	}
}
