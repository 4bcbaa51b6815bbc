package syllable

import (
	"sort"

	"github.com/Suke-go/syllabledetection/internal/types"
)

// scoreProminence computes the prominence score and accent flag for the
// event at ring-buffer index idx, using up to context_size neighbors on
// each side that are currently present in the buffer. isFlush selects the
// higher accent threshold (1.2 instead of 0.9) used when draining
// unconditionally.
func (d *Detector) scoreProminence(idx int, isFlush bool) Event {
	head := d.ring.At(idx)

	neighbors := d.contextNeighbors(idx)
	if len(neighbors) == 0 {
		head.ProminenceScore = 0.5
		head.IsAccented = false
		return head
	}

	var f0s []float64
	var energySum, prSum, durSum, slopeSum, fusionSum float64
	for _, n := range neighbors {
		if n.F0 > 50 {
			f0s = append(f0s, float64(n.F0))
		}
		energySum += float64(n.Energy)
		prSum += float64(n.PeakRate)
		durSum += float64(n.DurationS)
		slopeSum += float64(n.PRSlope)
		fusionSum += float64(n.FusionScore)
	}
	count := float64(len(neighbors))

	deltaF0 := 0.0
	if len(f0s) > 0 && head.F0 > 50 {
		deltaF0 = float64(head.F0) - median(f0s)
	}
	head.DeltaF0 = float32(deltaF0)

	eR := ratioTo(float64(head.Energy), energySum/count)
	prR := ratioTo(float64(head.PeakRate), prSum/count)
	dR := ratioTo(float64(head.DurationS), durSum/count)
	slopeR := ratioTo(float64(head.PRSlope), slopeSum/count)
	fusionR := ratioTo(float64(head.FusionScore), fusionSum/count)

	f0Bonus := clamp(deltaF0/50, 0, 1)

	stressIntegral := float64(head.FusionScore) * float64(head.DurationS)
	meanStress := (fusionSum / count) * (durSum / count)
	stressR := ratioTo(stressIntegral, meanStress)
	if stressR > 3 {
		stressR = 3
	}

	f0LevelBonus := clamp(float64(head.F0)/150.0, 0, 1) * 0.15

	score := 0.10*eR + 0.10*prR + 0.18*dR + 0.08*slopeR + 0.18*fusionR +
		0.13*stressR + 0.10*(1+f0Bonus) + 0.13*(1+f0LevelBonus)

	head.ProminenceScore = float32(score)
	threshold := 0.9
	if isFlush {
		threshold = 1.2
	}
	head.IsAccented = score > threshold

	return head
}

// contextNeighbors returns the events currently buffered within
// context_size positions of idx on either side, excluding idx itself.
// Events behind idx have already been emitted but stay in the ring as
// context until a later Push displaces them.
func (d *Detector) contextNeighbors(idx int) []types.Event {
	ctx := d.cfg.ContextSize
	count := d.ring.Count()

	var out []types.Event
	for i := idx - ctx; i <= idx+ctx; i++ {
		if i < 0 || i == idx || i >= count {
			continue
		}
		out = append(out, d.ring.At(i))
	}
	return out
}

func ratioTo(value, mean float64) float64 {
	if mean <= 1e-12 {
		return 1.0
	}
	return value / mean
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
