package recommend

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/adaptocr/internal/profile"
)

func genProfile() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 15),
		gen.IntRange(0, 1000),
		gen.Bool(),
	).Map(func(v []any) profile.ImageProfile {
		return profile.ImageProfile{
			OtsuSeparability: v[0].(float64),
			NoiseSigma:       v[1].(float64),
			StrokeWidth:      v[2].(float64),
			NumNoiseSpecks:   v[3].(int),
			IsBilevel:        v[4].(bool),
		}
	})
}

func TestRecommend_Properties(t *testing.T) {
	th := DefaultThresholds()
	properties := gopter.NewProperties(nil)

	properties.Property("high noise always enables two passes", prop.ForAll(
		func(p profile.ImageProfile, extra float64) bool {
			p.NoiseSigma = th.HighNoiseSigma + extra
			got := Recommend(p, th, 200)
			return got.EnableTwoPass && got.Reason == ReasonHighNoise
		},
		genProfile(), gen.Float64Range(0.001, 50),
	))

	properties.Property("clean and not noisy disables two passes", prop.ForAll(
		func(p profile.ImageProfile) bool {
			if !IsClean(p, th) || p.NoiseSigma > th.HighNoiseSigma {
				return true
			}
			return !Recommend(p, th, 200).EnableTwoPass
		},
		genProfile(),
	))

	properties.Property("pure and deterministic", prop.ForAll(
		func(p profile.ImageProfile) bool {
			a := Recommend(p, th, 200)
			b := Recommend(p, th, 200)
			return a.EnableTwoPass == b.EnableTwoPass && a.Reason == b.Reason && len(a.Reasons) == len(b.Reasons)
		},
		genProfile(),
	))

	properties.Property("reason is the last fired rule", prop.ForAll(
		func(p profile.ImageProfile) bool {
			got := Recommend(p, th, 200)
			if len(got.Reasons) == 0 {
				return got.Reason == ReasonDefault && got.EnableTwoPass
			}
			return got.Reason == got.Reasons[len(got.Reasons)-1]
		},
		genProfile(),
	))

	properties.TestingRun(t)
}
