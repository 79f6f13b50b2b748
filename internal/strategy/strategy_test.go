package strategy

import "testing"

func TestFactoryBuildsEachVariant(t *testing.T) {
	t.Parallel()
	cases := []string{"symmetric", "avellaneda", "optimism-tax"}
	for _, name := range cases {
		s, err := Factory(name, map[string]float64{
			"spread_cents": 4, "size_per_side": 10,
			"gamma": 0.5, "sigma": 0.15, "k": 1.5, "horizon_seconds": 3600,
			"min_spread": 2, "max_spread": 20, "max_position": 100,
			"longshot_threshold": 10, "nearly_certain_threshold": 90,
			"zone_size_multiplier": 2.0, "longshot_exposure_cap": 50,
			"adverse_spread_inflation": 4,
		})
		if err != nil {
			t.Errorf("Factory(%q) error: %v", name, err)
		}
		if s == nil {
			t.Errorf("Factory(%q) returned nil strategy", name)
		}
	}
}

func TestFactoryUnknownVariant(t *testing.T) {
	t.Parallel()
	if _, err := Factory("bogus", nil); err == nil {
		t.Error("expected an error for an unknown strategy name")
	}
}
