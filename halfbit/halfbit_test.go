package halfbit_test

import (
	"testing"

	"github.com/railyard/dccsignal/halfbit"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		delta uint32
		want  halfbit.Symbol
	}{
		{47, halfbit.Invalid},
		{48, halfbit.Short},
		{58, halfbit.Short},
		{68, halfbit.Short},
		{69, halfbit.Invalid},
		{85, halfbit.Invalid},
		{86, halfbit.Long},
		{5000, halfbit.Long},
		{10000, halfbit.Long},
		{10001, halfbit.Invalid},
	}
	for _, c := range cases {
		if got := halfbit.Classify(c.delta); got != c.want {
			t.Errorf("Classify(%d) = %v, want %v", c.delta, got, c.want)
		}
	}
}

func TestSymbolString(t *testing.T) {
	if halfbit.Short.String() != "short" {
		t.Errorf("expected short")
	}
	if halfbit.Long.String() != "long" {
		t.Errorf("expected long")
	}
	if halfbit.Invalid.String() != "invalid" {
		t.Errorf("expected invalid")
	}
}
