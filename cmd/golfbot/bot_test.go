package main

import (
	"testing"
	"time"

	"github.com/Lyon85/321-Golf/internal/geom"
)

func TestWalkToward(t *testing.T) {
	tests := []struct {
		name       string
		to         geom.Vec2
		w, a, s, d bool
	}{
		{"right", geom.V(100, 0), false, false, false, true},
		{"up-left", geom.V(-100, -100), true, true, false, false},
		{"down", geom.V(0, 100), false, false, true, false},
		{"close", geom.V(5, -5), false, false, false, false},
	}
	for _, tt := range tests {
		k := walkToward(geom.Vec2{}, tt.to)
		if k.W != tt.w || k.A != tt.a || k.S != tt.s || k.D != tt.d {
			t.Errorf("%s: keys = %+v", tt.name, k)
		}
	}
}

func TestBotIdleWithoutGame(t *testing.T) {
	b := newBot(nil)
	b.keys.W = true
	b.think(time.Now())
	if b.Keys().W {
		t.Error("bot kept walking without a game")
	}
}
