package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewIDUnique(t *testing.T) {
	var g Generator
	a, b := g.NewID(), g.NewID()
	if a == b {
		t.Fatalf("ids must differ")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("not a uuid: %v", err)
	}
}
