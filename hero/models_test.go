package hero

import (
	"testing"

	"github.com/xraph/heroes/valuation"
)

func ptr[T any](v T) *T { return &v }

func TestAddBadgeIsSet(t *testing.T) {
	h := &Hero{}
	if !h.AddBadge(DefaultBadge) {
		t.Fatal("expected first grant to succeed")
	}
	if h.AddBadge(DefaultBadge) {
		t.Error("expected duplicate grant to be ignored")
	}
	if h.AddBadge("") {
		t.Error("expected empty badge to be ignored")
	}
	if len(h.Badges) != 1 {
		t.Errorf("badges: got %v", h.Badges)
	}
}

func TestCloneIsDeep(t *testing.T) {
	h := &Hero{Badges: []string{DefaultBadge}}
	c := h.Clone()
	c.Badges[0] = "changed"
	if h.Badges[0] != DefaultBadge {
		t.Error("clone shares badge storage with original")
	}
	if (*Hero)(nil).Clone() != nil {
		t.Error("expected nil clone of nil hero")
	}
}

func TestPatchRederivesTier(t *testing.T) {
	h := &Hero{Points: 100, Level: valuation.TierBronze}

	Patch{Points: ptr(int64(650))}.ApplyTo(h)
	if h.Points != 650 || h.Level != valuation.TierGold {
		t.Errorf("expected Gold at 650, got %d %q", h.Points, h.Level)
	}

	Patch{Points: ptr(int64(320))}.ApplyTo(h)
	if h.Level != valuation.TierSilver {
		t.Errorf("expected Silver at 320, got %q", h.Level)
	}
}

func TestPatchLeavesUnsetFields(t *testing.T) {
	h := &Hero{
		Name:        "Ada",
		Email:       "ada@example.com",
		DeviceModel: "iPhone 13",
		Points:      100,
		Level:       valuation.TierBronze,
		IsActive:    true,
		Badges:      []string{DefaultBadge},
	}

	p := Patch{Name: ptr("Ada L."), IsActive: ptr(false), Badges: &[]string{"a", "a", "b"}}
	if p.IsEmpty() {
		t.Fatal("patch should not be empty")
	}
	p.ApplyTo(h)

	if h.Name != "Ada L." || h.IsActive {
		t.Errorf("patched fields not applied: %+v", h)
	}
	if h.Email != "ada@example.com" || h.DeviceModel != "iPhone 13" || h.Points != 100 {
		t.Errorf("unset fields changed: %+v", h)
	}
	if len(h.Badges) != 2 {
		t.Errorf("expected de-duplicated badges, got %v", h.Badges)
	}
	if !(Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}
