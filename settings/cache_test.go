package settings

import "testing"

type fakeAccount struct {
	id    string
	group string
}

func (a fakeAccount) AccountID() string    { return a.id }
func (a fakeAccount) TradingGroup() string { return a.group }

func TestResolveByAccountUnknownAccount(t *testing.T) {
	c := NewCache(nil, nil)
	if _, ok := c.ResolveByAccount("missing"); ok {
		t.Fatalf("expected unknown account to resolve to false")
	}
}

func TestResolveByAccountFollowsGroupMapping(t *testing.T) {
	group := TradingGroupSettings{ID: "standard", Instruments: map[string]InstrumentSettings{}}
	c := NewCache([]TradingGroupSettings{group}, []AccountRef{fakeAccount{id: "acct-1", group: "standard"}})

	got, ok := c.ResolveByAccount("acct-1")
	if !ok || got.ID != "standard" {
		t.Fatalf("expected to resolve acct-1 to group standard, got %+v ok=%v", got, ok)
	}
}

func TestInsertOrReplaceSettingsReturnsAffectedAccounts(t *testing.T) {
	group := TradingGroupSettings{ID: "standard", Instruments: map[string]InstrumentSettings{}}
	c := NewCache([]TradingGroupSettings{group}, []AccountRef{
		fakeAccount{id: "acct-1", group: "standard"},
		fakeAccount{id: "acct-2", group: "other"},
	})

	affected := c.InsertOrReplaceSettings(TradingGroupSettings{ID: "standard", Instruments: map[string]InstrumentSettings{"EURUSD": {Digits: 5}}})
	if len(affected) != 1 || affected[0] != "acct-1" {
		t.Fatalf("expected [acct-1], got %v", affected)
	}

	updated, _ := c.Group("standard")
	if _, ok := updated.Instruments["EURUSD"]; !ok {
		t.Fatalf("expected group to be replaced with new instrument settings")
	}
}

func TestAccountUpdatedRefreshesMapping(t *testing.T) {
	groupA := TradingGroupSettings{ID: "a", Instruments: map[string]InstrumentSettings{}}
	groupB := TradingGroupSettings{ID: "b", Instruments: map[string]InstrumentSettings{}}
	c := NewCache([]TradingGroupSettings{groupA, groupB}, []AccountRef{fakeAccount{id: "acct-1", group: "a"}})

	c.AccountUpdated("acct-1", "b")

	got, ok := c.ResolveByAccount("acct-1")
	if !ok || got.ID != "b" {
		t.Fatalf("expected acct-1 to move to group b, got %+v ok=%v", got, ok)
	}
}
