package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

func TestFixturesAreDeterministicAndOverridable(t *testing.T) {
	user := NewUserFixture(WithUserID("alice"), WithUserFullName("Alice A"))
	if user.ID != "alice" || user.FullName != "Alice A" || user.Username == "" {
		t.Fatalf("unexpected user fixture: %#v", user)
	}

	room := NewRoomFixture("c1", WithRoomCapacity(6), WithRoomInactive())
	persisted := room.Persistence()
	if persisted.CompanyID != "c1" || persisted.IsActive || persisted.Capacity == nil || *persisted.Capacity != 6 {
		t.Fatalf("unexpected room: %#v", persisted)
	}
	*persisted.Capacity = 1
	if *room.Capacity != 6 {
		t.Fatalf("Persistence must copy the capacity pointer")
	}

	start := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	booking := NewBookingFixture(room, user.ID, start, WithBookingDuration(30*time.Minute))
	if !booking.Definition.End.Equal(start.Add(30*time.Minute)) || booking.Definition.RoomID != room.ID {
		t.Fatalf("unexpected booking: %#v", booking.Definition)
	}
}

func TestSQLiteHarnessSeeds(t *testing.T) {
	h := NewSQLiteHarness(t)

	owner := h.SeedUser(t, NewUserFixture())
	member := h.SeedUser(t, NewUserFixture())
	company := h.SeedCompany(t, NewCompanyFixture(owner.ID))
	h.SeedMember(t, company.ID, member.ID, false)
	room := h.SeedRoom(t, NewRoomFixture(company.ID))

	start := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	rule := recurrence.Rule{Kind: recurrence.KindWeekly, Days: []int{0, 2}, Until: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)}
	def := h.SeedBooking(t, NewBookingFixture(room, member.ID, start, WithBookingRule(rule)))

	ctx := context.Background()
	members, err := h.Memberships.ListMembers(ctx, company.ID)
	if err != nil || len(members) != 2 {
		t.Fatalf("ListMembers = %d, %v", len(members), err)
	}
	active, err := h.Bookings.LoadActiveDefinitions(ctx, room.ID)
	if err != nil {
		t.Fatalf("LoadActiveDefinitions failed: %v", err)
	}
	if len(active) != 1 || active[0].Definition.ID != def.ID || active[0].Definition.Rule.Kind != recurrence.KindWeekly {
		t.Fatalf("unexpected active bookings: %#v", active)
	}
}
