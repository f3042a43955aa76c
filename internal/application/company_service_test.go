package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/room-booking/internal/testfixtures"
)

type companyEnv struct {
	harness *testfixtures.SQLiteHarness
	service *CompanyService
	clock   *testfixtures.Clock
}

func newCompanyEnv(t *testing.T) *companyEnv {
	t.Helper()

	h := testfixtures.NewSQLiteHarness(t)
	clock := testfixtures.ClockAt("2024-03-04 09:00")
	return &companyEnv{
		harness: h,
		clock:   clock,
		service: NewCompanyService(CompanyServiceConfig{
			Users:       h.Users,
			Companies:   h.Companies,
			Memberships: h.Memberships,
			IDGenerator: testfixtures.NewIDGenerator("company").NextFunc(),
			Now:         clock.NowFunc(),
		}),
	}
}

func (e *companyEnv) register(t *testing.T, id, fullName string) Principal {
	t.Helper()

	if _, err := e.service.RegisterUser(context.Background(), UserInput{ID: id, FullName: fullName}); err != nil {
		t.Fatalf("RegisterUser(%s) failed: %v", id, err)
	}
	return Principal{UserID: id}
}

func (e *companyEnv) createCompany(t *testing.T, owner Principal, passcode string) Company {
	t.Helper()

	company, err := e.service.CreateCompany(context.Background(), CreateCompanyParams{
		Principal: owner,
		Input:     CompanyInput{Name: "Acme", Passcode: passcode},
	})
	if err != nil {
		t.Fatalf("CreateCompany failed: %v", err)
	}
	return company
}

func TestCompanyServiceRegisterUser(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	ctx := context.Background()

	user, err := env.service.RegisterUser(ctx, UserInput{ID: " 42 ", Username: "@alice", FullName: " Alice "})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if user.ID != "42" || user.Username != "alice" || user.FullName != "Alice" {
		t.Fatalf("unexpected user: %#v", user)
	}

	env.clock.Advance(time.Hour)
	user, err = env.service.RegisterUser(ctx, UserInput{ID: "42", Username: "alice2", FullName: "Alice B"})
	if err != nil {
		t.Fatalf("RegisterUser update failed: %v", err)
	}
	if user.Username != "alice2" || !user.CreatedAt.Equal(env.clock.Now().Add(-time.Hour)) {
		t.Fatalf("expected refreshed names and original created_at, got %#v", user)
	}

	_, err = env.service.RegisterUser(ctx, UserInput{ID: " "})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["id"] == "" {
		t.Fatalf("expected id validation error, got %v", err)
	}
}

func TestCompanyServiceCreateAndJoin(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner", "Olga Owner")
	joiner := env.register(t, "joiner", "Jan Joiner")

	company := env.createCompany(t, owner, "s3cret")
	if company.ID != "company-1" || company.CreatedBy != "owner" {
		t.Fatalf("unexpected company: %#v", company)
	}

	stored, err := env.harness.Companies.GetCompany(ctx, company.ID)
	if err != nil {
		t.Fatalf("GetCompany failed: %v", err)
	}
	if stored.PasscodeHash == "s3cret" || !strings.HasPrefix(stored.PasscodeHash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", stored.PasscodeHash)
	}

	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: joiner, CompanyID: company.ID, Passcode: "wrong"}); !errors.Is(err, ErrInvalidPasscode) {
		t.Fatalf("expected ErrInvalidPasscode, got %v", err)
	}

	membership, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: joiner, CompanyID: company.ID, Passcode: " s3cret "})
	if err != nil {
		t.Fatalf("JoinCompany failed: %v", err)
	}
	if membership.IsAdmin || membership.CompanyName != "Acme" {
		t.Fatalf("unexpected membership: %#v", membership)
	}

	again, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: owner, CompanyID: company.ID, Passcode: "s3cret"})
	if err != nil || !again.IsAdmin {
		t.Fatalf("rejoining must keep admin rights, got %#v, %v", again, err)
	}

	members, err := env.service.Members(ctx, joiner, company.ID)
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 2 || members[0].UserID != "owner" {
		t.Fatalf("expected admin first, got %#v", members)
	}

	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: Principal{UserID: "ghost"}, CompanyID: company.ID, Passcode: "s3cret"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unregistered users must not join, got %v", err)
	}
	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: joiner, CompanyID: "missing", Passcode: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown company, got %v", err)
	}
}

func TestCompanyServiceCreateCompanyValidation(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	owner := env.register(t, "owner", "Olga Owner")

	_, err := env.service.CreateCompany(context.Background(), CreateCompanyParams{
		Principal: owner,
		Input:     CompanyInput{Name: "A", Passcode: "ab"},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.FieldErrors["name"] == "" || vErr.FieldErrors["passcode"] == "" {
		t.Fatalf("expected name and passcode errors, got %v", vErr.FieldErrors)
	}
}

func TestCompanyServiceChangePasscode(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner", "Olga Owner")
	member := env.register(t, "member", "Mia Member")
	late := env.register(t, "late", "Lou Late")
	company := env.createCompany(t, owner, "first")

	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: member, CompanyID: company.ID, Passcode: "first"}); err != nil {
		t.Fatalf("JoinCompany failed: %v", err)
	}
	if err := env.service.ChangePasscode(ctx, ChangePasscodeParams{Principal: member, CompanyID: company.ID, Passcode: "second"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for member, got %v", err)
	}
	if err := env.service.ChangePasscode(ctx, ChangePasscodeParams{Principal: owner, CompanyID: company.ID, Passcode: "no"}); err == nil {
		t.Fatalf("expected short passcode to be rejected")
	}
	if err := env.service.ChangePasscode(ctx, ChangePasscodeParams{Principal: owner, CompanyID: company.ID, Passcode: "second"}); err != nil {
		t.Fatalf("ChangePasscode failed: %v", err)
	}

	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: late, CompanyID: company.ID, Passcode: "first"}); !errors.Is(err, ErrInvalidPasscode) {
		t.Fatalf("old passcode must stop working, got %v", err)
	}
	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: late, CompanyID: company.ID, Passcode: "second"}); err != nil {
		t.Fatalf("new passcode must work, got %v", err)
	}
}

func TestCompanyServiceAdminRules(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner", "Olga Owner")
	member := env.register(t, "member", "Mia Member")
	company := env.createCompany(t, owner, "code")
	if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: member, CompanyID: company.ID, Passcode: "code"}); err != nil {
		t.Fatalf("JoinCompany failed: %v", err)
	}

	if err := env.service.SetAdmin(ctx, owner, company.ID, "owner", false); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin when demoting the only admin, got %v", err)
	}
	if err := env.service.RemoveMember(ctx, owner, company.ID, "owner"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin when the only admin leaves, got %v", err)
	}
	if err := env.service.SetAdmin(ctx, member, company.ID, "member", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("members cannot promote themselves, got %v", err)
	}

	if err := env.service.SetAdmin(ctx, owner, company.ID, "member", true); err != nil {
		t.Fatalf("SetAdmin failed: %v", err)
	}
	if err := env.service.SetAdmin(ctx, member, company.ID, "owner", false); err != nil {
		t.Fatalf("demoting with another admin present failed: %v", err)
	}
	if err := env.service.RemoveMember(ctx, member, company.ID, "owner"); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	memberships, err := env.service.Memberships(ctx, owner)
	if err != nil {
		t.Fatalf("Memberships failed: %v", err)
	}
	if len(memberships) != 0 {
		t.Fatalf("expected removed owner to have no memberships, got %#v", memberships)
	}
	if _, err := env.service.GetCompany(ctx, owner, company.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("former members must not read the company, got %v", err)
	}
}

func TestCompanyServiceMemberLeaves(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner", "Olga Owner")
	member := env.register(t, "member", "Mia Member")
	other := env.register(t, "other", "Otto Other")
	company := env.createCompany(t, owner, "code")
	for _, p := range []Principal{member, other} {
		if _, err := env.service.JoinCompany(ctx, JoinCompanyParams{Principal: p, CompanyID: company.ID, Passcode: "code"}); err != nil {
			t.Fatalf("JoinCompany failed: %v", err)
		}
	}

	if err := env.service.RemoveMember(ctx, member, company.ID, "other"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("members cannot remove others, got %v", err)
	}
	if err := env.service.RemoveMember(ctx, member, company.ID, "member"); err != nil {
		t.Fatalf("leaving failed: %v", err)
	}
	if err := env.service.RemoveMember(ctx, owner, company.ID, "member"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for removed member, got %v", err)
	}
}

func TestCompanyServiceDeleteCompany(t *testing.T) {
	t.Parallel()

	env := newCompanyEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner", "Olga Owner")
	company := env.createCompany(t, owner, "code")

	room := env.harness.SeedRoom(t, testfixtures.NewRoomFixture(company.ID))
	env.harness.SeedBooking(t, testfixtures.NewBookingFixture(room, "owner", time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)))

	cancelled, err := env.service.DeleteCompany(ctx, owner, company.ID)
	if err != nil {
		t.Fatalf("DeleteCompany failed: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 cancelled booking, got %d", cancelled)
	}

	stored, err := env.harness.Rooms.GetRoom(ctx, room.ID)
	if err != nil || stored.IsActive {
		t.Fatalf("expected room to remain but be inactive, got %#v, %v", stored, err)
	}
	if _, err := env.service.DeleteCompany(ctx, owner, company.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized once membership is gone, got %v", err)
	}
}
