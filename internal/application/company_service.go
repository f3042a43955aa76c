package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-booking/internal/persistence"
)

// CompanyServiceConfig collects the dependencies of a CompanyService.
type CompanyServiceConfig struct {
	Users       persistence.UserRepository
	Companies   persistence.CompanyRepository
	Memberships persistence.MembershipRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// CompanyService manages users, companies and memberships.
type CompanyService struct {
	users       persistence.UserRepository
	companies   persistence.CompanyRepository
	memberships persistence.MembershipRepository
	access      access
	validator   *inputValidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCompanyService constructs a company service.
func NewCompanyService(cfg CompanyServiceConfig) *CompanyService {
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CompanyService{
		users:       cfg.Users,
		companies:   cfg.Companies,
		memberships: cfg.Memberships,
		access:      access{memberships: cfg.Memberships},
		validator:   newInputValidator(),
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
		logger:      defaultLogger(cfg.Logger),
	}
}

func (s *CompanyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CompanyService", operation, attrs...)
}

// RegisterUser records or refreshes a chat identity.
func (s *CompanyService) RegisterUser(ctx context.Context, input UserInput) (user persistence.User, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RegisterUser", "user_id", input.ID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to register user", err)
			return
		}
		logger.DebugContext(ctx, "user registered")
	}()

	input.ID = strings.TrimSpace(input.ID)
	input.Username = strings.TrimPrefix(strings.TrimSpace(input.Username), "@")
	input.FullName = strings.TrimSpace(input.FullName)
	if vErr := s.validator.Struct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := persistence.User{
		ID:        input.ID,
		Username:  input.Username,
		FullName:  input.FullName,
		CreatedAt: s.now().UTC(),
	}
	if err = s.users.UpsertUser(ctx, candidate); err != nil {
		err = mapRepoError(err)
		return
	}

	user, err = s.users.GetUser(ctx, input.ID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// CreateCompany creates a company and makes the principal its first admin.
func (s *CompanyService) CreateCompany(ctx context.Context, params CreateCompanyParams) (company Company, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateCompany", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to create company", err)
			return
		}
		logger.With("company_id", company.ID).InfoContext(ctx, "company created")
	}()

	if err = s.requireRegistered(ctx, params.Principal); err != nil {
		return
	}

	input := params.Input
	input.Name = strings.TrimSpace(input.Name)
	input.Passcode = strings.TrimSpace(input.Passcode)
	if vErr := s.validator.Struct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	hash, err := hashPasscode(input.Passcode)
	if err != nil {
		return
	}

	now := s.now().UTC()
	record := persistence.Company{
		ID:           s.idGenerator(),
		Name:         input.Name,
		PasscodeHash: hash,
		CreatedBy:    params.Principal.UserID,
		CreatedAt:    now,
	}
	owner := persistence.Membership{UserID: params.Principal.UserID, IsAdmin: true, JoinedAt: now}
	if err = s.companies.CreateCompany(ctx, record, owner); err != nil {
		err = mapRepoError(err)
		return
	}

	company = toCompany(record)
	return
}

// GetCompany returns a company the principal belongs to.
func (s *CompanyService) GetCompany(ctx context.Context, principal Principal, companyID string) (company Company, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}

	if _, err = s.access.member(ctx, principal, companyID); err != nil {
		return
	}
	record, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return toCompany(record), nil
}

// JoinCompany adds the principal as a regular member when the passcode
// matches. Joining twice keeps the existing membership.
func (s *CompanyService) JoinCompany(ctx context.Context, params JoinCompanyParams) (membership persistence.Membership, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "JoinCompany",
		"principal_id", params.Principal.UserID,
		"company_id", params.CompanyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to join company", err)
			return
		}
		logger.InfoContext(ctx, "company joined", "is_admin", membership.IsAdmin)
	}()

	if err = s.requireRegistered(ctx, params.Principal); err != nil {
		return
	}

	company, err := s.companies.GetCompany(ctx, params.CompanyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if err = verifyPasscode(company.PasscodeHash, strings.TrimSpace(params.Passcode)); err != nil {
		return
	}

	candidate := persistence.Membership{
		UserID:    params.Principal.UserID,
		CompanyID: company.ID,
		JoinedAt:  s.now().UTC(),
	}
	if _, err = s.memberships.AddMember(ctx, candidate); err != nil {
		err = mapRepoError(err)
		return
	}

	membership, err = s.memberships.GetMembership(ctx, params.Principal.UserID, company.ID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// ChangePasscode replaces the company passcode. Admins only.
func (s *CompanyService) ChangePasscode(ctx context.Context, params ChangePasscodeParams) (err error) {
	if s == nil {
		return fmt.Errorf("CompanyService is nil")
	}

	logger := s.loggerWith(ctx, "ChangePasscode",
		"principal_id", params.Principal.UserID,
		"company_id", params.CompanyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to change passcode", err)
			return
		}
		logger.InfoContext(ctx, "passcode changed")
	}()

	if _, err = s.access.admin(ctx, params.Principal, params.CompanyID); err != nil {
		return
	}

	passcode := strings.TrimSpace(params.Passcode)
	vErr := &ValidationError{}
	s.validator.Var(vErr, "passcode", passcode, "required,min=3,max=32")
	if vErr.HasErrors() {
		return vErr
	}

	hash, err := hashPasscode(passcode)
	if err != nil {
		return
	}
	if err = s.companies.UpdatePasscode(ctx, params.CompanyID, hash); err != nil {
		err = mapRepoError(err)
		return
	}
	return nil
}

// Memberships lists the principal's companies ordered by name.
func (s *CompanyService) Memberships(ctx context.Context, principal Principal) (memberships []persistence.Membership, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}
	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	memberships, err = s.memberships.ListMemberships(ctx, principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		logOutcome(ctx, s.loggerWith(ctx, "Memberships", "principal_id", principal.UserID), "failed to list memberships", err)
	}
	return
}

// Members lists a company's members, admins first, then by full name.
func (s *CompanyService) Members(ctx context.Context, principal Principal, companyID string) (members []persistence.Membership, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Members",
		"principal_id", principal.UserID,
		"company_id", companyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to list members", err)
		}
	}()

	if _, err = s.access.member(ctx, principal, companyID); err != nil {
		return
	}
	members, err = s.memberships.ListMembers(ctx, companyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// SetAdmin grants or revokes admin rights. The last admin cannot be demoted.
func (s *CompanyService) SetAdmin(ctx context.Context, principal Principal, companyID, userID string, isAdmin bool) (err error) {
	if s == nil {
		return fmt.Errorf("CompanyService is nil")
	}

	logger := s.loggerWith(ctx, "SetAdmin",
		"principal_id", principal.UserID,
		"company_id", companyID,
		"user_id", userID,
		"is_admin", isAdmin,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to change admin rights", err)
			return
		}
		logger.InfoContext(ctx, "admin rights changed")
	}()

	if _, err = s.access.admin(ctx, principal, companyID); err != nil {
		return
	}

	target, err := s.memberships.GetMembership(ctx, userID, companyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if target.IsAdmin == isAdmin {
		return nil
	}
	if !isAdmin {
		if err = s.ensureOtherAdmin(ctx, companyID); err != nil {
			return
		}
	}

	if err = s.memberships.SetAdmin(ctx, userID, companyID, isAdmin); err != nil {
		err = mapRepoError(err)
		return
	}
	return nil
}

// RemoveMember removes userID from the company. Admins may remove anyone and
// members may remove themselves. The last admin cannot leave.
func (s *CompanyService) RemoveMember(ctx context.Context, principal Principal, companyID, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("CompanyService is nil")
	}

	logger := s.loggerWith(ctx, "RemoveMember",
		"principal_id", principal.UserID,
		"company_id", companyID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to remove member", err)
			return
		}
		logger.InfoContext(ctx, "member removed")
	}()

	if principal.UserID == userID {
		_, err = s.access.member(ctx, principal, companyID)
	} else {
		_, err = s.access.admin(ctx, principal, companyID)
	}
	if err != nil {
		return
	}

	target, err := s.memberships.GetMembership(ctx, userID, companyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if target.IsAdmin {
		if err = s.ensureOtherAdmin(ctx, companyID); err != nil {
			return
		}
	}

	if err = s.memberships.RemoveMember(ctx, userID, companyID); err != nil {
		err = mapRepoError(err)
		return
	}
	return nil
}

// DeleteCompany removes the company, its memberships and bookings and
// deactivates its rooms. It returns the number of cancelled bookings.
func (s *CompanyService) DeleteCompany(ctx context.Context, principal Principal, companyID string) (cancelled int64, err error) {
	if s == nil {
		err = fmt.Errorf("CompanyService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DeleteCompany",
		"principal_id", principal.UserID,
		"company_id", companyID,
	)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, "failed to delete company", err)
			return
		}
		logger.InfoContext(ctx, "company deleted", "cancelled_bookings", cancelled)
	}()

	if _, err = s.access.admin(ctx, principal, companyID); err != nil {
		return
	}

	cancelled, err = s.companies.DeleteCompany(ctx, companyID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

func (s *CompanyService) requireRegistered(ctx context.Context, principal Principal) error {
	if principal.UserID == "" {
		return ErrUnauthorized
	}
	if _, err := s.users.GetUser(ctx, principal.UserID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("%w: user %s is not registered", ErrUnauthorized, principal.UserID)
		}
		return mapRepoError(err)
	}
	return nil
}

func (s *CompanyService) ensureOtherAdmin(ctx context.Context, companyID string) error {
	admins, err := s.memberships.CountAdmins(ctx, companyID)
	if err != nil {
		return mapRepoError(err)
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func toCompany(record persistence.Company) Company {
	return Company{
		ID:        record.ID,
		Name:      record.Name,
		CreatedBy: record.CreatedBy,
		CreatedAt: record.CreatedAt,
	}
}
