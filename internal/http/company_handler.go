package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

type companyService interface {
	RegisterUser(ctx context.Context, input application.UserInput) (persistence.User, error)
	CreateCompany(ctx context.Context, params application.CreateCompanyParams) (application.Company, error)
	GetCompany(ctx context.Context, principal application.Principal, companyID string) (application.Company, error)
	JoinCompany(ctx context.Context, params application.JoinCompanyParams) (persistence.Membership, error)
	ChangePasscode(ctx context.Context, params application.ChangePasscodeParams) error
	Memberships(ctx context.Context, principal application.Principal) ([]persistence.Membership, error)
	Members(ctx context.Context, principal application.Principal, companyID string) ([]persistence.Membership, error)
	SetAdmin(ctx context.Context, principal application.Principal, companyID, userID string, isAdmin bool) error
	RemoveMember(ctx context.Context, principal application.Principal, companyID, userID string) error
	DeleteCompany(ctx context.Context, principal application.Principal, companyID string) (int64, error)
}

// CompanyHandler serves user, company and membership endpoints.
type CompanyHandler struct {
	service   companyService
	responder responder
	logger    *slog.Logger
}

// NewCompanyHandler constructs a CompanyHandler.
func NewCompanyHandler(service companyService, logger *slog.Logger) *CompanyHandler {
	base := defaultLogger(logger)
	return &CompanyHandler{service: service, responder: newResponder(base), logger: base}
}

// RegisterMe handles PUT /me. The user id always comes from X-User-ID.
func (h *CompanyHandler) RegisterMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), application.UserInput{
		ID:       principal.UserID,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: userDTO{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
	}})
}

// Memberships handles GET /me/memberships.
func (h *CompanyHandler) Memberships(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	memberships, err := h.service.Memberships(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, membershipsResponse{Memberships: toMembershipDTOs(memberships)})
}

// Create handles POST /companies.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var input application.CompanyInput
	if err := decodeJSON(r, &input); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	company, err := h.service.CreateCompany(r.Context(), application.CreateCompanyParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, companyResponse{Company: toCompanyDTO(company)})
}

// Get handles GET /companies/:companyID.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	company, err := h.service.GetCompany(r.Context(), principal, ps.ByName("companyID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, companyResponse{Company: toCompanyDTO(company)})
}

// Join handles POST /companies/:companyID/members.
func (h *CompanyHandler) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var req passcodeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	membership, err := h.service.JoinCompany(r.Context(), application.JoinCompanyParams{
		Principal: principal,
		CompanyID: ps.ByName("companyID"),
		Passcode:  req.Passcode,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, membershipResponse{Membership: toMembershipDTO(membership)})
}

// ChangePasscode handles PUT /companies/:companyID/passcode.
func (h *CompanyHandler) ChangePasscode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var req passcodeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.ChangePasscode(r.Context(), application.ChangePasscodeParams{
		Principal: principal,
		CompanyID: ps.ByName("companyID"),
		Passcode:  req.Passcode,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Members handles GET /companies/:companyID/members.
func (h *CompanyHandler) Members(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	members, err := h.service.Members(r.Context(), principal, ps.ByName("companyID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, membershipsResponse{Memberships: toMembershipDTOs(members)})
}

// SetAdmin handles PUT /companies/:companyID/members/:userID/admin.
func (h *CompanyHandler) SetAdmin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	var req setAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.SetAdmin(r.Context(), principal, ps.ByName("companyID"), ps.ByName("userID"), req.IsAdmin); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// RemoveMember handles DELETE /companies/:companyID/members/:userID.
func (h *CompanyHandler) RemoveMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.RemoveMember(r.Context(), principal, ps.ByName("companyID"), ps.ByName("userID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Delete handles DELETE /companies/:companyID.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := PrincipalFromContext(r.Context())

	cancelled, err := h.service.DeleteCompany(r.Context(), principal, ps.ByName("companyID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, deleteResponse{CancelledBookings: cancelled})
}

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type passcodeRequest struct {
	Passcode string `json:"passcode"`
}

type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type companyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

type companyResponse struct {
	Company companyDTO `json:"company"`
}

func toCompanyDTO(company application.Company) companyDTO {
	return companyDTO{
		ID:        company.ID,
		Name:      company.Name,
		CreatedBy: company.CreatedBy,
		CreatedAt: company.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type membershipDTO struct {
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name,omitempty"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
	JoinedAt    string `json:"joined_at"`
}

type membershipResponse struct {
	Membership membershipDTO `json:"membership"`
}

type membershipsResponse struct {
	Memberships []membershipDTO `json:"memberships"`
}

func toMembershipDTO(m persistence.Membership) membershipDTO {
	return membershipDTO{
		UserID:      m.UserID,
		CompanyID:   m.CompanyID,
		CompanyName: m.CompanyName,
		Username:    m.Username,
		FullName:    m.FullName,
		IsAdmin:     m.IsAdmin,
		JoinedAt:    m.JoinedAt.UTC().Format(time.RFC3339),
	}
}

func toMembershipDTOs(memberships []persistence.Membership) []membershipDTO {
	out := make([]membershipDTO, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, toMembershipDTO(m))
	}
	return out
}
