package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/opswell/adminkit/modules/core/domain/entities/roleassignment"
	"github.com/opswell/adminkit/modules/core/services"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/httpapi"
	"github.com/opswell/adminkit/pkg/shared"
)

// AssignRoleRequest binds a role to a user. TenantID is optional: absent
// means the binding is global scope.
type AssignRoleRequest struct {
	RoleSlug string `json:"role_slug" validate:"required"`
	TenantID string `json:"tenant_id" validate:"omitempty,uuid"`
}

type RemoveRoleRequest struct {
	RoleSlug string `json:"role_slug" validate:"required"`
	TenantID string `json:"tenant_id" validate:"omitempty,uuid"`
}

type AssignmentResponse struct {
	ID       uint    `json:"id"`
	UserID   uint    `json:"user_id"`
	RoleID   uint    `json:"role_id"`
	TenantID *string `json:"tenant_id"`
	Scope    string  `json:"scope"`
}

type UserRolesController struct {
	app     application.Application
	service *services.RoleAssignmentService
}

func NewUserRolesController(app application.Application) application.Controller {
	return &UserRolesController{
		app:     app,
		service: app.Service(services.RoleAssignmentService{}).(*services.RoleAssignmentService),
	}
}

func (c *UserRolesController) Key() string {
	return "/users/roles"
}

func (c *UserRolesController) Register(r *mux.Router) {
	r.HandleFunc("/users/{id:[0-9]+}/roles", c.List).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/roles", c.Assign).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}/roles", c.Remove).Methods(http.MethodDelete)
}

func (c *UserRolesController) List(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUintVar(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid user id", nil)
		return
	}
	assignments, err := c.service.List(r.Context(), &roleassignment.FindParams{UserID: &userID})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mapAssignments(assignments))
}

func (c *UserRolesController) Assign(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUintVar(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid user id", nil)
		return
	}
	var req AssignRoleRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := shared.Validate.Struct(&req); err != nil {
		_ = httpapi.WriteValidationErrors(w, shared.FieldErrors(err))
		return
	}
	tenantID, err := parseOptionalUUID(req.TenantID)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_TENANT_ID", "invalid tenant id", nil)
		return
	}
	causerID, _ := composables.UseCauserID(r.Context())
	assignment, err := c.service.Assign(r.Context(), causerID, userID, req.RoleSlug, tenantID)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mapAssignment(assignment))
}

func (c *UserRolesController) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUintVar(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid user id", nil)
		return
	}
	var req RemoveRoleRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := shared.Validate.Struct(&req); err != nil {
		_ = httpapi.WriteValidationErrors(w, shared.FieldErrors(err))
		return
	}
	tenantID, err := parseOptionalUUID(req.TenantID)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_TENANT_ID", "invalid tenant id", nil)
		return
	}
	causerID, _ := composables.UseCauserID(r.Context())
	if err := c.service.Remove(r.Context(), causerID, userID, req.RoleSlug, tenantID); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"removed": true})
}

func mapAssignment(assignment *roleassignment.RoleAssignment) *AssignmentResponse {
	var tenantID *string
	if assignment.TenantID != nil {
		value := assignment.TenantID.String()
		tenantID = &value
	}
	return &AssignmentResponse{
		ID:       assignment.ID,
		UserID:   assignment.UserID,
		RoleID:   assignment.RoleID,
		TenantID: tenantID,
		Scope:    assignment.Scope(),
	}
}

func mapAssignments(assignments []*roleassignment.RoleAssignment) []*AssignmentResponse {
	result := make([]*AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		result = append(result, mapAssignment(assignment))
	}
	return result
}

func parseOptionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
