package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/opswell/adminkit/modules/core/domain/aggregates/role"
	"github.com/opswell/adminkit/modules/core/domain/entities/permission"
	"github.com/opswell/adminkit/modules/core/services"
	"github.com/opswell/adminkit/pkg/application"
	"github.com/opswell/adminkit/pkg/composables"
	"github.com/opswell/adminkit/pkg/httpapi"
	"github.com/opswell/adminkit/pkg/shared"
)

type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=255"`
	Slug        string   `json:"slug" validate:"omitempty,max=255"`
	Description string   `json:"description" validate:"omitempty,max=1000"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type UpdateRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=255"`
	Slug        string   `json:"slug" validate:"omitempty,max=255"`
	Description string   `json:"description" validate:"omitempty,max=1000"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type RoleResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	IsSystem    bool     `json:"is_system"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type UpdateRoleResponse struct {
	Role               *RoleResponse `json:"role"`
	PermissionsAdded   []string      `json:"permissions_added"`
	PermissionsRemoved []string      `json:"permissions_removed"`
}

type PermissionResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type RolesController struct {
	app     application.Application
	service *services.RoleService
}

func NewRolesController(app application.Application) application.Controller {
	return &RolesController{
		app:     app,
		service: app.Service(services.RoleService{}).(*services.RoleService),
	}
}

func (c *RolesController) Key() string {
	return "/roles"
}

func (c *RolesController) Register(r *mux.Router) {
	r.HandleFunc("/roles", c.List).Methods(http.MethodGet)
	r.HandleFunc("/roles", c.Create).Methods(http.MethodPost)
	r.HandleFunc("/roles/{id:[0-9]+}", c.GetByID).Methods(http.MethodGet)
	r.HandleFunc("/roles/{id:[0-9]+}", c.Update).Methods(http.MethodPut)
	r.HandleFunc("/roles/{id:[0-9]+}", c.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/permissions", c.Permissions).Methods(http.MethodGet)
}

func (c *RolesController) List(w http.ResponseWriter, r *http.Request) {
	params, err := composables.UseQuery(&role.FindParams{}, r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_QUERY", err.Error(), nil)
		return
	}
	roles, err := c.service.GetPaginated(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	total, err := c.service.Count(r.Context(), params)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"data":  mapRoles(roles),
		"total": total,
	})
}

func (c *RolesController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintVar(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid role id", nil)
		return
	}
	entity, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mapRole(entity))
}

func (c *RolesController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := shared.Validate.Struct(&req); err != nil {
		_ = httpapi.WriteValidationErrors(w, shared.FieldErrors(err))
		return
	}
	causerID, _ := composables.UseCauserID(r.Context())
	created, err := c.service.Create(r.Context(), causerID, req.Name, services.RoleUpdate{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		PermissionSlugs: req.Permissions,
	})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, mapRole(created))
}

func (c *RolesController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintVar(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid role id", nil)
		return
	}
	var req UpdateRoleRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if err := shared.Validate.Struct(&req); err != nil {
		_ = httpapi.WriteValidationErrors(w, shared.FieldErrors(err))
		return
	}
	causerID, _ := composables.UseCauserID(r.Context())
	updated, diff, err := c.service.Update(r.Context(), causerID, id, services.RoleUpdate{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		PermissionSlugs: req.Permissions,
	})
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &UpdateRoleResponse{
		Role:               mapRole(updated),
		PermissionsAdded:   diff.Added,
		PermissionsRemoved: diff.Removed,
	})
}

func (c *RolesController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUintVar(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "BAD_ID", "invalid role id", nil)
		return
	}
	causerID, _ := composables.UseCauserID(r.Context())
	if err := c.service.Delete(r.Context(), causerID, id); err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (c *RolesController) Permissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := c.service.Permissions(r.Context())
	if err != nil {
		_ = httpapi.WriteDomainError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mapPermissions(permissions))
}

func mapRole(entity role.Role) *RoleResponse {
	names := make([]string, 0, len(entity.Permissions()))
	for _, p := range entity.Permissions() {
		names = append(names, p.Slug)
	}
	return &RoleResponse{
		ID:          entity.ID(),
		Name:        entity.Name(),
		Slug:        entity.Slug(),
		Description: entity.Description(),
		IsSystem:    entity.IsSystem(),
		Permissions: names,
		CreatedAt:   entity.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:   entity.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

func mapRoles(roles []role.Role) []*RoleResponse {
	result := make([]*RoleResponse, 0, len(roles))
	for _, entity := range roles {
		result = append(result, mapRole(entity))
	}
	return result
}

func mapPermissions(permissions []*permission.Permission) []*PermissionResponse {
	result := make([]*PermissionResponse, 0, len(permissions))
	for _, p := range permissions {
		result = append(result, &PermissionResponse{ID: p.ID, Name: p.Name, Slug: p.Slug})
	}
	return result
}

func parseUintVar(r *http.Request, name string) (uint, error) {
	value, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	return uint(value), err
}
