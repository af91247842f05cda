package department

import (
	errors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/core/common/validation"
	"github.com/okanehara/travel-approval/internal/rbac"
)

type CreateDepartmentDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
	MaxMembers  int     `json:"max_members,omitempty"`
}

func (dto CreateDepartmentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(100)
	v.Field("max_members", int64(dto.MaxMembers)).NonNegative(errors.ErrCodeValidationFailed)
	return v.Validate()
}

type UpdateDepartmentDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ManagerID   *string `json:"manager_id,omitempty"`
	MaxMembers  *int    `json:"max_members,omitempty"`
}

func (dto UpdateDepartmentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(100)
	}
	if dto.MaxMembers != nil {
		v.Field("max_members", int64(*dto.MaxMembers)).NonNegative(errors.ErrCodeValidationFailed)
	}
	return v.Validate()
}

type InviteDTO struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (dto InviteDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required().MaxLength(255)
	v.Field("role", dto.Role).Required().OneOf(
		string(rbac.RoleGeneralUser),
		string(rbac.RoleApprover),
		string(rbac.RoleDepartmentAdmin))
	return v.Validate()
}

type AcceptInvitationDTO struct {
	Token string `json:"token"`
}

func (dto AcceptInvitationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("token", dto.Token).Required()
	return v.Validate()
}
