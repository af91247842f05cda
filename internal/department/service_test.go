package department

import (
	"context"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/auth"
	"github.com/okanehara/travel-approval/internal/rbac"
)

func TestDepartmentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DepartmentService Suite")
}

type mockDepartmentRepo struct {
	departments map[string]*Department
}

func (m *mockDepartmentRepo) Create(_ context.Context, dept *Department) error {
	copied := *dept
	m.departments[dept.ID] = &copied
	return nil
}

func (m *mockDepartmentRepo) GetByID(_ context.Context, id string) (*Department, error) {
	dept, ok := m.departments[id]
	if !ok {
		return nil, apperrors.ErrDepartmentNotFound
	}
	copied := *dept
	return &copied, nil
}

func (m *mockDepartmentRepo) List(_ context.Context) ([]*Department, error) {
	var out []*Department
	for _, dept := range m.departments {
		out = append(out, dept)
	}
	return out, nil
}

func (m *mockDepartmentRepo) Update(_ context.Context, dept *Department) error {
	if _, ok := m.departments[dept.ID]; !ok {
		return apperrors.ErrDepartmentNotFound
	}
	copied := *dept
	m.departments[dept.ID] = &copied
	return nil
}

type mockInvitationRepo struct {
	invitations map[string]*Invitation
}

func (m *mockInvitationRepo) Create(_ context.Context, inv *Invitation) error {
	copied := *inv
	m.invitations[inv.ID] = &copied
	return nil
}

func (m *mockInvitationRepo) GetByID(_ context.Context, id string) (*Invitation, error) {
	inv, ok := m.invitations[id]
	if !ok {
		return nil, apperrors.ErrInvitationNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *mockInvitationRepo) GetByToken(_ context.Context, token string) (*Invitation, error) {
	for _, inv := range m.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, apperrors.ErrInvitationNotFound
}

func (m *mockInvitationRepo) ListByDepartment(_ context.Context, departmentID string) ([]*Invitation, error) {
	var out []*Invitation
	for _, inv := range m.invitations {
		if inv.DepartmentID == departmentID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvitationRepo) Update(_ context.Context, inv *Invitation) error {
	if _, ok := m.invitations[inv.ID]; !ok {
		return apperrors.ErrInvitationNotFound
	}
	copied := *inv
	m.invitations[inv.ID] = &copied
	return nil
}

type mockMembershipRepo struct {
	memberships  map[string]*Membership
	getActiveErr error
}

func (m *mockMembershipRepo) Create(_ context.Context, membership *Membership) error {
	copied := *membership
	m.memberships[membership.ID] = &copied
	return nil
}

func (m *mockMembershipRepo) GetActive(_ context.Context, departmentID, userID string) (*Membership, error) {
	if m.getActiveErr != nil {
		return nil, m.getActiveErr
	}
	for _, membership := range m.memberships {
		if membership.DepartmentID == departmentID && membership.UserID == userID && membership.IsActive {
			copied := *membership
			return &copied, nil
		}
	}
	return nil, apperrors.ErrMembershipNotFound
}

func (m *mockMembershipRepo) ListActiveByDepartment(_ context.Context, departmentID string) ([]*Membership, error) {
	var out []*Membership
	for _, membership := range m.memberships {
		if membership.DepartmentID == departmentID && membership.IsActive {
			out = append(out, membership)
		}
	}
	return out, nil
}

func (m *mockMembershipRepo) CountActive(_ context.Context, departmentID string) (int64, error) {
	var count int64
	for _, membership := range m.memberships {
		if membership.DepartmentID == departmentID && membership.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockMembershipRepo) Update(_ context.Context, membership *Membership) error {
	if _, ok := m.memberships[membership.ID]; !ok {
		return apperrors.ErrMembershipNotFound
	}
	copied := *membership
	m.memberships[membership.ID] = &copied
	return nil
}

var _ = Describe("DepartmentService", func() {
	var (
		departments *mockDepartmentRepo
		invitations *mockInvitationRepo
		memberships *mockMembershipRepo
		service     *Service
		ctx         context.Context

		admin      *auth.Principal
		freeAdmin  *auth.Principal
		deptAdmin  *auth.Principal
		member     *auth.Principal
	)

	seedDept := func(id string, active bool, maxMembers int) {
		departments.departments[id] = &Department{
			ID:         id,
			Name:       "Engineering",
			MaxMembers: maxMembers,
			IsActive:   active,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
	}

	seedMember := func(id, deptID, userID string) {
		memberships.memberships[id] = &Membership{
			ID:           id,
			DepartmentID: deptID,
			UserID:       userID,
			Role:         string(rbac.RoleGeneralUser),
			IsActive:     true,
			JoinedAt:     time.Now(),
		}
	}

	BeforeEach(func() {
		departments = &mockDepartmentRepo{departments: make(map[string]*Department)}
		invitations = &mockInvitationRepo{invitations: make(map[string]*Invitation)}
		memberships = &mockMembershipRepo{memberships: make(map[string]*Membership)}
		service = NewService(departments, invitations, memberships, slog.Default())
		ctx = context.Background()

		admin = &auth.Principal{ID: "admin-1", Role: rbac.RoleAdmin, Plan: rbac.PlanEnterprise}
		freeAdmin = &auth.Principal{ID: "admin-2", Role: rbac.RoleAdmin, Plan: rbac.PlanFree}
		deptAdmin = &auth.Principal{ID: "user-5", Role: rbac.RoleDepartmentAdmin, Plan: rbac.PlanEnterprise}
		member = &auth.Principal{ID: "user-1", Role: rbac.RoleGeneralUser, Plan: rbac.PlanEnterprise}
	})

	Describe("authorization gate", func() {
		It("should require the admin role even on Enterprise", func() {
			_, err := service.Create(ctx, deptAdmin, CreateDepartmentDTO{Name: "Sales"})
			Expect(err).To(Equal(apperrors.ErrRoleRequired))
		})

		It("should require the Enterprise plan even for admins", func() {
			_, err := service.Create(ctx, freeAdmin, CreateDepartmentDTO{Name: "Sales"})
			Expect(err).To(Equal(apperrors.ErrPlanRequired))
		})

		It("should gate reads as well as writes", func() {
			_, err := service.List(ctx, member)
			Expect(err).To(Equal(apperrors.ErrRoleRequired))
		})
	})

	Describe("Create", func() {
		It("should create a department with the default member cap", func() {
			dept, err := service.Create(ctx, admin, CreateDepartmentDTO{Name: "Sales"})
			Expect(err).NotTo(HaveOccurred())
			Expect(dept.MaxMembers).To(Equal(DefaultMaxMembers))
			Expect(dept.IsActive).To(BeTrue())
		})

		It("should honor an explicit member cap", func() {
			dept, err := service.Create(ctx, admin, CreateDepartmentDTO{Name: "Sales", MaxMembers: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(dept.MaxMembers).To(Equal(5))
		})
	})

	Describe("Deactivate", func() {
		It("should soft-delete and stay idempotent", func() {
			seedDept("dept-1", true, 10)

			Expect(service.Deactivate(ctx, admin, "dept-1")).To(Succeed())
			Expect(departments.departments["dept-1"].IsActive).To(BeFalse())

			Expect(service.Deactivate(ctx, admin, "dept-1")).To(Succeed())
		})
	})

	Describe("Invite", func() {
		BeforeEach(func() {
			seedDept("dept-1", true, 2)
		})

		It("should create a pending invitation with a token and expiry", func() {
			inv, err := service.Invite(ctx, admin, "dept-1", InviteDTO{
				Email: "New.Hire@Example.com",
				Role:  string(rbac.RoleGeneralUser),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Status).To(Equal(InvitationStatusPending))
			Expect(inv.Token).NotTo(BeEmpty())
			Expect(inv.Email).To(Equal("new.hire@example.com"))
			Expect(inv.ExpiresAt).To(BeTemporally("~", time.Now().Add(InvitationTTL), time.Minute))
		})

		It("should refuse invitations into inactive departments", func() {
			seedDept("dept-2", false, 10)
			_, err := service.Invite(ctx, admin, "dept-2", InviteDTO{
				Email: "a@example.com",
				Role:  string(rbac.RoleGeneralUser),
			})
			Expect(err).To(Equal(apperrors.ErrDepartmentInactive))
		})

		It("should refuse invitations into full departments", func() {
			seedMember("m-1", "dept-1", "user-1")
			seedMember("m-2", "dept-1", "user-2")

			_, err := service.Invite(ctx, admin, "dept-1", InviteDTO{
				Email: "a@example.com",
				Role:  string(rbac.RoleGeneralUser),
			})
			Expect(err).To(Equal(apperrors.ErrDepartmentFull))
		})
	})

	Describe("CancelInvitation", func() {
		It("should mark a pending invitation expired and stay idempotent", func() {
			seedDept("dept-1", true, 10)
			inv, err := service.Invite(ctx, admin, "dept-1", InviteDTO{
				Email: "a@example.com",
				Role:  string(rbac.RoleGeneralUser),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.CancelInvitation(ctx, admin, inv.ID)).To(Succeed())
			Expect(invitations.invitations[inv.ID].Status).To(Equal(InvitationStatusExpired))

			Expect(service.CancelInvitation(ctx, admin, inv.ID)).To(Succeed())
		})
	})

	Describe("AcceptInvitation", func() {
		var token string

		BeforeEach(func() {
			seedDept("dept-1", true, 2)
			inv, err := service.Invite(ctx, admin, "dept-1", InviteDTO{
				Email: "a@example.com",
				Role:  string(rbac.RoleApprover),
			})
			Expect(err).NotTo(HaveOccurred())
			token = invitations.invitations[inv.ID].Token
		})

		It("should create an active membership and settle the invitation", func() {
			membership, err := service.AcceptInvitation(ctx, member, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(membership.DepartmentID).To(Equal("dept-1"))
			Expect(membership.UserID).To(Equal("user-1"))
			Expect(membership.Role).To(Equal(string(rbac.RoleApprover)))
			Expect(membership.IsActive).To(BeTrue())

			for _, inv := range invitations.invitations {
				Expect(inv.Status).To(Equal(InvitationStatusAccepted))
			}
		})

		It("should reject an unknown token", func() {
			_, err := service.AcceptInvitation(ctx, member, "bogus")
			Expect(err).To(Equal(apperrors.ErrInvitationNotFound))
		})

		It("should reject and expire a stale invitation", func() {
			for _, inv := range invitations.invitations {
				inv.ExpiresAt = time.Now().Add(-time.Hour)
			}

			_, err := service.AcceptInvitation(ctx, member, token)
			Expect(err).To(Equal(apperrors.ErrInvitationNotFound))
			for _, inv := range invitations.invitations {
				Expect(inv.Status).To(Equal(InvitationStatusExpired))
			}
		})

		It("should surface a store failure instead of creating a duplicate membership", func() {
			storeErr := apperrors.NewDataAccessError("membership lookup failed", nil)
			memberships.getActiveErr = storeErr

			_, err := service.AcceptInvitation(ctx, member, token)
			Expect(err).To(Equal(storeErr))
			Expect(memberships.memberships).To(BeEmpty())
			for _, inv := range invitations.invitations {
				Expect(inv.Status).To(Equal(InvitationStatusPending))
			}
		})

		It("should recheck capacity at acceptance time", func() {
			seedMember("m-1", "dept-1", "user-2")
			seedMember("m-2", "dept-1", "user-3")

			_, err := service.AcceptInvitation(ctx, member, token)
			Expect(err).To(Equal(apperrors.ErrDepartmentFull))
		})
	})

	Describe("RemoveMember", func() {
		It("should soft-remove and stamp left_at", func() {
			seedDept("dept-1", true, 10)
			seedMember("m-1", "dept-1", "user-1")

			Expect(service.RemoveMember(ctx, admin, "dept-1", "user-1")).To(Succeed())

			removed := memberships.memberships["m-1"]
			Expect(removed.IsActive).To(BeFalse())
			Expect(removed.LeftAt).NotTo(BeNil())
		})

		It("should surface not found for inactive members", func() {
			seedDept("dept-1", true, 10)
			err := service.RemoveMember(ctx, admin, "dept-1", "user-9")
			Expect(err).To(Equal(apperrors.ErrMembershipNotFound))
		})
	})
})
