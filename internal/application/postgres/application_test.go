package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apperrors "github.com/okanehara/travel-approval/internal"
	"github.com/okanehara/travel-approval/internal/application"
	"github.com/okanehara/travel-approval/internal/rbac"
)

func TestApplicationRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ApplicationRepository Suite")
}

type SQLiteApplication struct {
	ID                string     `gorm:"primaryKey"`
	ApplicantID       string     `gorm:"column:applicant_id;not null"`
	DepartmentID      string     `gorm:"column:department_id;not null"`
	Title             string     `gorm:"not null"`
	Type              string     `gorm:"not null"`
	Status            string     `gorm:"default:'draft'"`
	TotalAmount       *int64     `gorm:"column:total_amount"`
	CurrentApproverID *string    `gorm:"column:current_approver_id"`
	SubmittedAt       *time.Time `gorm:"column:submitted_at"`
	ApprovedAt        *time.Time `gorm:"column:approved_at"`
	RejectionReason   *string    `gorm:"column:rejection_reason"`
	Priority          string     `gorm:"default:'medium'"`
	Metadata          []byte     `gorm:"column:metadata"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (SQLiteApplication) TableName() string {
	return "applications"
}

type SQLiteApprovalLog struct {
	ID             string    `gorm:"primaryKey"`
	ApplicationID  string    `gorm:"column:application_id;not null"`
	ApproverID     string    `gorm:"column:approver_id;not null"`
	Action         string    `gorm:"not null"`
	Comment        *string   `gorm:"column:comment"`
	PreviousStatus string    `gorm:"column:previous_status;not null"`
	NewStatus      string    `gorm:"column:new_status;not null"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (SQLiteApprovalLog) TableName() string {
	return "approval_logs"
}

var _ = Describe("ApplicationRepository", func() {
	var (
		db   *gorm.DB
		repo *ApplicationRepository
		ctx  context.Context
	)

	newApp := func(id, applicantID, departmentID, status string) *application.Application {
		return &application.Application{
			ID:           id,
			ApplicantID:  applicantID,
			DepartmentID: departmentID,
			Title:        "Osaka client visit",
			Type:         application.TypeBusinessTripRequest,
			Status:       status,
			Priority:     application.PriorityMedium,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteApplication{}, &SQLiteApprovalLog{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewApplicationRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create and GetByID", func() {
		It("should round-trip an application", func() {
			app := newApp("app-1", "user-1", "dept-1", application.StatusDraft)

			err := repo.Create(ctx, app)
			Expect(err).NotTo(HaveOccurred())

			retrieved, err := repo.GetByID(ctx, "app-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.ApplicantID).To(Equal("user-1"))
			Expect(retrieved.Status).To(Equal(application.StatusDraft))
			Expect(retrieved.Title).To(Equal("Osaka client visit"))
		})

		It("should return ErrApplicationNotFound for unknown IDs", func() {
			retrieved, err := repo.GetByID(ctx, "missing")
			Expect(err).To(Equal(apperrors.ErrApplicationNotFound))
			Expect(retrieved).To(BeNil())
		})

		It("should fail instead of hang when the caller's context is done", func() {
			Expect(repo.Create(ctx, newApp("app-1", "user-1", "dept-1", application.StatusDraft))).To(Succeed())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := repo.GetByID(cancelled, "app-1")
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(Equal(apperrors.ErrApplicationNotFound))
		})
	})

	Describe("ListForScope", func() {
		BeforeEach(func() {
			approverID := "user-2"
			apps := []*application.Application{
				newApp("app-1", "user-1", "dept-1", application.StatusPending),
				newApp("app-2", "user-2", "dept-1", application.StatusDraft),
				newApp("app-3", "user-3", "dept-2", application.StatusPending),
			}
			apps[2].CurrentApproverID = &approverID
			for i, app := range apps {
				app.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
				Expect(repo.Create(ctx, app)).To(Succeed())
			}
		})

		It("should limit general users to their own applications", func() {
			apps, err := repo.ListForScope(ctx, application.ListScope{
				Role:         rbac.RoleGeneralUser,
				UserID:       "user-1",
				DepartmentID: "dept-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(1))
			Expect(apps[0].ID).To(Equal("app-1"))
		})

		It("should limit department admins to their department", func() {
			apps, err := repo.ListForScope(ctx, application.ListScope{
				Role:         rbac.RoleDepartmentAdmin,
				UserID:       "user-9",
				DepartmentID: "dept-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(2))
		})

		It("should include own, assigned and department rows for approvers", func() {
			apps, err := repo.ListForScope(ctx, application.ListScope{
				Role:         rbac.RoleApprover,
				UserID:       "user-2",
				DepartmentID: "dept-1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(3))
		})

		It("should return everything for admins, newest first", func() {
			apps, err := repo.ListForScope(ctx, application.ListScope{
				Role:   rbac.RoleAdmin,
				UserID: "user-9",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(apps).To(HaveLen(3))
			Expect(apps[0].ID).To(Equal("app-3"))
			Expect(apps[2].ID).To(Equal("app-1"))
		})
	})

	Describe("UpdateStatus", func() {
		BeforeEach(func() {
			Expect(repo.Create(ctx, newApp("app-1", "user-1", "dept-1", application.StatusPending))).To(Succeed())
		})

		It("should apply the patch when the expected status matches", func() {
			approvedAt := time.Now()
			err := repo.UpdateStatus(ctx, "app-1", application.StatusPending, application.StatusPatch{
				NewStatus:            application.StatusApproved,
				ApprovedAt:           &approvedAt,
				ClearCurrentApprover: true,
			})
			Expect(err).NotTo(HaveOccurred())

			retrieved, err := repo.GetByID(ctx, "app-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Status).To(Equal(application.StatusApproved))
			Expect(retrieved.ApprovedAt).NotTo(BeNil())
			Expect(retrieved.CurrentApproverID).To(BeNil())
		})

		It("should return ErrStatusConflict when the row moved on", func() {
			err := repo.UpdateStatus(ctx, "app-1", application.StatusDraft, application.StatusPatch{
				NewStatus: application.StatusPending,
			})
			Expect(err).To(Equal(apperrors.ErrStatusConflict))

			retrieved, getErr := repo.GetByID(ctx, "app-1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(retrieved.Status).To(Equal(application.StatusPending))
		})

		It("should return ErrApplicationNotFound for unknown IDs", func() {
			err := repo.UpdateStatus(ctx, "missing", application.StatusPending, application.StatusPatch{
				NewStatus: application.StatusApproved,
			})
			Expect(err).To(Equal(apperrors.ErrApplicationNotFound))
		})

		It("should set and later clear the rejection reason", func() {
			reason := "missing itinerary"
			err := repo.UpdateStatus(ctx, "app-1", application.StatusPending, application.StatusPatch{
				NewStatus:       application.StatusOnHold,
				RejectionReason: &reason,
			})
			Expect(err).NotTo(HaveOccurred())

			retrieved, err := repo.GetByID(ctx, "app-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.RejectionReason).NotTo(BeNil())
			Expect(*retrieved.RejectionReason).To(Equal("missing itinerary"))

			err = repo.UpdateStatus(ctx, "app-1", application.StatusOnHold, application.StatusPatch{
				NewStatus:            application.StatusPending,
				ClearRejectionReason: true,
			})
			Expect(err).NotTo(HaveOccurred())

			retrieved, err = repo.GetByID(ctx, "app-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Status).To(Equal(application.StatusPending))
			Expect(retrieved.RejectionReason).To(BeNil())
		})
	})

	Describe("Delete", func() {
		It("should delete an existing application", func() {
			Expect(repo.Create(ctx, newApp("app-1", "user-1", "dept-1", application.StatusDraft))).To(Succeed())

			Expect(repo.Delete(ctx, "app-1")).To(Succeed())

			_, err := repo.GetByID(ctx, "app-1")
			Expect(err).To(Equal(apperrors.ErrApplicationNotFound))
		})

		It("should return ErrApplicationNotFound for unknown IDs", func() {
			Expect(repo.Delete(ctx, "missing")).To(Equal(apperrors.ErrApplicationNotFound))
		})
	})
})

var _ = Describe("ApprovalLogRepository", func() {
	var (
		db   *gorm.DB
		repo *ApprovalLogRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteApprovalLog{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewApprovalLogRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("should append entries and list them oldest first", func() {
		comment := "looks fine"
		entries := []*application.ApprovalLog{
			{
				ID:             "log-1",
				ApplicationID:  "app-1",
				ApproverID:     "user-1",
				Action:         application.ActionSubmitted,
				PreviousStatus: application.StatusDraft,
				NewStatus:      application.StatusPending,
				CreatedAt:      time.Now().Add(-time.Minute),
			},
			{
				ID:             "log-2",
				ApplicationID:  "app-1",
				ApproverID:     "user-2",
				Action:         application.ActionApproved,
				Comment:        &comment,
				PreviousStatus: application.StatusPending,
				NewStatus:      application.StatusApproved,
				CreatedAt:      time.Now(),
			},
		}
		for _, entry := range entries {
			Expect(repo.Append(ctx, entry)).To(Succeed())
		}

		logs, err := repo.ListByApplication(ctx, "app-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(HaveLen(2))
		Expect(logs[0].Action).To(Equal(application.ActionSubmitted))
		Expect(logs[1].Action).To(Equal(application.ActionApproved))
		Expect(*logs[1].Comment).To(Equal("looks fine"))
	})

	It("should scope entries to the requested application", func() {
		Expect(repo.Append(ctx, &application.ApprovalLog{
			ID:             "log-1",
			ApplicationID:  "app-1",
			ApproverID:     "user-1",
			Action:         application.ActionSubmitted,
			PreviousStatus: application.StatusDraft,
			NewStatus:      application.StatusPending,
			CreatedAt:      time.Now(),
		})).To(Succeed())

		logs, err := repo.ListByApplication(ctx, "app-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).To(BeEmpty())
	})
})
