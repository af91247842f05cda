package document

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

func TestDocumentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DocumentService Suite")
}

type mockRepository struct {
	docs      map[string]*Document
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{docs: make(map[string]*Document)}
}

func (m *mockRepository) Create(_ context.Context, doc *Document) error {
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	copied := *doc
	copied.Attachments = append(AttachmentList{}, doc.Attachments...)
	return &copied, nil
}

func (m *mockRepository) ListForScope(_ context.Context, scope ListScope) ([]*Document, error) {
	var out []*Document
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (m *mockRepository) Update(_ context.Context, doc *Document) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *doc
	copied.Attachments = append(AttachmentList{}, doc.Attachments...)
	m.docs[doc.ID] = &copied
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return apperrors.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

var _ = Describe("DocumentService", func() {
	var (
		repo    *mockRepository
		service *Service
		ctx     context.Context

		deptID   string
		creator  *auth.Principal
		approver *auth.Principal
		outsider *auth.Principal
	)

	seedDoc := func(id, status string) {
		repo.docs[id] = &Document{
			ID:           id,
			CreatorID:    creator.ID,
			DepartmentID: deptID,
			Title:        "Osaka trip report",
			Type:         TypeBusinessReport,
			Status:       status,
			Attachments:  AttachmentList{},
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	BeforeEach(func() {
		repo = newMockRepository()
		service = NewService(repo, slog.Default())
		ctx = context.Background()

		deptID = "dept-1"
		creator = &auth.Principal{ID: "user-1", Role: rbac.RoleGeneralUser, DepartmentID: &deptID}
		approver = &auth.Principal{ID: "user-2", Role: rbac.RoleApprover, DepartmentID: &deptID}
		outsider = &auth.Principal{ID: "user-3", Role: rbac.RoleGeneralUser, DepartmentID: &deptID}
	})

	Describe("Create", func() {
		It("should create a draft report", func() {
			doc, err := service.Create(ctx, creator, CreateDocumentDTO{
				Title: "Osaka trip report",
				Type:  TypeBusinessReport,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(StatusDraft))
			Expect(doc.CreatorID).To(Equal("user-1"))
			Expect(doc.Attachments).To(BeEmpty())
		})

		It("should accept every report type", func() {
			for _, docType := range Types {
				doc, err := service.Create(ctx, creator, CreateDocumentDTO{
					Title: "July " + docType,
					Type:  docType,
				})
				Expect(err).NotTo(HaveOccurred(), "type %s", docType)
				Expect(doc.Type).To(Equal(docType))
			}
		})

		It("should reject unknown document types", func() {
			_, err := service.Create(ctx, creator, CreateDocumentDTO{
				Title: "Report",
				Type:  "memo",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("lifecycle", func() {
		BeforeEach(func() {
			seedDoc("doc-1", StatusDraft)
		})

		It("should let the creator submit a draft", func() {
			doc, err := service.Submit(ctx, creator, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(StatusSubmitted))
			Expect(doc.SubmittedAt).NotTo(BeNil())
		})

		It("should refuse submission by anyone else", func() {
			_, err := service.Submit(ctx, outsider, "doc-1")
			Expect(err).To(HaveOccurred())
		})

		It("should let an approver approve a submitted document", func() {
			_, err := service.Submit(ctx, creator, "doc-1")
			Expect(err).NotTo(HaveOccurred())

			doc, err := service.Approve(ctx, approver, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(StatusApproved))
			Expect(doc.ReviewedAt).NotTo(BeNil())
			Expect(*doc.ReviewerID).To(Equal("user-2"))
		})

		It("should refuse review by general users", func() {
			_, err := service.Submit(ctx, creator, "doc-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Approve(ctx, creator, "doc-1")
			Expect(err).To(Equal(apperrors.ErrRoleRequired))
		})

		It("should require a comment to reject", func() {
			_, err := service.Submit(ctx, creator, "doc-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Reject(ctx, approver, "doc-1", " ")
			Expect(err).To(Equal(apperrors.ErrCommentRequired))

			doc, err := service.Reject(ctx, approver, "doc-1", "numbers missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(StatusRejected))
			Expect(*doc.RejectionReason).To(Equal("numbers missing"))
		})

		It("should refuse to review a draft", func() {
			_, err := service.Approve(ctx, approver, "doc-1")
			Expect(err).To(Equal(apperrors.ErrInvalidTransition))
		})

		It("should refuse edits after review", func() {
			_, err := service.Submit(ctx, creator, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Approve(ctx, approver, "doc-1")
			Expect(err).NotTo(HaveOccurred())

			title := "Too late"
			_, err = service.Update(ctx, creator, "doc-1", UpdateDocumentDTO{Title: &title})
			Expect(err).To(Equal(apperrors.ErrCannotModify))
		})
	})

	Describe("attachments", func() {
		BeforeEach(func() {
			seedDoc("doc-1", StatusDraft)
		})

		It("should add an attachment by URL", func() {
			doc, err := service.AddAttachment(ctx, creator, "doc-1", "https://files.example.com/receipt.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Attachments).To(ConsistOf("https://files.example.com/receipt.pdf"))
		})

		It("should not duplicate an already-attached URL", func() {
			_, err := service.AddAttachment(ctx, creator, "doc-1", "https://files.example.com/receipt.pdf")
			Expect(err).NotTo(HaveOccurred())

			doc, err := service.AddAttachment(ctx, creator, "doc-1", "https://files.example.com/receipt.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Attachments).To(HaveLen(1))
		})

		It("should remove an attachment by value and ignore missing ones", func() {
			_, err := service.AddAttachment(ctx, creator, "doc-1", "https://files.example.com/a.pdf")
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AddAttachment(ctx, creator, "doc-1", "https://files.example.com/b.pdf")
			Expect(err).NotTo(HaveOccurred())

			doc, err := service.RemoveAttachment(ctx, creator, "doc-1", "https://files.example.com/a.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Attachments).To(ConsistOf("https://files.example.com/b.pdf"))

			doc, err = service.RemoveAttachment(ctx, creator, "doc-1", "https://files.example.com/missing.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Attachments).To(ConsistOf("https://files.example.com/b.pdf"))
		})

		It("should refuse attachment changes by non-creators", func() {
			_, err := service.AddAttachment(ctx, outsider, "doc-1", "https://files.example.com/a.pdf")
			Expect(err).To(Equal(apperrors.ErrUnauthorizedAccess))
		})

		It("should refuse attachment changes after review", func() {
			seedDoc("doc-2", StatusApproved)
			_, err := service.AddAttachment(ctx, creator, "doc-2", "https://files.example.com/a.pdf")
			Expect(err).To(Equal(apperrors.ErrCannotModify))
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			seedDoc("doc-1", StatusSubmitted)
		})

		It("should hide documents from unrelated general users", func() {
			_, err := service.Get(ctx, outsider, "doc-1")
			Expect(err).To(Equal(apperrors.ErrUnauthorizedAccess))
		})

		It("should show department documents to approvers", func() {
			doc, err := service.Get(ctx, approver, "doc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.ID).To(Equal("doc-1"))
		})
	})
})
