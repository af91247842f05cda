package auth

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/okanehara/travel-approval/internal/rbac"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AuthService Suite")
}

type mockProfileRepo struct {
	profiles      map[string]*Profile
	byEmail       map[string]string
	getByIDErrs   int
	lastLoginErrs int
	lastLoginAt   *time.Time
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{
		profiles: make(map[string]*Profile),
		byEmail:  make(map[string]string),
	}
}

func (m *mockProfileRepo) GetPasswordForEmail(_ context.Context, email string) (string, string, error) {
	userID, ok := m.byEmail[email]
	if !ok {
		return "", "", ErrInvalidCredentials
	}
	return m.profiles[userID].PasswordHash, userID, nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, userID string) (*Profile, error) {
	if m.getByIDErrs > 0 {
		m.getByIDErrs--
		return nil, fmt.Errorf("profile row not visible yet")
	}
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile not found")
	}
	copied := *profile
	return &copied, nil
}

func (m *mockProfileRepo) Create(_ context.Context, profile *Profile) error {
	copied := *profile
	m.profiles[profile.ID] = &copied
	m.byEmail[profile.Email] = profile.ID
	return nil
}

func (m *mockProfileRepo) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	if m.lastLoginErrs > 0 {
		m.lastLoginErrs--
		return fmt.Errorf("transient write failure")
	}
	m.lastLoginAt = &at
	return nil
}

type mockSessionStore struct {
	stored  map[string]string
	revoked map[string]bool
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		stored:  make(map[string]string),
		revoked: make(map[string]bool),
	}
}

func (m *mockSessionStore) Store(ctx context.Context, userID, refreshToken string, ttl time.Duration) error {
	m.stored[userID] = refreshToken
	m.revoked[userID] = false
	return nil
}

func (m *mockSessionStore) Validate(ctx context.Context, userID, refreshToken string) error {
	if m.revoked[userID] {
		return ErrSessionRevoked
	}
	if m.stored[userID] != refreshToken {
		return ErrSessionRevoked
	}
	return nil
}

func (m *mockSessionStore) Revoke(ctx context.Context, userID string) error {
	m.revoked[userID] = true
	delete(m.stored, userID)
	return nil
}

var _ = Describe("AuthService", func() {
	var (
		repo     *mockProfileRepo
		sessions *mockSessionStore
		tokens   *JWTTokenGenerator
		service  *Service
		ctx      context.Context
	)

	seedUser := func(id, email, password, role, status string) {
		hash, err := HashPassword(password, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(context.Background(), &Profile{
			ID:           id,
			Email:        email,
			FullName:     "Test User",
			PasswordHash: hash,
			Role:         role,
			Plan:         string(rbac.PlanFree),
			Status:       status,
		})).To(Succeed())
	}

	BeforeEach(func() {
		repo = newMockProfileRepo()
		sessions = newMockSessionStore()
		tokens = NewJWTTokenGenerator(
			"access-secret-for-tests-0123456789ab",
			"refresh-secret-for-tests-0123456789a",
			15*time.Minute,
			7*24*time.Hour)
		service = NewService(repo, sessions, tokens, 7*24*time.Hour, 10, slog.Default())
		ctx = context.Background()
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			seedUser("user-1", "taro@example.com", "correct-horse", "general_user", StatusActive)
		})

		It("should issue tokens and store the session for valid credentials", func() {
			issued, principal, err := service.Authenticate(ctx, LoginDTO{
				Email:    "taro@example.com",
				Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(issued.AccessToken).NotTo(BeEmpty())
			Expect(issued.RefreshToken).NotTo(BeEmpty())
			Expect(principal.ID).To(Equal("user-1"))
			Expect(sessions.stored["user-1"]).To(Equal(issued.RefreshToken))
			Expect(repo.lastLoginAt).NotTo(BeNil())
		})

		It("should reject a wrong password", func() {
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "taro@example.com",
				Password: "wrong",
			})
			Expect(err).To(Equal(ErrInvalidCredentials))
		})

		It("should reject unknown emails with the same error", func() {
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "nobody@example.com",
				Password: "whatever",
			})
			Expect(err).To(Equal(ErrInvalidCredentials))
		})

		It("should reject inactive users", func() {
			seedUser("user-2", "gone@example.com", "correct-horse", "general_user", StatusInactive)
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "gone@example.com",
				Password: "correct-horse",
			})
			Expect(err).To(Equal(ErrUserInactive))
		})

		It("should still succeed when stamping last login fails", func() {
			repo.lastLoginErrs = 1
			_, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "taro@example.com",
				Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Register", func() {
		It("should create the profile with default role and plan", func() {
			issued, principal, err := service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Password: "long-enough-pw",
				FullName: "New User",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(issued.AccessToken).NotTo(BeEmpty())
			Expect(principal.Role).To(Equal(rbac.RoleGeneralUser))
			Expect(principal.Plan).To(Equal(rbac.PlanFree))
		})

		It("should retry the profile load after a lagging read", func() {
			repo.getByIDErrs = 1
			_, principal, err := service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Password: "long-enough-pw",
				FullName: "New User",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.Email).To(Equal("new@example.com"))
		})

		It("should reject short passwords", func() {
			_, _, err := service.Register(ctx, RegisterDTO{
				Email:    "new@example.com",
				Password: "short",
				FullName: "New User",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RefreshTokens", func() {
		var issued AuthTokens

		BeforeEach(func() {
			seedUser("user-1", "taro@example.com", "correct-horse", "general_user", StatusActive)
			var err error
			issued, _, err = service.Authenticate(ctx, LoginDTO{
				Email:    "taro@example.com",
				Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should rotate the pair for a live session", func() {
			rotated, err := service.RefreshTokens(ctx, issued.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(rotated.AccessToken).NotTo(BeEmpty())
			Expect(sessions.stored["user-1"]).To(Equal(rotated.RefreshToken))
		})

		It("should refuse a revoked session even with a valid token", func() {
			Expect(service.Logout(ctx, "user-1")).To(Succeed())

			_, err := service.RefreshTokens(ctx, issued.RefreshToken)
			Expect(err).To(Equal(ErrSessionRevoked))
		})

		It("should refuse an access token presented as a refresh token", func() {
			_, err := service.RefreshTokens(ctx, issued.AccessToken)
			Expect(err).To(Equal(ErrInvalidToken))
		})
	})

	Describe("ValidateAccessToken", func() {
		BeforeEach(func() {
			seedUser("user-1", "taro@example.com", "correct-horse", "general_user", StatusActive)
		})

		It("should resolve the principal from the store, not the claims", func() {
			issued, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "taro@example.com",
				Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())

			repo.profiles["user-1"].Role = string(rbac.RoleApprover)

			principal, err := service.ValidateAccessToken(ctx, issued.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.Role).To(Equal(rbac.RoleApprover))
		})

		It("should refuse tokens for users who became inactive", func() {
			issued, _, err := service.Authenticate(ctx, LoginDTO{
				Email:    "taro@example.com",
				Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())

			repo.profiles["user-1"].Status = StatusInactive

			_, err = service.ValidateAccessToken(ctx, issued.AccessToken)
			Expect(err).To(Equal(ErrUserInactive))
		})

		It("should refuse garbage tokens", func() {
			_, err := service.ValidateAccessToken(ctx, "not-a-jwt")
			Expect(err).To(Equal(ErrInvalidToken))
		})
	})
})
