package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"approval_logs", "notifications", "documents", "applications", "memberships", "invitations", "user_settings", "profiles", "departments"} {
				if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		deptID := uuid.NewString()
		var existingDept string
		if err := db.QueryRow("SELECT id FROM departments WHERE name = $1", "Engineering").Scan(&existingDept); err == nil {
			deptID = existingDept
			fmt.Println("Engineering department already exists")
		} else {
			if _, err := db.Exec(
				"INSERT INTO departments (id, name, description, max_members, is_active, created_at, updated_at) VALUES ($1, $2, $3, 100, true, now(), now())",
				deptID, "Engineering", "Engineering department"); err != nil {
				log.Fatalf("failed to insert department: %v", err)
			}
			fmt.Println("Seeded Engineering department")
		}

		users := []struct {
			Email string
			Name  string
			Role  string
			Plan  string
		}{
			{"taro@example.com", "Taro Yamada", "general_user", "Free"},
			{"hanako@example.com", "Hanako Sato", "approver", "Pro"},
			{"kenji@example.com", "Kenji Admin", "admin", "Enterprise"},
		}

		for _, u := range users {
			var one int
			if err := db.QueryRow("SELECT 1 FROM profiles WHERE email = $1", u.Email).Scan(&one); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if _, err := db.Exec(
				"INSERT INTO profiles (id, email, full_name, password_hash, role, plan, department_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', now(), now())",
				uuid.NewString(), u.Email, u.Name, string(hash), u.Role, u.Plan, deptID); err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}
	},
}
