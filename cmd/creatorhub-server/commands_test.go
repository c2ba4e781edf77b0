package main

import (
	"testing"

	"github.com/mikepea/creatorhub/pkg/creatorhub/auth"
	"github.com/mikepea/creatorhub/pkg/creatorhub/config"
	"github.com/mikepea/creatorhub/pkg/creatorhub/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "seed"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("Expected subcommand %q", name)
		}
	}
	if cmd.PersistentFlags().Lookup("env-file") == nil {
		t.Error("Expected --env-file flag")
	}
}

func TestEnsureAdminExists(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)

	admin := config.AdminConfig{Email: "root@example.com", Password: "s3cret-pass"}
	if err := ensureAdminExists(db, admin); err != nil {
		t.Fatalf("ensureAdminExists: %v", err)
	}
	if err := ensureAdminExists(db, config.AdminConfig{Email: "other@example.com", Password: "x"}); err != nil {
		t.Fatalf("ensureAdminExists second call: %v", err)
	}

	var users []models.User
	db.Find(&users)
	if len(users) != 1 {
		t.Fatalf("Expected exactly 1 admin, got %d", len(users))
	}
	if users[0].SystemRole != models.SystemRoleAdmin {
		t.Errorf("Expected admin role, got %s", users[0].SystemRole)
	}
	if !auth.CheckPassword("s3cret-pass", users[0].PasswordHash) {
		t.Error("Expected configured password to be set")
	}
}
