// internal/app/bootstrap/seed.go
package bootstrap

import (
	"context"
	"fmt"

	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	membershipstore "github.com/dalemusser/softmanager/internal/app/store/memberships"
	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	userstore "github.com/dalemusser/softmanager/internal/app/store/users"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type demoUser struct {
	role, name, email, password, title, teamRole string
}

var demoUsers = []demoUser{
	{models.RoleCollaborator, "Otávio", "otavio@soft.com", "123", "Desenvolvedor Junior", "Backend Junior"},
	{models.RoleCollaborator, "Icaro", "icaro@soft.com", "123", "Desenvolvedor Junior", "Frontend Junior"},
	{models.RoleCollaborator, "Yuri", "yuri@soft.com", "123", "Desenvolvedor Pleno", "TechLeader"},
	{models.RoleCollaborator, "Eduardo", "eduardo@soft.com", "123", "Desenvolvedor Sênior", "Backend Sênior"},
	{models.RoleAdmin, "Guilherme", "guilherme@soft.com", "123", "Desenvolvedor Sênior", "Frontend Sênior"},
	{models.RoleAdmin, "Admin", "admin@soft.com", "admin", "CEO", "Supervisor Geral"},
}

// seedDemoData populates an empty database with the demo team, one client
// and the "E-commerce" project. It does nothing once any user exists.
func seedDemoData(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	users := userstore.New(db)
	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	created := make([]models.User, 0, len(demoUsers))
	for _, d := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", d.email, err)
		}
		u, err := users.Create(ctx, models.User{
			Role:         d.role,
			FullName:     d.name,
			Email:        d.email,
			PasswordHash: string(hash),
			Title:        d.title,
		})
		if err != nil {
			return fmt.Errorf("create user %s: %w", d.email, err)
		}
		created = append(created, u)
	}

	client, err := clientstore.New(db).Create(ctx, models.Client{
		Name:    "João Silva",
		Email:   "joao@loja.com",
		Company: "Loja Virtual LTDA",
	})
	if err != nil {
		return fmt.Errorf("create demo client: %w", err)
	}

	project, err := projectstore.New(db).Create(ctx, models.Project{
		Name:     "E-commerce",
		Status:   "Em Andamento",
		ClientID: &client.ID,
	})
	if err != nil {
		return fmt.Errorf("create demo project: %w", err)
	}

	members := membershipstore.New(db)
	for i, u := range created {
		if _, err := members.Add(ctx, project.ID, u.ID, demoUsers[i].teamRole); err != nil {
			return fmt.Errorf("add %s to demo project: %w", u.Email, err)
		}
	}

	logger.Info("demo data created",
		zap.Int("users", len(created)),
		zap.String("project", project.Name))
	return nil
}
