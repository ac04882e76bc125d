package bootstrap

import (
	"log"

	"github.com/spark-repository/spark-api/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.AuthToken{},
		&entity.Category{},
		&entity.Study{},
		&entity.Validation{},
		&entity.Comment{},
		&entity.Download{},
		&entity.Notification{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Repository administrator"},
		{Name: entity.RoleFaculty, Description: "Faculty validator"},
		{Name: entity.RoleStudent, Description: "Student researcher"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedAdminUser creates a local admin account for development setups.
func SeedAdminUser(db *gorm.DB) error {
	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "admin@spark.local").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := db.NowFunc()
	adminUser := entity.User{
		Email:           "admin@spark.local",
		PasswordHash:    string(hashed),
		RoleID:          &adminRole.ID,
		FullName:        "Administrator",
		EmailVerifiedAt: &now,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded: admin@spark.local / admin123")
	return nil
}
