package server

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spark-repository/spark-api/internal/middleware"
	"github.com/spark-repository/spark-api/pkg/mailer"
	"github.com/spark-repository/spark-api/pkg/storage"

	adminHttp "github.com/spark-repository/spark-api/internal/modules/admin/delivery/http"
	adminService "github.com/spark-repository/spark-api/internal/modules/admin/service"

	categoryHttp "github.com/spark-repository/spark-api/internal/modules/category/delivery/http"
	categoryRepo "github.com/spark-repository/spark-api/internal/modules/category/repository"
	categoryService "github.com/spark-repository/spark-api/internal/modules/category/service"

	commentHttp "github.com/spark-repository/spark-api/internal/modules/comment/delivery/http"
	commentRepo "github.com/spark-repository/spark-api/internal/modules/comment/repository"
	commentService "github.com/spark-repository/spark-api/internal/modules/comment/service"

	notifHttp "github.com/spark-repository/spark-api/internal/modules/notification/delivery/http"
	notifRepo "github.com/spark-repository/spark-api/internal/modules/notification/repository"
	notifService "github.com/spark-repository/spark-api/internal/modules/notification/service"

	profileHttp "github.com/spark-repository/spark-api/internal/modules/profile/delivery/http"
	profileService "github.com/spark-repository/spark-api/internal/modules/profile/service"

	searchService "github.com/spark-repository/spark-api/internal/modules/search/service"

	statHttp "github.com/spark-repository/spark-api/internal/modules/stat/delivery/http"
	statRepo "github.com/spark-repository/spark-api/internal/modules/stat/repository"
	statService "github.com/spark-repository/spark-api/internal/modules/stat/service"

	studyHttp "github.com/spark-repository/spark-api/internal/modules/study/delivery/http"
	studyRepo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	studyService "github.com/spark-repository/spark-api/internal/modules/study/service"

	userHttp "github.com/spark-repository/spark-api/internal/modules/user/delivery/http"
	userRepo "github.com/spark-repository/spark-api/internal/modules/user/repository"
	userService "github.com/spark-repository/spark-api/internal/modules/user/service"

	validationHttp "github.com/spark-repository/spark-api/internal/modules/validation/delivery/http"
	validationRepo "github.com/spark-repository/spark-api/internal/modules/validation/repository"
	validationService "github.com/spark-repository/spark-api/internal/modules/validation/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(db *gorm.DB, redisClient *redis.Client) *Server {
	users := userRepo.NewUserRepository(db)

	fileStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := os.Getenv("MEILISEARCH_HOST")
	if meiliHost == "" {
		meiliHost = "http://localhost:7700"
	}
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(os.Getenv("MEILI_MASTER_KEY")))
	indexer := searchService.NewStudyIndexer(meiliClient)

	smtpMailer := mailer.NewSMTPMailer()

	notifications := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notifications, redisClient)
	notificationHandler := notifHttp.NewNotificationHandler(notificationSvc, redisClient)

	authSvc := userService.NewAuthService(users, smtpMailer, indexer)
	authHandler := userHttp.NewAuthHandler(authSvc)

	profileSvc := profileService.NewProfileService(users, fileStorage)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	categories := categoryRepo.NewCategoryRepository(db)
	categorySvc := categoryService.NewCategoryService(categories)
	categoryHandler := categoryHttp.NewCategoryHandler(categorySvc)

	studies := studyRepo.NewStudyRepository(db)
	studySvc := studyService.NewStudyService(studies, categories, fileStorage, redisClient, notificationSvc)
	studyHandler := studyHttp.NewStudyHandler(studySvc)

	validations := validationRepo.NewValidationRepository(db)
	validationSvc := validationService.NewValidationService(validations, studies, indexer, notificationSvc)
	validationHandler := validationHttp.NewValidationHandler(validationSvc)

	comments := commentRepo.NewCommentRepository(db)
	commentSvc := commentService.NewCommentService(comments, studies, notificationSvc, redisClient)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)

	adminSvc := adminService.NewAdminService(users, studies, fileStorage, indexer, notificationSvc)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	stats := statRepo.NewStatRepository(db)
	statSvc := statService.NewStatService(stats, users)
	statHandler := statHttp.NewStatHandler(statSvc)

	router := gin.New()

	setupCORS(router)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(users)

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/callback", authHandler.Callback)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	api.GET("/categories", categoryHandler.GetAllCategories)
	api.GET("/studies", studyHandler.GetCatalog)
	api.GET("/studies/years", studyHandler.GetYears)
	api.GET("/studies/:id", studyHandler.GetStudy)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/studies", studyHandler.SubmitStudy)
		protected.GET("/studies/me", studyHandler.GetMySubmissions)
		protected.DELETE("/studies/:id", studyHandler.DeleteStudy)
		protected.POST("/studies/:id/download", studyHandler.Download)

		protected.POST("/studies/:id/comments", commentHandler.CreateComment)
		protected.GET("/studies/:id/comments", commentHandler.GetComments)

		protected.GET("/profile/me", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateProfile)

		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Review routes: faculty and admin only
		review := protected.Group("/review")
		review.Use(authMiddleware.RequireValidator())
		{
			review.GET("/submissions", validationHandler.GetPendingSubmissions)
			review.POST("/studies/:id/validations", validationHandler.Decide)
			review.GET("/studies/:id/validations", validationHandler.GetHistory)
			review.GET("/stats", statHandler.GetReviewStats)
		}

		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.PUT("/users/:id/role", adminHandler.ChangeUserRole)

			adminGroup.GET("/studies", adminHandler.GetAllStudies)
			adminGroup.PUT("/studies/:id/publish", adminHandler.SetPublishState)
			adminGroup.DELETE("/studies/:id", adminHandler.DeleteStudy)

			adminGroup.DELETE("/comments/:id", commentHandler.DeleteComment)

			adminGroup.POST("/categories", categoryHandler.CreateCategory)
			adminGroup.PUT("/categories/:id", categoryHandler.UpdateCategory)
			adminGroup.DELETE("/categories/:id", categoryHandler.DeleteCategory)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine) {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
