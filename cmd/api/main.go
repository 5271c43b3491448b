package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/config"
	"github.com/yourusername/lms-api/internal/handler"
	"github.com/yourusername/lms-api/internal/middleware"
	pgRepo "github.com/yourusername/lms-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/lms-api/internal/repository/redis"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	quizService := service.NewQuizService(quizRepo, questionRepo, cacheRepo, db)
	attemptService := service.NewAttemptService(quizRepo, attemptRepo, cacheRepo)

	// Инициализируем обработчики
	quizHandler := handler.NewQuizHandler(quizService, attemptService)
	attemptHandler := handler.NewAttemptHandler(attemptService)

	// Инициализируем rate limiter
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам.
		// При деплое за балансировщиком добавьте его IP в список.
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)

			// Группа маршрутов, требующих quizID
			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.GET("/with-questions", quizHandler.GetQuizWithQuestions)
				quizWithID.PUT("", quizHandler.UpdateQuiz)
				quizWithID.DELETE("", quizHandler.DeleteQuiz)

				// Вопросы (админские маршруты: ответные ключи видны)
				quizWithID.GET("/questions", quizHandler.GetQuestions)
				quizWithID.POST("/questions", quizHandler.AddQuestions)

				// Обзор и аналитика
				quizWithID.GET("/attempts", quizHandler.GetQuizAttempts)
				quizWithID.GET("/analytics", quizHandler.GetQuizAnalytics)
				quizWithID.GET("/attempts/export", quizHandler.ExportQuizAttempts)

				// Маршруты учеников
				learner := quizWithID.Group("")
				learner.Use(middleware.RequireUserID())
				{
					learner.POST("/attempts",
						rateLimiter.Limit(middleware.StrictStartRateLimitConfig()),
						attemptHandler.StartAttempt)
					learner.GET("/my-attempts", attemptHandler.GetMyAttempts)
				}
			}
		}

		// Вопросы по собственному идентификатору
		questions := api.Group("/questions/:question_id")
		questions.Use(middleware.ExtractUintParam("question_id", "questionID"))
		{
			questions.PUT("", quizHandler.UpdateQuestion)
			questions.DELETE("", quizHandler.DeleteQuestion)
		}

		// Живые сессии попыток
		sessions := api.Group("/sessions/:session_id")
		sessions.Use(middleware.RequireUserID())
		sessions.Use(rateLimiter.Limit(middleware.DefaultAttemptRateLimitConfig()))
		{
			sessions.GET("", attemptHandler.GetSession)
			sessions.POST("/answers", attemptHandler.RecordAnswer)
			sessions.POST("/navigate", attemptHandler.Navigate)
			sessions.POST("/submit", attemptHandler.Submit)
		}

		// Сохраненные попытки
		attempts := api.Group("/attempts/:attempt_id")
		attempts.Use(middleware.ExtractUintParam("attempt_id", "attemptID"))
		attempts.Use(middleware.RequireUserID())
		{
			attempts.GET("", attemptHandler.GetAttempt)
		}
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// После получения сигнала SIGINT или SIGTERM завершаем работу
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
