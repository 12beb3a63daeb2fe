package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"taskboard-backend/pkg/access"
	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/handlers"
	"taskboard-backend/pkg/logging"
	customMiddleware "taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	routerOnce sync.Once
	router     http.Handler
	routerErr  error
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	routerOnce.Do(func() {
		router, routerErr = buildFromEnv()
	})
	if routerErr != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+routerErr.Error())
		return
	}
	router.ServeHTTP(w, r)
}

func buildFromEnv() (http.Handler, error) {
	// 加载配置
	cfg, err := config.GetCached()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.New(cfg.LogLevel, cfg.IsProduction())

	db, err := database.GetDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	return NewRouter(cfg, db, log), nil
}

// NewRouter wires services and handlers over db and returns the full chi router.
func NewRouter(cfg *config.Config, db database.DatabaseInterface, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// 设置全局中间件
	setupMiddleware(r, cfg, log)

	// 设置路由
	setupRoutes(r, cfg, db)

	return r
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, log *slog.Logger) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(customMiddleware.RequestLogger(log))
	router.Use(customMiddleware.Recovery(cfg.IsDevelopment()))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件
	if cfg.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// 请求体限制
	router.Use(customMiddleware.MaxBodySize(cfg.MaxBodyBytes))
	router.Use(customMiddleware.ContentTypeJSON)

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	resolver := access.NewResolver(db)

	userService := services.NewUserService(db, services.NewPasswordHasher(cfg.BcryptCost), jwtService)
	orgService := services.NewOrganizationService(db)
	membershipService := services.NewMembershipService(db)
	projectService := services.NewProjectService(db, resolver)
	taskService := services.NewTaskService(db, resolver)

	// 创建处理器
	authHandler := handlers.NewAuthHandler(userService, db, cfg.Environment)
	usersHandler := handlers.NewUsersHandler(userService, membershipService, taskService)
	orgsHandler := handlers.NewOrgsHandler(orgService, membershipService, projectService)
	projectsHandler := handlers.NewProjectsHandler(projectService, taskService)
	tasksHandler := handlers.NewTasksHandler(taskService)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/login", authHandler.Login)
		})

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(jwtService))

			// 用户相关路由
			r.Route("/users", func(r chi.Router) {
				r.Get("/search", usersHandler.Search)
				r.Route("/me", func(r chi.Router) {
					r.Get("/", usersHandler.Me)
					r.Patch("/", usersHandler.UpdateMe)
					r.Delete("/", usersHandler.DeleteMe)
					r.Get("/memberships", usersHandler.MyMemberships)
					r.Get("/projects/{id}/tasks", usersHandler.MyProjectTasks)
				})
			})

			// 组织与成员
			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", orgsHandler.ListMyOrganizations)
				r.Post("/", orgsHandler.CreateOrganization)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", orgsHandler.GetOrganization)
					r.Patch("/", orgsHandler.UpdateOrganization)
					r.Delete("/", orgsHandler.DeleteOrganization)
					r.Get("/members", orgsHandler.ListMembers)
					r.Post("/members", orgsHandler.AddMember)
					r.Delete("/members/{userId}", orgsHandler.RemoveMember)
					r.Get("/projects", orgsHandler.ListProjects)
				})
			})

			// 项目
			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectsHandler.CreateProject)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", projectsHandler.GetProject)
					r.Patch("/", projectsHandler.UpdateProject)
					r.Delete("/", projectsHandler.DeleteProject)
					r.Get("/tasks", projectsHandler.ListTasks)
				})
			})

			// 任务
			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", tasksHandler.CreateTask)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", tasksHandler.GetTask)
					r.Patch("/", tasksHandler.UpdateTask)
					r.Delete("/", tasksHandler.DeleteTask)
				})
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
