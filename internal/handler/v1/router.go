package v1

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/config"
	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/pkg/auth"
	"github.com/oncolab/leukoflow/pkg/metrics"
)

type RouterDeps struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTManager *auth.JWTManager
	Collector  *metrics.Collector

	Auth        *AuthHandler
	Patients    *PatientHandler
	Reports     *ReportHandler
	Submissions *SubmissionHandler
	Users       *UserHandler
	Analysis    *AnalysisHandler
}

// NewRouter builds the full route table.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Logger))
	r.Use(MetricsMiddleware(deps.Collector))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     deps.Config.CORS.AllowedMethods,
		AllowHeaders:     deps.Config.CORS.AllowedHeaders,
		AllowCredentials: false,
		MaxAge:           deps.Config.CORS.MaxAge,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": deps.Config.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api")
	authRequired := AuthMiddleware(deps.JWTManager)
	staffOnly := RequireRoles(domain.RoleDoctor, domain.RolePathologist)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", deps.Auth.Register)
		authGroup.POST("/login", deps.Auth.Login)
		authGroup.POST("/refresh", deps.Auth.Refresh)
	}

	patients := api.Group("/patients", authRequired)
	{
		patients.POST("", staffOnly, deps.Patients.Create)
		patients.GET("", deps.Patients.List)
		patients.GET("/search", deps.Patients.Search)
		patients.GET("/assigned", RequireRoles(domain.RoleDoctor), deps.Patients.Assigned)
		patients.GET("/:id", deps.Patients.Get)
		patients.PUT("/:id", staffOnly, deps.Patients.Update)
		patients.DELETE("/:id", staffOnly, deps.Patients.Delete)
	}

	reports := api.Group("/reports", authRequired)
	{
		reports.POST("", RequireRoles(domain.RoleDoctor), deps.Reports.Create)
		reports.POST("/save", staffOnly, deps.Reports.Save)
		reports.GET("", deps.Reports.List)
		reports.GET("/doctor/reports", RequireRoles(domain.RoleDoctor), deps.Reports.DoctorReports)
		reports.GET("/patient/:patientId/reports", deps.Reports.PatientReports)
		reports.GET("/:id", deps.Reports.Get)
		reports.PUT("/:id", staffOnly, deps.Reports.Update)
		reports.DELETE("/:id", staffOnly, deps.Reports.Delete)
		reports.POST("/:id/analyze", RequireRoles(domain.RoleDoctor), deps.Reports.Analyze)
	}

	submissions := api.Group("/pathology-submissions", authRequired)
	{
		submissions.POST("", RequireRoles(domain.RolePathologist), deps.Submissions.Create)
		submissions.GET("", deps.Submissions.List)
		submissions.GET("/:id", deps.Submissions.Get)
	}

	users := api.Group("/users")
	{
		users.GET("", authRequired, deps.Users.Find)
		users.GET("/:id", authRequired, deps.Users.Get)
		// Kept open: clients resolve a doctor's roster before login.
		users.GET("/:id/patients", deps.Users.RosterPatients)
	}

	analysisGroup := api.Group("/analysis", authRequired, staffOnly)
	{
		analysisGroup.POST("/predict", deps.Analysis.Predict)
		analysisGroup.POST("/saliency", deps.Analysis.Saliency)
		analysisGroup.POST("/gradcam", deps.Analysis.GradCAM)
	}

	return r
}
