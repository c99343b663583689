package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/saleflow/backend/internal/controllers"
	"github.com/saleflow/backend/internal/messaging"
	"github.com/saleflow/backend/internal/middleware"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/services"
	"github.com/saleflow/backend/internal/session"
)

// Dependencies are the wired services the HTTP layer is built on.
type Dependencies struct {
	Sessions    *session.Manager
	Auth        *services.AuthService
	Users       *services.UserService
	Departments *services.DepartmentService
	Records     *services.RecordService
	Exports     *services.ExportService
	Dashboards  *services.DashboardService
	Targets     *services.TargetService
	Messages    *services.MessageService
	Activities  *services.ActivityService
	Hub         *messaging.Hub
	Poller      *messaging.Poller
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.Auth)
	userController := controllers.NewUserController(deps.Users)
	departmentController := controllers.NewDepartmentController(deps.Departments)
	recordController := controllers.NewRecordController(deps.Records, deps.Exports)
	dashboardController := controllers.NewDashboardController(deps.Dashboards)
	targetController := controllers.NewTargetController(deps.Targets)
	messageController := controllers.NewMessageController(deps.Messages, deps.Hub, deps.Poller)
	activityController := controllers.NewActivityController(deps.Activities)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(deps.Sessions, deps.Auth))
		{
			me := protected.Group("/auth")
			{
				me.POST("/logout", authController.Logout)
				me.GET("/me", authController.Me)
				me.PUT("/password", authController.ChangePassword)
			}

			// Staff
			users := protected.Group("/users")
			{
				users.GET("", userController.GetUsers)
				users.GET("/:id/lifetime-revenue", userController.GetLifetimeRevenue)
				users.POST("", middleware.RequireRole(models.RoleTeamLeader), userController.CreateUser)
				users.PUT("/:id", middleware.RequireRole(models.RoleTeamLeader), userController.UpdateUser)
				users.DELETE("/:id", middleware.RequireRole(models.RoleTeamLeader), userController.DeleteUser)
			}

			// Organization structure
			departments := protected.Group("/departments")
			{
				departments.GET("", departmentController.GetDepartments)
				departments.GET("/orphans", departmentController.GetOrphans)
				departments.GET("/parents", departmentController.GetParentCandidates)

				admin := departments.Group("")
				admin.Use(middleware.RequireRole(models.RoleGroupManager))
				{
					admin.POST("", departmentController.CreateDepartment)
					admin.PUT("/:id", departmentController.UpdateDepartment)
					admin.DELETE("/:id", departmentController.DeleteDepartment)
				}
			}

			hq := protected.Group("/hq-deletion")
			hq.Use(middleware.RequireRole(models.RoleGroupManager))
			{
				hq.GET("", departmentController.GetHQDeletionStatus)
				hq.POST("", departmentController.RequestHQDeletion)
				hq.DELETE("", departmentController.CancelHQDeletion)
			}

			// Dashboards and reports
			protected.GET("/staff/tree", dashboardController.GetStaffTree)
			protected.GET("/filters", dashboardController.GetFilters)
			protected.POST("/filters/cascade", dashboardController.CascadeFilters)
			protected.GET("/dashboard", middleware.RequireRole(models.RoleTeamLeader), dashboardController.GetDashboard)
			protected.GET("/kpi", dashboardController.GetKPI)
			protected.GET("/kpi/:id", dashboardController.GetKPI)
			protected.GET("/timeline", dashboardController.GetTimeline)
			protected.GET("/timeline/:id", dashboardController.GetTimeline)

			// Sales records
			protected.GET("/records", recordController.GetRecords)

			appointments := protected.Group("/appointments")
			{
				appointments.GET("/latest", recordController.GetLatestAppointment)
				appointments.POST("", recordController.SaveAppointment)
				appointments.PUT("/:id", recordController.SaveAppointment)
				appointments.DELETE("/:id", recordController.DeleteAppointment)
			}

			consultations := protected.Group("/consultations")
			{
				consultations.GET("/handover-candidates", recordController.GetHandoverCandidates)
				consultations.POST("", recordController.SaveConsultation)
				consultations.PUT("/:id", recordController.SaveConsultation)
				consultations.DELETE("/:id", recordController.DeleteConsultation)
			}

			revenues := protected.Group("/revenues")
			{
				revenues.POST("", recordController.SaveRevenue)
				revenues.PUT("/:id", recordController.SaveRevenue)
				revenues.DELETE("/:id", recordController.DeleteRevenue)
			}

			projects := protected.Group("/projects")
			{
				projects.GET("", recordController.GetProjects)
				projects.GET("/export", recordController.ExportProjects)
				projects.POST("", recordController.SaveProject)
				projects.PUT("/:code", recordController.SaveProject)
				projects.DELETE("/:code", recordController.DeleteProject)
			}

			protected.GET("/customers/lookup", recordController.LookupCustomer)

			// Targets
			targets := protected.Group("/targets")
			{
				targets.GET("", targetController.GetTargets)
				targets.PUT("", middleware.RequireRole(models.RoleTeamLeader), targetController.SaveTarget)
			}

			// Messaging
			messages := protected.Group("/messages")
			{
				messages.GET("/inbox", messageController.GetInbox)
				messages.GET("/contacts", messageController.GetContacts)
				messages.GET("/ws", messageController.Stream)
				messages.GET("/conversations/:userId", messageController.GetConversation)
				messages.POST("", messageController.SendMessage)
				messages.POST("/broadcast", middleware.RequireRole(models.RoleTeamLeader), messageController.Broadcast)
				messages.PUT("/:id/read", messageController.MarkRead)
			}

			protected.GET("/activities", activityController.GetActivities)
		}
	}
}
