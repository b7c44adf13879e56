package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, scheduler *scheduling.Service) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	doctorHandler := handlers.NewDoctorHandler(db, scheduler)
	appointmentHandler := handlers.NewAppointmentHandler(db, scheduler)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Patients list for the care team
			userRoutes.GET("/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleNurse, models.RoleAdmin), userHandler.GetPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin)) // Only Admins
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
			}
		}

		// Doctor routes: listing, scheduling configuration and availability
		doctorRoutes := private.Group("/doctors")
		{
			// Accessible by all authenticated users for booking
			doctorRoutes.GET("", userHandler.GetDoctors)
			doctorRoutes.GET("/:id/slots", doctorHandler.GetAvailableSlots)

			// Scheduling configuration is the doctor's own
			ownRoutes := doctorRoutes.Group("/me")
			ownRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
			{
				ownRoutes.GET("/profile", doctorHandler.GetMyProfile)
				ownRoutes.PUT("/profile", doctorHandler.UpdateMyProfile)
				ownRoutes.POST("/availability", doctorHandler.AddAvailabilityBlock)
				ownRoutes.DELETE("/availability/:blockId", doctorHandler.DeleteAvailabilityBlock)
				ownRoutes.POST("/blocked-slots", doctorHandler.AddBlockedSlot)
				ownRoutes.GET("/blocked-slots", doctorHandler.GetBlockedSlots)
				ownRoutes.DELETE("/blocked-slots/:slotId", doctorHandler.DeleteBlockedSlot)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book for themselves; doctors/admins may book on behalf of a patient
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleDoctor, models.RoleAdmin), appointmentHandler.CreateAppointment)

			// All authenticated users get their own appointments
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser) // Logic inside handler differentiates by role

			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // Authorization inside handler

			// Lifecycle transitions (doctor's care team; cancellation also by the patient)
			appointmentRoutes.POST("/:id/accept", appointmentHandler.AcceptAppointment)
			appointmentRoutes.POST("/:id/reject", appointmentHandler.RejectAppointment)
			appointmentRoutes.POST("/:id/complete", appointmentHandler.MarkAppointmentCompleted)
			appointmentRoutes.POST("/:id/no-show", appointmentHandler.MarkAppointmentNoShow)
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.CancelAppointment)

			// Reschedule negotiation
			appointmentRoutes.POST("/:id/reschedule", appointmentHandler.ProposeReschedule)
			appointmentRoutes.GET("/:id/reschedule-requests", appointmentHandler.GetRescheduleRequests)

			// Supporting documents
			appointmentRoutes.POST("/:id/documents", appointmentHandler.UploadSupportingDocument)
		}

		// Reschedule request resolution
		rescheduleRoutes := private.Group("/reschedules")
		{
			rescheduleRoutes.POST("/:id/accept", appointmentHandler.AcceptReschedule)
			rescheduleRoutes.POST("/:id/reject", appointmentHandler.RejectReschedule)
		}

		// Supporting document download by its own ID
		private.GET("/documents/:documentId", appointmentHandler.GetSupportingDocument)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
