package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"
	"clinic-booking-server/internal/utils"
)

// DoctorHandler handles doctor scheduling configuration and availability queries.
type DoctorHandler struct {
	DB        *gorm.DB
	Scheduler *scheduling.Service
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, scheduler *scheduling.Service) *DoctorHandler {
	return &DoctorHandler{DB: db, Scheduler: scheduler}
}

// UpdateDoctorProfileRequest represents the request body for updating a
// doctor's scheduling configuration.
type UpdateDoctorProfileRequest struct {
	Specialty   string `json:"specialty"`
	SlotMinutes int    `json:"slotMinutes"`
	Timezone    string `json:"timezone"`
}

// UpdateMyProfile handles a doctor updating their own scheduling profile.
// Slot duration and timezone are validated here, at the profile boundary,
// so the availability resolver can trust the stored values.
func (h *DoctorHandler) UpdateMyProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateDoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.SlotMinutes != 0 {
		if req.SlotMinutes < 0 {
			utils.BadRequest(c, "slotMinutes must be positive")
			return
		}
		profile.SlotMinutes = req.SlotMinutes
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			utils.BadRequest(c, "Invalid timezone: "+req.Timezone)
			return
		}
		profile.Timezone = req.Timezone
	}
	if req.Specialty != "" {
		profile.Specialty = req.Specialty
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to update doctor profile: "+err.Error())
		return
	}

	utils.Success(c, "Doctor profile updated successfully", profile)
}

// GetMyProfile handles a doctor fetching their own scheduling profile.
func (h *DoctorHandler) GetMyProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.Preload("Availability").First(&profile, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Doctor profile fetched successfully", profile)
}

// AddAvailabilityBlockRequest represents the request body for adding a
// weekly availability block.
type AddAvailabilityBlockRequest struct {
	Weekday   *int   `json:"weekday" binding:"required,min=0,max=6"`
	StartTime string `json:"startTime" binding:"required"` // "HH:MM" in the doctor's timezone
	EndTime   string `json:"endTime" binding:"required"`
}

// AddAvailabilityBlock handles a doctor adding a weekly working window.
func (h *DoctorHandler) AddAvailabilityBlock(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req AddAvailabilityBlockRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var profile models.DoctorProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		utils.NotFound(c, "Doctor profile not found")
		return
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		utils.BadRequest(c, "Invalid startTime, want HH:MM")
		return
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		utils.BadRequest(c, "Invalid endTime, want HH:MM")
		return
	}
	if !end.After(start) {
		utils.BadRequest(c, "endTime must be after startTime")
		return
	}

	block := models.AvailabilityBlock{
		DoctorProfileID: profile.ID,
		Weekday:         *req.Weekday,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	}
	if err := h.DB.Create(&block).Error; err != nil {
		utils.InternalServerError(c, "Failed to create availability block: "+err.Error())
		return
	}

	utils.Created(c, "Availability block created successfully", block)
}

// DeleteAvailabilityBlock handles a doctor removing a weekly working window.
func (h *DoctorHandler) DeleteAvailabilityBlock(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	blockID := c.Param("blockId")

	var profile models.DoctorProfile
	if err := h.DB.First(&profile, "user_id = ?", userID).Error; err != nil {
		utils.NotFound(c, "Doctor profile not found")
		return
	}

	res := h.DB.Delete(&models.AvailabilityBlock{}, "id = ? AND doctor_profile_id = ?", blockID, profile.ID)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to delete availability block: "+res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Availability block not found")
		return
	}

	utils.Success(c, "Availability block deleted successfully", nil)
}

// AddBlockedSlotRequest represents the request body for blocking out an
// ad-hoc period.
type AddBlockedSlotRequest struct {
	StartsAt time.Time `json:"startsAt" binding:"required"`
	EndsAt   time.Time `json:"endsAt" binding:"required"`
	Reason   string    `json:"reason"`
}

// AddBlockedSlot handles a doctor blocking out a period (vacation, meeting).
func (h *DoctorHandler) AddBlockedSlot(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req AddBlockedSlotRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		utils.BadRequest(c, "endsAt must be after startsAt")
		return
	}

	blocked := models.BlockedSlot{
		DoctorID: userID,
		StartsAt: req.StartsAt.UTC(),
		EndsAt:   req.EndsAt.UTC(),
		Reason:   req.Reason,
	}
	if err := h.DB.Create(&blocked).Error; err != nil {
		utils.InternalServerError(c, "Failed to create blocked slot: "+err.Error())
		return
	}

	utils.Created(c, "Blocked slot created successfully", blocked)
}

// GetBlockedSlots handles a doctor listing their blocked periods.
func (h *DoctorHandler) GetBlockedSlots(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var blocked []models.BlockedSlot
	if err := h.DB.Where("doctor_id = ?", userID).Order("starts_at asc").Find(&blocked).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch blocked slots: "+err.Error())
		return
	}

	utils.Success(c, "Blocked slots fetched successfully", blocked)
}

// DeleteBlockedSlot handles a doctor removing a blocked period.
func (h *DoctorHandler) DeleteBlockedSlot(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	slotID := c.Param("slotId")

	res := h.DB.Delete(&models.BlockedSlot{}, "id = ? AND doctor_id = ?", slotID, userID)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to delete blocked slot: "+res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Blocked slot not found")
		return
	}

	utils.Success(c, "Blocked slot deleted successfully", nil)
}

// GetAvailableSlots handles fetching the bookable slots for a doctor on a
// given date. The date is interpreted in the doctor's timezone.
func (h *DoctorHandler) GetAvailableSlots(c *gin.Context) {
	doctorID := c.Param("id")

	dateStr := c.Query("date")
	if dateStr == "" {
		utils.BadRequest(c, "Query parameter 'date' is required (YYYY-MM-DD)")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		utils.BadRequest(c, "Invalid date, want YYYY-MM-DD")
		return
	}

	slots, err := h.Scheduler.AvailableSlots(c.Request.Context(), doctorID, date, 0)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Available slots fetched successfully", slots)
}
