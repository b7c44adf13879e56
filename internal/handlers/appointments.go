package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"
	"clinic-booking-server/internal/utils"
)

// AppointmentHandler handles appointment booking, lifecycle transitions and
// the reschedule negotiation endpoints. All scheduling decisions are
// delegated to the scheduling service; the handler only does transport
// concerns and authorization.
type AppointmentHandler struct {
	DB        *gorm.DB
	Scheduler *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, scheduler *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Scheduler: scheduler}
}

// respondSchedulingError maps the scheduling error taxonomy to HTTP responses.
func respondSchedulingError(c *gin.Context, err error) {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.BadRequest(c, vErr.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		utils.NotFound(c, "Resource not found")
	case errors.Is(err, scheduling.ErrInvalidTransition):
		utils.Conflict(c, "The appointment's current status does not allow this operation")
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		utils.Conflict(c, "The requested time slot is no longer available")
	case errors.Is(err, scheduling.ErrRescheduleAlreadyPending):
		utils.Conflict(c, "A reschedule request is already pending for this appointment")
	case errors.Is(err, scheduling.ErrTooLateToReschedule):
		utils.UnprocessableEntity(c, "Cannot reschedule within the lead time of the appointment")
	default:
		utils.InternalServerError(c, "Scheduling operation failed: "+err.Error())
	}
}

// appointmentResponse is an appointment together with its derived display
// status. The display status is computed on every read, never stored.
type appointmentResponse struct {
	models.Appointment
	DisplayStatus scheduling.DisplayStatus `json:"displayStatus"`
}

func (h *AppointmentHandler) withDisplayStatus(c *gin.Context, appt models.Appointment) (appointmentResponse, bool) {
	display, err := h.Scheduler.DisplayStatusFor(c.Request.Context(), &appt)
	if err != nil {
		utils.InternalServerError(c, "Failed to derive display status: "+err.Error())
		return appointmentResponse{}, false
	}
	return appointmentResponse{Appointment: appt, DisplayStatus: display}, true
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID          string     `json:"doctorId" binding:"required,uuid"`
	PatientID         string     `json:"patientId" binding:"omitempty,uuid"` // Defaults to the authenticated patient
	StartsAt          time.Time  `json:"startsAt" binding:"required"`
	Reason            string     `json:"reason" binding:"required"`
	Notes             string     `json:"notes"`
	ForWhom           string     `json:"forWhom" binding:"omitempty,oneof=me someone_else"`
	OtherPersonName   string     `json:"otherPersonName"`
	OtherPersonDOB    *time.Time `json:"otherPersonDateOfBirth"`
	OtherPersonGender string     `json:"otherPersonGender"`
	GrantDoctorAccess bool       `json:"grantDoctorAccess"`
}

// CreateAppointment handles booking a new appointment. The slot must still
// be free at write time; winning the availability listing earlier does not
// reserve anything.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	patientID := req.PatientID
	if patientID == "" {
		patientID = userID
	}
	if userRole == models.RolePatient && patientID != userID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	// Verify doctor exists and is a doctor
	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}

	appt, err := h.Scheduler.Book(c.Request.Context(), scheduling.BookingInput{
		DoctorID:          req.DoctorID,
		PatientID:         patientID,
		StartsAt:          req.StartsAt,
		Reason:            req.Reason,
		Notes:             req.Notes,
		ForWhom:           models.ForWhom(req.ForWhom),
		OtherPersonName:   req.OtherPersonName,
		OtherPersonDOB:    req.OtherPersonDOB,
		OtherPersonGender: req.OtherPersonGender,
		GrantDoctorAccess: req.GrantDoctorAccess,
	})
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appt)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in
// user (patient, doctor, nurse or admin).
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointments []models.Appointment
	var err error

	query := h.DB.Preload("Documents").Order("starts_at asc")

	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case models.RoleNurse, models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments. Role: "+string(userRole))
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	out := make([]appointmentResponse, 0, len(appointments))
	for _, appt := range appointments {
		resp, ok := h.withDisplayStatus(c, appt)
		if !ok {
			return
		}
		out = append(out, resp)
	}

	utils.Success(c, "Appointments fetched successfully", out)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by the involved patient, the involved doctor, nurses, and admins.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}

	resp, ok := h.withDisplayStatus(c, *appt)
	if !ok {
		return
	}
	utils.Success(c, "Appointment fetched successfully", resp)
}

// loadAuthorizedAppointment fetches the appointment from the path parameter
// and enforces that the caller is an involved party, a nurse, or an admin.
func (h *AppointmentHandler) loadAuthorizedAppointment(c *gin.Context) (*models.Appointment, bool) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Documents").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isPatientInvolved := userID == appointment.PatientID
	isDoctorInvolved := userID == appointment.DoctorID

	if userRole != models.RoleAdmin && userRole != models.RoleNurse && !isPatientInvolved && !isDoctorInvolved {
		utils.Forbidden(c, "You are not authorized to access this appointment")
		return nil, false
	}
	return &appointment, true
}

// requireResolver enforces that the caller may resolve appointments for this
// doctor: the involved doctor, any nurse, or an admin.
func requireResolver(c *gin.Context, appt *models.Appointment) bool {
	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	switch userRole {
	case models.RoleAdmin, models.RoleNurse:
		return true
	case models.RoleDoctor:
		if userID == appt.DoctorID {
			return true
		}
	}
	utils.Forbidden(c, "Only the doctor's care team can resolve this appointment")
	return false
}

// AcceptAppointment confirms a pending appointment (doctor/nurse/admin).
func (h *AppointmentHandler) AcceptAppointment(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}
	if !requireResolver(c, appt) {
		return
	}

	updated, err := h.Scheduler.Accept(c.Request.Context(), appt.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment accepted successfully", updated)
}

// RejectAppointment declines a pending appointment (doctor/nurse/admin).
func (h *AppointmentHandler) RejectAppointment(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}
	if !requireResolver(c, appt) {
		return
	}

	updated, err := h.Scheduler.Reject(c.Request.Context(), appt.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment rejected successfully", updated)
}

// MarkAppointmentCompleted closes out a past appointment (doctor/nurse/admin).
func (h *AppointmentHandler) MarkAppointmentCompleted(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}
	if !requireResolver(c, appt) {
		return
	}

	updated, err := h.Scheduler.MarkCompleted(c.Request.Context(), appt.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment marked as completed", updated)
}

// MarkAppointmentNoShow records a missed appointment (doctor/nurse/admin).
func (h *AppointmentHandler) MarkAppointmentNoShow(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}
	if !requireResolver(c, appt) {
		return
	}

	updated, err := h.Scheduler.MarkNoShow(c.Request.Context(), appt.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment marked as no-show", updated)
}

// CancelAppointment cancels an appointment. Involved parties may cancel;
// confirmed appointments only outside the lead-time window.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}

	updated, err := h.Scheduler.Cancel(c.Request.Context(), appt.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", updated)
}

// ProposeRescheduleRequest represents the request body for proposing a new time.
type ProposeRescheduleRequest struct {
	NewStartsAt time.Time `json:"newStartsAt" binding:"required"`
}

// ProposeReschedule opens a reschedule negotiation on an appointment.
func (h *AppointmentHandler) ProposeReschedule(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}

	var req ProposeRescheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	request, err := h.Scheduler.ProposeReschedule(c.Request.Context(), appt.ID, userID, req.NewStartsAt)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Created(c, "Reschedule request created successfully", request)
}

// GetRescheduleRequests lists the negotiation history for an appointment.
func (h *AppointmentHandler) GetRescheduleRequests(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}

	var requests []models.RescheduleRequest
	if err := h.DB.Where("appointment_id = ?", appt.ID).Order("created_at asc").Find(&requests).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reschedule requests: "+err.Error())
		return
	}

	utils.Success(c, "Reschedule requests fetched successfully", requests)
}

// loadAuthorizedRescheduleRequest fetches the request from the path and
// authorizes the caller against the parent appointment.
func (h *AppointmentHandler) loadAuthorizedRescheduleRequest(c *gin.Context) (*models.RescheduleRequest, bool) {
	requestID := c.Param("id")

	var request models.RescheduleRequest
	if err := h.DB.First(&request, "id = ?", requestID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Reschedule request not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", request.AppointmentID).Error; err != nil {
		utils.InternalServerError(c, "Could not fetch parent appointment for authorization check.")
		return nil, false
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isPatientInvolved := userID == appointment.PatientID
	isDoctorInvolved := userID == appointment.DoctorID

	if userRole != models.RoleAdmin && userRole != models.RoleNurse && !isPatientInvolved && !isDoctorInvolved {
		utils.Forbidden(c, "You are not authorized to resolve this reschedule request")
		return nil, false
	}
	return &request, true
}

// AcceptReschedule moves the parent appointment to the proposed window.
func (h *AppointmentHandler) AcceptReschedule(c *gin.Context) {
	request, ok := h.loadAuthorizedRescheduleRequest(c)
	if !ok {
		return
	}

	appt, err := h.Scheduler.AcceptReschedule(c.Request.Context(), request.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Reschedule accepted successfully", appt)
}

// RejectReschedule declines the proposed window, cancelling the appointment.
func (h *AppointmentHandler) RejectReschedule(c *gin.Context) {
	request, ok := h.loadAuthorizedRescheduleRequest(c)
	if !ok {
		return
	}

	appt, err := h.Scheduler.RejectReschedule(c.Request.Context(), request.ID)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}
	utils.Success(c, "Reschedule rejected successfully", appt)
}

// UploadSupportingDocument handles attaching a file to an appointment.
// Stores the file as binary data in the database.
func (h *AppointmentHandler) UploadSupportingDocument(c *gin.Context) {
	appt, ok := h.loadAuthorizedAppointment(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file") // "file" is the name of the form field
	if err != nil {
		utils.BadRequest(c, "Error retrieving file from form: "+err.Error())
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		utils.InternalServerError(c, "Error reading file content: "+err.Error())
		return
	}

	document := models.SupportingDocument{
		AppointmentID: appt.ID,
		FileName:      header.Filename,
		FileType:      header.Header.Get("Content-Type"),
		FileData:      fileData,
	}

	if err := h.DB.Create(&document).Error; err != nil {
		utils.InternalServerError(c, "Failed to create supporting document entry: "+err.Error())
		return
	}

	// Return a slimmed down version of the document, without the FileData
	utils.Created(c, "Supporting document uploaded successfully", gin.H{
		"id":            document.ID,
		"appointmentId": document.AppointmentID,
		"fileName":      document.FileName,
		"fileType":      document.FileType,
	})
}

// GetSupportingDocument serves a supporting document's file data.
func (h *AppointmentHandler) GetSupportingDocument(c *gin.Context) {
	documentID := c.Param("documentId")

	var document models.SupportingDocument
	if err := h.DB.First(&document, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Supporting document not found")
		} else {
			utils.InternalServerError(c, "Database error fetching document: "+err.Error())
		}
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", document.AppointmentID).Error; err != nil {
		utils.InternalServerError(c, "Could not fetch parent appointment for authorization check.")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isPatientOwner := userID == appointment.PatientID
	isDoctorInvolved := userID == appointment.DoctorID && appointment.GrantDoctorAccess

	if userRole != models.RoleAdmin && userRole != models.RoleNurse && !isPatientOwner && !isDoctorInvolved {
		utils.Forbidden(c, "You are not authorized to view this document")
		return
	}

	c.Header("Content-Disposition", "inline; filename=\""+document.FileName+"\"")
	c.Data(200, document.FileType, document.FileData)
}
