package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roster-server-go/db"
	"roster-server-go/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// APIHandler holds the dependencies for API handlers, like the record service
type APIHandler struct {
	Records *db.RecordService
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(service *db.RecordService) *APIHandler {
	return &APIHandler{
		Records: service,
	}
}

// RegisterRoutes mounts every API route under /api
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/ping", PingHandler)

		// Student routes
		api.GET("/students", h.ListStudents)
		api.POST("/students", h.AddStudent)
		api.PUT("/students/:index", h.UpdateStudent)
		api.DELETE("/students/:index", h.DeleteStudent)

		// Attendance routes
		api.GET("/attendance", h.ListAttendance)
		api.POST("/attendance", h.MarkAttendance)
		api.PUT("/attendance/:index", h.UpdateAttendance)
		api.DELETE("/attendance/:index", h.DeleteAttendance)

		// Marks routes
		api.GET("/marks", h.ListMarks)
		api.POST("/marks", h.AddMarks)
		api.PUT("/marks/:index", h.UpdateMarks)
		api.DELETE("/marks/:index", h.DeleteMarks)

		// Performance routes
		api.GET("/performance", h.GetPerformance)
		api.GET("/performance/export", h.ExportPerformance)

		// Import route
		api.POST("/import/students", h.ImportStudents)
	}
}

type studentRequest struct {
	ID    string `json:"id" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Class string `json:"class" binding:"required"`
}

type updateStudentRequest struct {
	Name  string `json:"name" binding:"required"`
	Class string `json:"class" binding:"required"`
}

type attendanceRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Date      string `json:"date" binding:"required,datetime=2006-01-02"`
	Status    string `json:"status" binding:"required,oneof=present absent"`
}

func (r attendanceRequest) record() models.AttendanceRecord {
	return models.AttendanceRecord{StudentID: r.StudentID, Date: r.Date, Status: models.AttendanceStatus(r.Status)}
}

type addMarksRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Subject   string `json:"subject" binding:"required"`
	Score     *int   `json:"score" binding:"required,min=0,max=100"`
}

// Edits do not range-check the score
type updateMarksRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Subject   string `json:"subject" binding:"required"`
	Score     *int   `json:"score" binding:"required"`
}

// indexParam parses the :index path parameter, answering 400 itself when it is not a number
func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Index must be a number"})
		return 0, false
	}
	return index, true
}

// respondError maps service errors onto status codes
func respondError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, db.ErrDuplicateStudent):
		c.JSON(http.StatusConflict, gin.H{"error": "Student ID already exists!"})
	case errors.Is(err, db.ErrIndexOutOfRange):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, db.ErrInvalidStudent),
		errors.Is(err, db.ErrInvalidAttendance),
		errors.Is(err, db.ErrInvalidMark):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Error in %s handler: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to %s", action)})
	}
}

// --- Student Handlers ---

// ListStudents handles GET /api/students
func (h *APIHandler) ListStudents(c *gin.Context) {
	students, err := h.Records.ListStudents(c.Request.Context())
	if err != nil {
		respondError(c, "retrieve students", err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// AddStudent handles POST /api/students
func (h *APIHandler) AddStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	student, err := h.Records.AddStudent(c.Request.Context(), models.Student{ID: req.ID, Name: req.Name, Class: req.Class})
	if err != nil {
		respondError(c, "add student", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student added successfully!", "student": student})
}

// UpdateStudent handles PUT /api/students/:index
func (h *APIHandler) UpdateStudent(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	student, err := h.Records.UpdateStudent(c.Request.Context(), index, models.Student{Name: req.Name, Class: req.Class})
	if err != nil {
		respondError(c, "update student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully!", "student": student})
}

// DeleteStudent handles DELETE /api/students/:index and removes the student's attendance and marks too
func (h *APIHandler) DeleteStudent(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	student, err := h.Records.DeleteStudent(c.Request.Context(), index)
	if err != nil {
		respondError(c, "delete student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully!", "student": student})
}

// --- Attendance Handlers ---

// ListAttendance handles GET /api/attendance
func (h *APIHandler) ListAttendance(c *gin.Context) {
	rows, err := h.Records.ListAttendance(c.Request.Context())
	if err != nil {
		respondError(c, "retrieve attendance records", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// MarkAttendance handles POST /api/attendance
func (h *APIHandler) MarkAttendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := h.Records.MarkAttendance(c.Request.Context(), req.record()); err != nil {
		respondError(c, "mark attendance", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance marked successfully!", "record": req.record()})
}

// UpdateAttendance handles PUT /api/attendance/:index
func (h *APIHandler) UpdateAttendance(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if err := h.Records.UpdateAttendance(c.Request.Context(), index, req.record()); err != nil {
		respondError(c, "update attendance", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated successfully!", "record": req.record()})
}

// DeleteAttendance handles DELETE /api/attendance/:index
func (h *APIHandler) DeleteAttendance(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := h.Records.DeleteAttendance(c.Request.Context(), index); err != nil {
		respondError(c, "delete attendance record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance record deleted successfully!"})
}

// --- Marks Handlers ---

// ListMarks handles GET /api/marks
func (h *APIHandler) ListMarks(c *gin.Context) {
	rows, err := h.Records.ListMarks(c.Request.Context())
	if err != nil {
		respondError(c, "retrieve marks", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// AddMarks handles POST /api/marks
func (h *APIHandler) AddMarks(c *gin.Context) {
	var req addMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	mark := models.MarkRecord{StudentID: req.StudentID, Subject: req.Subject, Score: *req.Score}
	if err := h.Records.AddMark(c.Request.Context(), mark); err != nil {
		respondError(c, "add marks", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Marks added successfully!", "record": mark})
}

// UpdateMarks handles PUT /api/marks/:index
func (h *APIHandler) UpdateMarks(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req updateMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	mark := models.MarkRecord{StudentID: req.StudentID, Subject: req.Subject, Score: *req.Score}
	if err := h.Records.UpdateMark(c.Request.Context(), index, mark); err != nil {
		respondError(c, "update marks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marks updated successfully!", "record": mark})
}

// DeleteMarks handles DELETE /api/marks/:index
func (h *APIHandler) DeleteMarks(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := h.Records.DeleteMark(c.Request.Context(), index); err != nil {
		respondError(c, "delete marks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marks deleted successfully!"})
}

// --- Performance Handlers ---

// GetPerformance handles GET /api/performance
func (h *APIHandler) GetPerformance(c *gin.Context) {
	ranking, err := h.Records.Performance(c.Request.Context())
	if err != nil {
		respondError(c, "compute performance", err)
		return
	}
	c.JSON(http.StatusOK, ranking)
}

// ExportPerformance handles GET /api/performance/export
func (h *APIHandler) ExportPerformance(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="performance.xlsx"`)
	c.Header("Content-Type", xlsxContentType)
	if err := h.Records.ExportPerformanceExcel(c.Request.Context(), c.Writer); err != nil {
		log.Printf("Error exporting performance workbook: %v", err)
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export performance"})
		}
		return
	}
}

// --- Import Handler ---

// ImportStudents handles POST /api/import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	// Class used for rows without a class column
	class := c.PostForm("class")

	file, header, err := c.Request.FormFile("file") // "file" is the name attribute in the form
	if err != nil {
		log.Printf("Error getting form file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	log.Printf("Received file upload: %s (default class %q)", header.Filename, class)

	importedCount, err := h.Records.ImportStudentsFromExcel(c.Request.Context(), file, class)
	if err != nil {
		log.Printf("Error importing students from file %s: %v", header.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to import students: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": importedCount,
	})
}

// --- Ping Handler ---

// PingHandler handles GET /api/ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
